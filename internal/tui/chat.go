// Package tui is the interactive chat screen.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeddict/jeddict/internal/brain"
	"github.com/jeddict/jeddict/internal/editor"
)

// Backend answers one chat message, delivering the answer as events.
type Backend interface {
	Send(ctx context.Context, message string, l brain.Listener) error
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, message string, l brain.Listener) error

func (f BackendFunc) Send(ctx context.Context, message string, l brain.Listener) error {
	return f(ctx, message, l)
}

type role int

const (
	roleUser role = iota
	roleAssistant
	roleTool
	roleError
)

type entry struct {
	role role
	text string
}

type (
	eventMsg    brain.Event
	doneMsg     struct{}
	approvalMsg approvalRequest
)

// Model is the bubbletea model of the chat screen.
type Model struct {
	ctx       context.Context
	backend   Backend
	approvals *Approvals
	title     string

	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	entries []entry
	partial strings.Builder
	events  chan brain.Event
	pending *approvalRequest
	busy    bool
	width   int
}

// New creates the chat screen. approvals may be nil when no tool needs
// confirmation.
func New(ctx context.Context, title string, backend Backend, approvals *Approvals) *Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about your code... (Enter to send, Alt+Enter for a new line, Ctrl+C to exit)"
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline.SetKeys("alt+enter")
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = toolStyle

	return &Model{
		ctx:       ctx,
		backend:   backend,
		approvals: approvals,
		title:     title,
		input:     ta,
		viewport:  viewport.New(80, 20),
		spinner:   sp,
		width:     80,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			if m.pending != nil {
				m.answer(false)
			}
			return m, tea.Quit
		}
		if m.pending != nil {
			switch strings.ToLower(msg.String()) {
			case "y":
				m.answer(true)
				return m, m.wait()
			case "n", "esc":
				m.answer(false)
				return m, m.wait()
			}
			return m, nil
		}
		if msg.Type == tea.KeyEnter && !m.busy {
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.input.Reset()
			return m, m.submit(text)
		}
		switch msg.Type {
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		if !m.busy {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case eventMsg:
		m.handleEvent(brain.Event(msg))
		cmds = append(cmds, m.wait())

	case approvalMsg:
		req := approvalRequest(msg)
		m.pending = &req

	case doneMsg:
		m.busy = false
		m.events = nil
	}

	m.refresh()
	return m, tea.Batch(cmds...)
}

func (m *Model) submit(text string) tea.Cmd {
	m.entries = append(m.entries, entry{role: roleUser, text: text})
	m.partial.Reset()
	m.busy = true

	events := make(chan brain.Event, 64)
	m.events = events
	go func() {
		defer close(events)
		_ = m.backend.Send(m.ctx, text, brain.ListenerFunc(func(e brain.Event) {
			events <- e
		}))
	}()
	m.refresh()
	return m.wait()
}

// wait delivers the next event, approval request or the end of the call.
func (m *Model) wait() tea.Cmd {
	events := m.events
	if events == nil {
		return nil
	}
	var requests chan approvalRequest
	if m.approvals != nil {
		requests = m.approvals.requests
	}
	return func() tea.Msg {
		select {
		case e, ok := <-events:
			if !ok {
				return doneMsg{}
			}
			return eventMsg(e)
		case req := <-requests:
			return approvalMsg(req)
		}
	}
}

func (m *Model) answer(ok bool) {
	m.pending.reply <- ok
	verdict := "declined"
	if ok {
		verdict = "approved"
	}
	m.entries = append(m.entries, entry{role: roleTool, text: verdict + ": " + m.pending.proposal.Summary})
	m.pending = nil
}

func (m *Model) handleEvent(e brain.Event) {
	switch e.Type {
	case brain.ChatPartial:
		m.partial.WriteString(e.Token)
	case brain.ChatIntermediate:
		if text := strings.TrimSpace(e.Response.Text()); text != "" {
			m.entries = append(m.entries, entry{role: roleAssistant, text: text})
		}
		m.partial.Reset()
	case brain.ToolBeforeExecution:
		m.entries = append(m.entries, entry{role: roleTool, text: fmt.Sprintf("%s %s", e.ToolCall.Name, abbreviate(e.ToolCall.Arguments, 80))})
	case brain.ToolExecuted:
		if strings.HasPrefix(e.ToolResult, "Error:") {
			m.entries = append(m.entries, entry{role: roleError, text: e.ToolCall.Name + ": " + abbreviate(e.ToolResult, 200)})
		}
	case brain.ChatCompleted:
		m.entries = append(m.entries, entry{role: roleAssistant, text: e.Response.Text()})
		m.partial.Reset()
	case brain.ChatError:
		m.entries = append(m.entries, entry{role: roleError, text: e.Err.Error()})
		m.partial.Reset()
	}
}

func (m *Model) resize(width, height int) {
	m.width = width
	inputHeight := 5
	headerHeight := 2
	m.viewport.Width = width
	m.viewport.Height = max(height-inputHeight-headerHeight-1, 3)
	m.input.SetWidth(width - 2)
	m.renderer, _ = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(width-4, 20)),
	)
}

func (m *Model) refresh() {
	var b strings.Builder
	for _, e := range m.entries {
		b.WriteString(m.render(e))
		b.WriteString("\n")
	}
	if m.partial.Len() > 0 {
		b.WriteString(m.partial.String())
		b.WriteString("\n")
	}
	if m.pending != nil {
		p := m.pending.proposal
		body := p.Summary
		if p.Diff != "" {
			body += "\n\n" + editor.RenderDiff(p.Diff)
		}
		b.WriteString(approvalStyle.Render(body + "\n\nApply? [y/n]"))
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m *Model) render(e entry) string {
	switch e.role {
	case roleUser:
		return userStyle.Render("> " + e.text)
	case roleTool:
		return toolStyle.Render("  ⚙ " + e.text)
	case roleError:
		return errorStyle.Render("  ✗ " + e.text)
	default:
		if m.renderer != nil {
			if out, err := m.renderer.Render(e.text); err == nil {
				return strings.TrimRight(out, "\n")
			}
		}
		return e.text
	}
}

func (m *Model) View() string {
	header := titleStyle.Render(m.title)
	status := helpStyle.Render("PgUp/PgDn scroll · Ctrl+C quit")
	if m.busy {
		status = m.spinner.View() + helpStyle.Render(" thinking...")
	}
	return header + "\n" + m.viewport.View() + "\n" + inputStyle.Render(m.input.View()) + "\n" + status
}

// Transcript returns the conversation as plain text, for tests and logs.
func (m *Model) Transcript() string {
	var b strings.Builder
	for _, e := range m.entries {
		switch e.role {
		case roleUser:
			b.WriteString("user: ")
		case roleTool:
			b.WriteString("tool: ")
		case roleError:
			b.WriteString("error: ")
		default:
			b.WriteString("assistant: ")
		}
		b.WriteString(e.text + "\n")
	}
	return b.String()
}

// Run starts the chat screen on the terminal and blocks until it exits.
func Run(m *Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx)).Run()
	return err
}

func abbreviate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
