package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeddict/jeddict/internal/adapter"
	"github.com/jeddict/jeddict/internal/brain"
	"github.com/jeddict/jeddict/internal/config"
	"github.com/jeddict/jeddict/internal/editor"
	"github.com/jeddict/jeddict/internal/history"
	"github.com/jeddict/jeddict/internal/prompt"
	"github.com/jeddict/jeddict/internal/redact"
	"github.com/jeddict/jeddict/internal/scanner"
	"github.com/jeddict/jeddict/internal/tool"
	"github.com/jeddict/jeddict/internal/vcs"
	"github.com/jeddict/jeddict/internal/workspace"
)

// app is what a command needs to talk to the model about the workspace.
type app struct {
	workspace string
	cfg       *config.Config
	project   *scanner.Project
	repo      *vcs.Repository
	registry  *tool.Registry
	approver  tool.Approver
	brain     *brain.Brain
}

func detectWorkspace() (string, error) {
	start := workspaceFlag
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		start = wd
	}
	return workspace.Detect(start)
}

// newApp loads configuration and builds the brain. approver resolves tool
// proposals; nil selects auto approval or a terminal prompt per config.
func newApp(ctx context.Context, approver tool.Approver) (*app, error) {
	ws, err := detectWorkspace()
	if err != nil {
		return nil, fmt.Errorf("detect workspace: %w", err)
	}
	loader, err := config.Load(ws)
	if err != nil {
		return nil, err
	}
	cfg, err := loader.Config()
	if err != nil {
		return nil, err
	}

	project, err := scanner.NewProject(ws, scanner.WithLogger(logger), scanner.WithMaxFileSize(cfg.MaxFileSize))
	if err != nil {
		return nil, err
	}
	repo, err := vcs.Open(ws)
	if err != nil && !errors.Is(err, vcs.ErrNotRepository) {
		logger.Warn("failed to open repository", zap.Error(err))
	}

	if approver == nil {
		approver = newTerminalApprover(os.Stdin, os.Stderr)
	}
	if cfg.AutoApprove {
		approver = tool.AutoApprove
	}

	model, err := adapter.New(ctx, adapter.Config{
		Model:   cfg.Model,
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	catalog, err := prompt.LoadCatalog(filepath.Join(config.ProjectDir(ws), "prompts.yaml"))
	if err != nil {
		return nil, err
	}
	userRules, projectRules, err := config.LoadRules(ws)
	if err != nil {
		return nil, err
	}

	opts := []brain.Option{
		brain.WithCatalog(catalog),
		brain.WithRules(brain.Rules{
			Global:  config.FormatRules(userRules),
			Project: config.FormatRules(projectRules),
		}),
		brain.WithTemperature(cfg.Temperature),
		brain.WithMaxToolRounds(cfg.MaxToolRounds),
		brain.WithLogger(logger),
	}
	if cfg.RedactSecrets {
		opts = append(opts, brain.WithRedactor(redact.New()))
	}

	a := &app{workspace: ws, cfg: cfg, project: project, repo: repo, approver: approver}
	if cfg.Tools {
		a.registry = tool.NewRegistry(tool.WithApprover(approver), tool.WithLogger(logger))
		tool.RegisterCoreTools(a.registry, tool.CoreOptions{
			Workspace: ws,
			Project:   project,
			Repo:      repo,
			Shell:     cfg.EnableShell,
			Logger:    logger,
		})
		opts = append(opts, brain.WithTools(a.registry))
	}
	a.brain = brain.New(model, opts...)

	logger.Debug("workspace ready",
		zap.String("workspace", ws),
		zap.String("model", cfg.Model),
		zap.Bool("tools", cfg.Tools))
	return a, nil
}

// openHistory opens the session database of the workspace.
func openHistory(ws string) (*history.Store, error) {
	dir, err := workspace.DataDir(ws)
	if err != nil {
		return nil, err
	}
	return history.Open(filepath.Join(dir, history.DBName))
}

// source reads path and attaches the skeletons of the types it references.
// With a member name or line only that member's code is sent.
func (a *app) source(path, member string, line int) (brain.Source, *scanner.Member, error) {
	abs, err := editor.ResolvePath(a.workspace, path)
	if err != nil {
		return brain.Source{}, nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return brain.Source{}, nil, err
	}
	src := brain.Source{Path: a.rel(abs), Code: string(data)}

	if scanner.Supported(abs) {
		if ctx, err := a.project.ContextFor(abs); err == nil {
			src.Context = ctx
		} else {
			logger.Debug("no type context", zap.String("path", abs), zap.Error(err))
		}
	}
	if member == "" && line <= 0 {
		return src, nil, nil
	}
	cd, err := a.project.Get(abs)
	if err != nil {
		return brain.Source{}, nil, err
	}
	m, err := cd.FindMember(member, line)
	if err != nil {
		return brain.Source{}, nil, err
	}
	start := m.Start
	if m.HasDoc() {
		start = m.DocStart
	}
	src.Code = string(data[start:m.End])
	return src, &m, nil
}

func (a *app) rel(abs string) string {
	if rel, err := filepath.Rel(a.workspace, abs); err == nil {
		return filepath.ToSlash(rel)
	}
	return abs
}

// propose asks the approver to apply plan.
func (a *app) propose(ctx context.Context, plan *editor.EditPlan) (bool, error) {
	p := &tool.Proposal{
		Tool:    "jeddict",
		Summary: plan.Summary(),
		Diff:    plan.Diff,
		Apply: func(context.Context) (any, error) {
			return nil, editor.ApplyEdit(plan)
		},
	}
	ok, err := a.approver.Approve(ctx, p)
	if err != nil || !ok {
		return false, err
	}
	if _, err := p.Apply(ctx); err != nil {
		return false, err
	}
	a.project.Invalidate(plan.FilePath)
	return true, nil
}

// terminalApprover asks on the terminal before a change is made. Answers
// are read line by line through one reader, started on the first prompt so
// commands reading stdin themselves keep it until then.
type terminalApprover struct {
	in    *bufio.Reader
	out   io.Writer
	once  sync.Once
	lines chan string
}

func newTerminalApprover(in io.Reader, out io.Writer) *terminalApprover {
	return &terminalApprover{in: bufio.NewReader(in), out: out, lines: make(chan string)}
}

func (t *terminalApprover) read() {
	defer close(t.lines)
	for {
		line, err := t.in.ReadString('\n')
		if line != "" {
			t.lines <- line
		}
		if err != nil {
			return
		}
	}
}

func (t *terminalApprover) Approve(ctx context.Context, p *tool.Proposal) (bool, error) {
	fmt.Fprintln(t.out)
	fmt.Fprintln(t.out, p.Summary)
	if p.Diff != "" {
		fmt.Fprintln(t.out, editor.RenderDiff(p.Diff))
	}
	fmt.Fprint(t.out, "Apply? [y/N] ")

	t.once.Do(func() { go t.read() })
	select {
	case line := <-t.lines:
		line = strings.ToLower(strings.TrimSpace(line))
		return line == "y" || line == "yes", nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// printer streams answers to the terminal.
type printer struct {
	out    io.Writer
	errOut io.Writer
}

func (p printer) OnEvent(e brain.Event) {
	switch e.Type {
	case brain.ChatPartial:
		fmt.Fprint(p.out, e.Token)
	case brain.ChatIntermediate:
		fmt.Fprintln(p.out)
	case brain.ToolBeforeExecution:
		fmt.Fprintf(p.errOut, "⚙ %s %s\n", e.ToolCall.Name, e.ToolCall.Arguments)
	case brain.ChatCompleted:
		fmt.Fprintln(p.out)
	case brain.ChatError:
		fmt.Fprintln(p.out)
	}
}

func listener(cmd *cobra.Command) brain.Listener {
	return printer{out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}
}

// argsText joins the positional arguments, reading stdin for "-".
func argsText(cmd *cobra.Command, args []string) (string, error) {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text != "-" {
		return text, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
