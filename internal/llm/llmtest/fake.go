// Package llmtest provides a scripted chat model for tests.
package llmtest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jeddict/jeddict/internal/llm"
)

// Turn is one scripted answer.
type Turn struct {
	Tokens    []string
	ToolCalls []llm.ToolCall
	Err       error
	// ErrAfter makes a streaming turn fail after this many tokens when Err is set.
	ErrAfter int
}

// Model replays scripted turns in order and records every request it receives.
type Model struct {
	mu       sync.Mutex
	turns    []Turn
	requests []llm.Request
	NoTools  bool
}

// New returns a model answering with the given turns.
func New(turns ...Turn) *Model {
	return &Model{turns: turns}
}

// Text is a shortcut for a turn answering with a single token.
func Text(s string) Turn { return Turn{Tokens: []string{s}} }

// Requests returns a copy of the recorded requests.
func (m *Model) Requests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.Request(nil), m.requests...)
}

// LastRequest returns the most recent request.
func (m *Model) LastRequest() llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return llm.Request{}
	}
	return m.requests[len(m.requests)-1]
}

func (m *Model) next(req llm.Request) (Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if len(m.turns) == 0 {
		return Turn{}, errors.New("llmtest: no scripted turns left")
	}
	t := m.turns[0]
	m.turns = m.turns[1:]
	return t, nil
}

func (m *Model) response(t Turn) *llm.Response {
	finish := llm.FinishStop
	if len(t.ToolCalls) > 0 {
		finish = llm.FinishToolCalls
	}
	return &llm.Response{
		Message: llm.Message{
			Role:      llm.RoleAssistant,
			Content:   strings.Join(t.Tokens, ""),
			ToolCalls: t.ToolCalls,
		},
		FinishReason: finish,
		Model:        m.Name(),
		CreatedAt:    time.Now(),
	}
}

func (m *Model) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	t, err := m.next(req)
	if err != nil {
		return nil, err
	}
	if t.Err != nil {
		return nil, t.Err
	}
	return m.response(t), nil
}

func (m *Model) Stream(ctx context.Context, req llm.Request, h llm.StreamHandler) error {
	t, err := m.next(req)
	if err != nil {
		h.OnError(err)
		return err
	}
	for i, tok := range t.Tokens {
		if t.Err != nil && i == t.ErrAfter {
			break
		}
		if err := ctx.Err(); err != nil {
			h.OnError(err)
			return err
		}
		h.OnPartialResponse(tok)
	}
	if t.Err != nil {
		h.OnError(t.Err)
		return t.Err
	}
	h.OnCompleteResponse(m.response(t))
	return nil
}

func (m *Model) Name() string { return "fake:scripted" }

func (m *Model) Capabilities() llm.Capabilities {
	return llm.Capabilities{Streaming: true, Tools: !m.NoTools}
}
