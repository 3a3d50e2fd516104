package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonrepair"
	"go.uber.org/zap"

	"github.com/jeddict/jeddict/internal/llm"
	"github.com/jeddict/jeddict/internal/prompt"
)

// chat is the synchronous path: one blocking model call, errors returned as is.
func (b *Brain) chat(ctx context.Context, role prompt.Specialist, msgs []llm.Message) (*llm.Response, error) {
	b.logger.Debug("chat", zap.Stringer("specialist", role), zap.Int("messages", len(msgs)))
	resp, err := b.model.Chat(ctx, b.request(msgs, nil))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", strings.ToLower(role.String()), err)
	}
	return resp, nil
}

// relay turns model callbacks into listener events and guarantees exactly
// one terminal event per call. When intermediate is set, a completed answer
// that asks for tools is reported as ChatIntermediate instead of ChatCompleted.
type relay struct {
	mu           sync.Mutex
	listener     Listener
	intermediate bool
	done         bool
	resp         *llm.Response
	err          error
	logger       *zap.Logger
}

func (r *relay) OnPartialResponse(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		r.logger.Debug("dropping token after terminal event")
		return
	}
	r.listener.OnEvent(Event{Type: ChatPartial, Token: token})
}

func (r *relay) OnCompleteResponse(resp *llm.Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return
	}
	r.resp = resp
	if r.intermediate && resp.HasToolCalls() {
		r.listener.OnEvent(Event{Type: ChatIntermediate, Response: resp})
		return
	}
	r.done = true
	r.listener.OnEvent(Event{Type: ChatCompleted, Response: resp})
}

func (r *relay) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failLocked(err)
}

func (r *relay) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failLocked(err)
}

func (r *relay) failLocked(err error) {
	if r.done {
		return
	}
	r.done = true
	r.err = err
	r.listener.OnEvent(Event{Type: ChatError, Err: err})
}

func (r *relay) emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.done {
		r.listener.OnEvent(e)
	}
}

// round runs one streaming model call and returns its response. A client
// that returns without any terminal callback is treated as a failure.
func (r *relay) round(ctx context.Context, model llm.ChatModel, req llm.Request) (*llm.Response, error) {
	r.mu.Lock()
	r.resp = nil
	r.mu.Unlock()

	err := model.Stream(ctx, req, r)

	r.mu.Lock()
	resp, done, prior := r.resp, r.done, r.err
	r.mu.Unlock()
	switch {
	case prior != nil:
		return nil, prior
	case done && resp != nil:
		// the completed answer was already delivered; later failures are dropped
		return resp, nil
	case err != nil:
		r.fail(err)
		return nil, err
	case resp == nil:
		r.fail(ErrNoTerminal)
		return nil, ErrNoTerminal
	}
	return resp, nil
}

// stream is the streaming path without tools.
func (b *Brain) stream(ctx context.Context, role prompt.Specialist, msgs []llm.Message, l Listener) (*llm.Response, error) {
	if l == nil {
		l = Discard
	}
	b.logger.Debug("stream", zap.Stringer("specialist", role), zap.Int("messages", len(msgs)))
	r := &relay{listener: l, logger: b.logger}
	return r.round(ctx, b.model, b.request(msgs, nil))
}

// streamWithTools streams, executes requested tools and calls the model
// again with their results until it answers without tools.
func (b *Brain) streamWithTools(ctx context.Context, role prompt.Specialist, msgs []llm.Message, l Listener) (*llm.Response, []llm.Message, error) {
	if l == nil {
		l = Discard
	}
	r := &relay{listener: l, intermediate: true, logger: b.logger}
	specs := b.tools.Specs()

	for round := 0; ; round++ {
		b.logger.Debug("stream with tools",
			zap.Stringer("specialist", role),
			zap.Int("round", round),
			zap.Int("messages", len(msgs)))

		resp, err := r.round(ctx, b.model, b.request(msgs, specs))
		if err != nil {
			return nil, msgs, err
		}
		if !resp.HasToolCalls() {
			return resp, msgs, nil
		}
		if round >= b.maxToolRounds {
			err := fmt.Errorf("%w (%d)", ErrToolLimit, b.maxToolRounds)
			r.fail(err)
			return nil, msgs, err
		}

		msgs = append(msgs, resp.Message)
		for _, call := range resp.Message.ToolCalls {
			call.Arguments = repairArguments(call.Arguments)
			c := call
			r.emit(Event{Type: ToolBeforeExecution, ToolCall: &c})

			out, err := b.tools.Execute(ctx, c)
			if err != nil {
				err = fmt.Errorf("tool %s: %w", c.Name, err)
				r.fail(err)
				return nil, msgs, err
			}
			b.logger.Debug("tool executed", zap.String("tool", c.Name), zap.Int("result_bytes", len(out)))
			r.emit(Event{Type: ToolExecuted, ToolCall: &c, ToolResult: out})
			msgs = append(msgs, llm.ToolResult(c, out))
		}
	}
}

// repairArguments fixes the malformed JSON some models emit for tool arguments.
func repairArguments(args string) string {
	if strings.TrimSpace(args) == "" {
		return "{}"
	}
	if json.Valid([]byte(args)) {
		return args
	}
	fixed, err := jsonrepair.JSONRepair(args)
	if err != nil {
		return args
	}
	return fixed
}
