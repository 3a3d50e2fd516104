// Package llm defines the chat-model client contract the assistant talks to.
// Provider implementations live under internal/adapter.
package llm

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Role is the author of a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single entry of a conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// ToolCalls is set on assistant messages that requested tool execution.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// ToolCallID links a tool result message to the call that produced it.
	ToolCallID string `json:"tool_call_id,omitempty"`
	// Name is the tool name for tool result messages.
	Name string `json:"name,omitempty"`
}

// System returns a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User returns a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Assistant returns an assistant message.
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// ToolResult returns the message carrying the output of a tool call back to the model.
func ToolResult(call ToolCall, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: call.ID, Name: call.Name}
}

// ToolCall is a model request to run a named tool with JSON arguments.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolSpec describes a tool offered to the model.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON-Schema object
}

// Request is one call to a chat model.
type Request struct {
	Messages    []Message
	Tools       []ToolSpec
	Temperature *float64
}

// FinishReason explains why the model stopped generating.
type FinishReason string

const (
	FinishStop      FinishReason = "stop"
	FinishToolCalls FinishReason = "tool_calls"
	FinishLength    FinishReason = "length"
	FinishOther     FinishReason = "other"
)

// TokenUsage reports the tokens consumed by a call when the provider exposes it.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int { return u.InputTokens + u.OutputTokens }

// Response is one completed model answer.
type Response struct {
	Message      Message      `json:"message"`
	FinishReason FinishReason `json:"finish_reason"`
	Usage        TokenUsage   `json:"usage"`
	Model        string       `json:"model"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Text returns the answer text.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return r.Message.Content
}

// HasToolCalls reports whether the model asked for tools to be executed.
func (r *Response) HasToolCalls() bool {
	return r != nil && len(r.Message.ToolCalls) > 0
}

// StreamHandler receives the callbacks of a streaming call. Exactly one of
// OnCompleteResponse or OnError is invoked, after all partial responses.
type StreamHandler interface {
	OnPartialResponse(token string)
	OnCompleteResponse(resp *Response)
	OnError(err error)
}

// HandlerFuncs adapts plain functions to a StreamHandler. Nil fields are skipped.
type HandlerFuncs struct {
	Partial  func(token string)
	Complete func(resp *Response)
	Error    func(err error)
}

func (h HandlerFuncs) OnPartialResponse(token string) {
	if h.Partial != nil {
		h.Partial(token)
	}
}

func (h HandlerFuncs) OnCompleteResponse(resp *Response) {
	if h.Complete != nil {
		h.Complete(resp)
	}
}

func (h HandlerFuncs) OnError(err error) {
	if h.Error != nil {
		h.Error(err)
	}
}

// Capabilities reports optional features of a chat model.
type Capabilities struct {
	Streaming bool
	Tools     bool
}

// ChatModel is the client contract for a language-model backend.
//
// Chat blocks until the answer is complete. Stream blocks until the answer is
// complete as well, delivering tokens to the handler as they arrive; the error
// it returns is the same one passed to OnError.
type ChatModel interface {
	Chat(ctx context.Context, req Request) (*Response, error)
	Stream(ctx context.Context, req Request, handler StreamHandler) error
	Name() string
	Capabilities() Capabilities
}

// ErrToolsUnsupported is returned when tools are offered to a model that cannot call them.
var ErrToolsUnsupported = errors.New("llm: model does not support tool calling")

// ErrEmptyResponse is returned when a provider answers with neither text nor tool calls.
var ErrEmptyResponse = errors.New("llm: empty response")

// Collector accumulates a streamed answer. It is used by providers that
// assemble the final Response from their own stream.
type Collector struct {
	b strings.Builder
}

// Add appends a token and returns it.
func (c *Collector) Add(token string) string {
	c.b.WriteString(token)
	return token
}

// String returns everything collected so far.
func (c *Collector) String() string { return c.b.String() }
