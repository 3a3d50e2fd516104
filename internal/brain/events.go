package brain

import (
	"fmt"

	"github.com/jeddict/jeddict/internal/llm"
)

// EventType identifies a streaming notification.
type EventType int

const (
	ChatPartial EventType = iota
	ChatCompleted
	ChatIntermediate
	ToolBeforeExecution
	ToolExecuted
	ChatError
)

func (t EventType) String() string {
	switch t {
	case ChatPartial:
		return "CHAT_PARTIAL"
	case ChatCompleted:
		return "CHAT_COMPLETED"
	case ChatIntermediate:
		return "CHAT_INTERMEDIATE"
	case ToolBeforeExecution:
		return "TOOL_BEFORE_EXECUTION"
	case ToolExecuted:
		return "TOOL_EXECUTED"
	case ChatError:
		return "CHAT_ERROR"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Terminal reports whether t ends a streaming call.
func (t EventType) Terminal() bool {
	return t == ChatCompleted || t == ChatError
}

// Event is delivered to a Listener during a streaming call. Which fields are
// set depends on Type:
//
//	ChatPartial          Token
//	ChatCompleted        Response
//	ChatIntermediate     Response (an answer that asked for tools)
//	ToolBeforeExecution  ToolCall
//	ToolExecuted         ToolCall, ToolResult
//	ChatError            Err
type Event struct {
	Type       EventType
	Token      string
	Response   *llm.Response
	ToolCall   *llm.ToolCall
	ToolResult string
	Err        error
}

// Listener receives the events of one streaming call, on the goroutine of
// the chat model client.
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a function to a Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) OnEvent(e Event) { f(e) }

// Discard is a Listener that drops every event.
var Discard Listener = ListenerFunc(func(Event) {})
