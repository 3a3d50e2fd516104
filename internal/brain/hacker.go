package brain

import (
	"context"

	"github.com/jeddict/jeddict/internal/llm"
	"github.com/jeddict/jeddict/internal/prompt"
)

// Exchange is one user request and the answer it produced.
type Exchange struct {
	User     llm.Message
	Response *llm.Response
	// Steps are the assistant tool requests and tool results exchanged
	// before the final answer.
	Steps []llm.Message
}

// Messages returns the exchange as conversation history for the next turn.
func (e *Exchange) Messages() []llm.Message {
	out := make([]llm.Message, 0, len(e.Steps)+2)
	out = append(out, e.User)
	out = append(out, e.Steps...)
	if e.Response != nil {
		out = append(out, e.Response.Message)
	}
	return out
}

// HackerSpecialist is the streaming conversational pair programmer.
type HackerSpecialist struct {
	b    *Brain
	role prompt.Specialist
}

// Role reports which hacker template is in use.
func (h *HackerSpecialist) Role() prompt.Specialist { return h.role }

// Chat sends message with the prior conversation history and streams the
// answer to l. src optionally attaches code to the message.
func (h *HackerSpecialist) Chat(ctx context.Context, history []llm.Message, message string, src Source, l Listener) (*Exchange, error) {
	vars := h.b.vars(src, prompt.Vars{prompt.Prompt: message})
	msgs := h.b.messages(h.role, vars, history)
	ex := &Exchange{User: msgs[len(msgs)-1]}

	if h.role != prompt.HackerWithTools {
		resp, err := h.b.stream(ctx, h.role, msgs, l)
		if err != nil {
			return ex, err
		}
		ex.Response = resp
		return ex, nil
	}

	resp, all, err := h.b.streamWithTools(ctx, h.role, msgs, l)
	ex.Steps = append(ex.Steps, all[len(msgs):]...)
	if err != nil {
		return ex, err
	}
	ex.Response = resp
	return ex, nil
}
