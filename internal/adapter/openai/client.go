// Package openai implements llm.ChatModel on top of the OpenAI chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/jeddict/jeddict/internal/llm"
)

// Client is an OpenAI-compatible chat model. It also serves any server that
// speaks the same protocol when BaseURL is set.
type Client struct {
	client *goopenai.Client
	model  string
	logger *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the given model. An empty baseURL uses api.openai.com.
func New(apiKey, model, baseURL string, opts ...Option) *Client {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	c := &Client{
		client: goopenai.NewClientWithConfig(cfg),
		model:  model,
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Name() string { return "openai:" + c.model }

func (c *Client) Capabilities() llm.Capabilities {
	return llm.Capabilities{Streaming: true, Tools: true}
}

// Chat implements llm.ChatModel.
func (c *Client) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(req, false))
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, llm.ErrEmptyResponse
	}
	choice := resp.Choices[0]
	c.logger.Debug("openai chat completed",
		zap.String("model", resp.Model),
		zap.String("finish_reason", string(choice.FinishReason)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))

	return &llm.Response{
		Message: llm.Message{
			Role:      llm.RoleAssistant,
			Content:   choice.Message.Content,
			ToolCalls: fromToolCalls(choice.Message.ToolCalls),
		},
		FinishReason: finishReason(choice.FinishReason),
		Usage: llm.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
		Model:     c.Name(),
		CreatedAt: time.Now(),
	}, nil
}

// Stream implements llm.ChatModel. Tool call fragments are assembled by index
// and delivered with the completed response.
func (c *Client) Stream(ctx context.Context, req llm.Request, h llm.StreamHandler) error {
	stream, err := c.client.CreateChatCompletionStream(ctx, c.buildRequest(req, true))
	if err != nil {
		err = fmt.Errorf("openai stream: %w", err)
		h.OnError(err)
		return err
	}
	defer stream.Close()

	var (
		text   llm.Collector
		calls  = map[int]*llm.ToolCall{}
		finish goopenai.FinishReason
		usage  llm.TokenUsage
	)
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			err = fmt.Errorf("openai stream recv: %w", err)
			h.OnError(err)
			return err
		}
		if chunk.Usage != nil {
			usage = llm.TokenUsage{InputTokens: chunk.Usage.PromptTokens, OutputTokens: chunk.Usage.CompletionTokens}
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		if choice.Delta.Content != "" {
			h.OnPartialResponse(text.Add(choice.Delta.Content))
		}
		for i, tc := range choice.Delta.ToolCalls {
			idx := i
			if tc.Index != nil {
				idx = *tc.Index
			}
			pc, ok := calls[idx]
			if !ok {
				pc = &llm.ToolCall{}
				calls[idx] = pc
			}
			if tc.ID != "" {
				pc.ID = tc.ID
			}
			if tc.Function.Name != "" {
				pc.Name = tc.Function.Name
			}
			pc.Arguments += tc.Function.Arguments
		}
		if choice.FinishReason != "" {
			finish = choice.FinishReason
		}
	}

	h.OnCompleteResponse(&llm.Response{
		Message: llm.Message{
			Role:      llm.RoleAssistant,
			Content:   text.String(),
			ToolCalls: orderedCalls(calls),
		},
		FinishReason: finishReason(finish),
		Usage:        usage,
		Model:        c.Name(),
		CreatedAt:    time.Now(),
	})
	return nil
}

func (c *Client) buildRequest(req llm.Request, stream bool) goopenai.ChatCompletionRequest {
	out := goopenai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toMessages(req.Messages),
		Stream:   stream,
	}
	if stream {
		out.StreamOptions = &goopenai.StreamOptions{IncludeUsage: true}
	}
	if req.Temperature != nil {
		out.Temperature = float32(*req.Temperature)
	}
	for _, t := range req.Tools {
		out.Tools = append(out.Tools, goopenai.Tool{
			Type: goopenai.ToolTypeFunction,
			Function: &goopenai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}

func toMessages(msgs []llm.Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		cm := goopenai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		if m.Role == llm.RoleTool {
			cm.Name = m.Name
		}
		for _, tc := range m.ToolCalls {
			cm.ToolCalls = append(cm.ToolCalls, goopenai.ToolCall{
				ID:   tc.ID,
				Type: goopenai.ToolTypeFunction,
				Function: goopenai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, cm)
	}
	return out
}

func fromToolCalls(calls []goopenai.ToolCall) []llm.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]llm.ToolCall, 0, len(calls))
	for _, tc := range calls {
		out = append(out, llm.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments})
	}
	return out
}

func orderedCalls(calls map[int]*llm.ToolCall) []llm.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	idx := make([]int, 0, len(calls))
	for i := range calls {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	out := make([]llm.ToolCall, 0, len(idx))
	for _, i := range idx {
		if calls[i].Name == "" {
			continue
		}
		out = append(out, *calls[i])
	}
	return out
}

func finishReason(r goopenai.FinishReason) llm.FinishReason {
	switch r {
	case goopenai.FinishReasonStop, "":
		return llm.FinishStop
	case goopenai.FinishReasonToolCalls, goopenai.FinishReasonFunctionCall:
		return llm.FinishToolCalls
	case goopenai.FinishReasonLength:
		return llm.FinishLength
	default:
		return llm.FinishOther
	}
}
