// Package langchain adapts langchaingo models (Anthropic, Cohere) to llm.ChatModel.
package langchain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/cohere"
	"go.uber.org/zap"

	"github.com/jeddict/jeddict/internal/llm"
)

// Client wraps any langchaingo llms.Model.
type Client struct {
	model  llms.Model
	name   string
	tools  bool
	logger *zap.Logger
}

// Wrap adapts an already constructed langchaingo model.
func Wrap(m llms.Model, name string, supportsTools bool, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{model: m, name: name, tools: supportsTools, logger: logger}
}

// NewAnthropic builds a Claude model.
func NewAnthropic(apiKey, model, baseURL string, logger *zap.Logger) (*Client, error) {
	opts := []anthropic.Option{
		anthropic.WithToken(apiKey),
		anthropic.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	m, err := anthropic.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	return Wrap(m, "claude:"+model, true, logger), nil
}

// NewCohere builds a Cohere model. Cohere is used without tools.
func NewCohere(apiKey, model, baseURL string, logger *zap.Logger) (*Client, error) {
	opts := []cohere.Option{
		cohere.WithToken(apiKey),
		cohere.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, cohere.WithBaseURL(baseURL))
	}
	m, err := cohere.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("cohere: %w", err)
	}
	return Wrap(m, "cohere:"+model, false, logger), nil
}

func (c *Client) Name() string { return c.name }

func (c *Client) Capabilities() llm.Capabilities {
	return llm.Capabilities{Streaming: true, Tools: c.tools}
}

// Chat implements llm.ChatModel.
func (c *Client) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if len(req.Tools) > 0 && !c.tools {
		return nil, llm.ErrToolsUnsupported
	}
	resp, err := c.model.GenerateContent(ctx, toContent(req.Messages), c.callOptions(req)...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}
	return c.toResponse(resp)
}

// Stream implements llm.ChatModel using langchaingo's streaming callback.
func (c *Client) Stream(ctx context.Context, req llm.Request, h llm.StreamHandler) error {
	if len(req.Tools) > 0 && !c.tools {
		h.OnError(llm.ErrToolsUnsupported)
		return llm.ErrToolsUnsupported
	}
	opts := append(c.callOptions(req), llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
		if len(chunk) > 0 {
			h.OnPartialResponse(string(chunk))
		}
		return nil
	}))
	resp, err := c.model.GenerateContent(ctx, toContent(req.Messages), opts...)
	if err != nil {
		err = fmt.Errorf("%s: %w", c.name, err)
		h.OnError(err)
		return err
	}
	out, err := c.toResponse(resp)
	if err != nil {
		h.OnError(err)
		return err
	}
	h.OnCompleteResponse(out)
	return nil
}

func (c *Client) callOptions(req llm.Request) []llms.CallOption {
	var opts []llms.CallOption
	if req.Temperature != nil {
		opts = append(opts, llms.WithTemperature(*req.Temperature))
	}
	if len(req.Tools) > 0 {
		tools := make([]llms.Tool, 0, len(req.Tools))
		for _, t := range req.Tools {
			tools = append(tools, llms.Tool{
				Type: "function",
				Function: &llms.FunctionDefinition{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
		opts = append(opts, llms.WithTools(tools))
	}
	return opts
}

func (c *Client) toResponse(resp *llms.ContentResponse) (*llm.Response, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, llm.ErrEmptyResponse
	}
	choice := resp.Choices[0]
	out := &llm.Response{
		Message:      llm.Message{Role: llm.RoleAssistant, Content: choice.Content},
		FinishReason: stopReason(choice.StopReason),
		Usage:        usage(choice.GenerationInfo),
		Model:        c.name,
		CreatedAt:    time.Now(),
	}
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		id := tc.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		out.Message.ToolCalls = append(out.Message.ToolCalls, llm.ToolCall{
			ID:        id,
			Name:      tc.FunctionCall.Name,
			Arguments: tc.FunctionCall.Arguments,
		})
	}
	if len(out.Message.ToolCalls) > 0 {
		out.FinishReason = llm.FinishToolCalls
	}
	c.logger.Debug("langchain response",
		zap.String("model", c.name),
		zap.String("stop_reason", choice.StopReason),
		zap.Int("tool_calls", len(out.Message.ToolCalls)))
	return out, nil
}

func toContent(msgs []llm.Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case llm.RoleSystem:
			out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, m.Content))
		case llm.RoleUser:
			out = append(out, llms.TextParts(llms.ChatMessageTypeHuman, m.Content))
		case llm.RoleAssistant:
			mc := llms.MessageContent{Role: llms.ChatMessageTypeAI}
			if m.Content != "" {
				mc.Parts = append(mc.Parts, llms.TextContent{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				mc.Parts = append(mc.Parts, llms.ToolCall{
					ID:   tc.ID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			out = append(out, mc)
		case llm.RoleTool:
			out = append(out, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: m.ToolCallID,
					Name:       m.Name,
					Content:    m.Content,
				}},
			})
		}
	}
	return out
}

func stopReason(r string) llm.FinishReason {
	switch strings.ToLower(r) {
	case "", "stop", "end_turn", "complete", "stop_sequence":
		return llm.FinishStop
	case "tool_use", "tool_calls":
		return llm.FinishToolCalls
	case "max_tokens", "length":
		return llm.FinishLength
	default:
		return llm.FinishOther
	}
}

func usage(info map[string]any) llm.TokenUsage {
	return llm.TokenUsage{
		InputTokens:  intField(info, "InputTokens", "PromptTokens"),
		OutputTokens: intField(info, "OutputTokens", "CompletionTokens"),
	}
}

func intField(info map[string]any, keys ...string) int {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}
