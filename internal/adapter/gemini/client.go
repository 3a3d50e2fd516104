// Package gemini implements llm.ChatModel with the Google Gen AI SDK.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/jeddict/jeddict/internal/llm"
)

// Client is a Gemini chat model.
type Client struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// New creates a Gemini client using the Gemini API backend.
func New(ctx context.Context, apiKey, model, baseURL string, logger *zap.Logger) (*Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{client: client, model: model, logger: logger}, nil
}

func (c *Client) Name() string { return "gemini:" + c.model }

func (c *Client) Capabilities() llm.Capabilities {
	return llm.Capabilities{Streaming: true, Tools: true}
}

// Chat implements llm.ChatModel.
func (c *Client) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	contents, cfg := c.build(req)
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini chat: %w", err)
	}
	return c.toResponse(resp.Text(), resp.FunctionCalls(), resp), nil
}

// Stream implements llm.ChatModel.
func (c *Client) Stream(ctx context.Context, req llm.Request, h llm.StreamHandler) error {
	contents, cfg := c.build(req)
	var (
		text  llm.Collector
		calls []*genai.FunctionCall
		last  *genai.GenerateContentResponse
	)
	for resp, err := range c.client.Models.GenerateContentStream(ctx, c.model, contents, cfg) {
		if err != nil {
			err = fmt.Errorf("gemini stream: %w", err)
			h.OnError(err)
			return err
		}
		if t := resp.Text(); t != "" {
			h.OnPartialResponse(text.Add(t))
		}
		calls = append(calls, resp.FunctionCalls()...)
		last = resp
	}
	h.OnCompleteResponse(c.toResponse(text.String(), calls, last))
	return nil
}

func (c *Client) build(req llm.Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	cfg := &genai.GenerateContentConfig{}
	if req.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:                 t.Name,
				Description:          t.Description,
				ParametersJsonSchema: t.Parameters,
			})
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	var contents []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleSystem:
			if cfg.SystemInstruction == nil {
				cfg.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
			} else {
				cfg.SystemInstruction.Parts = append(cfg.SystemInstruction.Parts, genai.NewPartFromText(m.Content))
			}
		case llm.RoleUser:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		case llm.RoleAssistant:
			content := &genai.Content{Role: genai.RoleModel}
			if m.Content != "" {
				content.Parts = append(content.Parts, genai.NewPartFromText(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var args map[string]any
				_ = json.Unmarshal([]byte(tc.Arguments), &args)
				content.Parts = append(content.Parts, genai.NewPartFromFunctionCall(tc.Name, args))
			}
			contents = append(contents, content)
		case llm.RoleTool:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{genai.NewPartFromFunctionResponse(m.Name, map[string]any{"output": m.Content})},
			})
		}
	}
	return contents, cfg
}

func (c *Client) toResponse(text string, calls []*genai.FunctionCall, last *genai.GenerateContentResponse) *llm.Response {
	out := &llm.Response{
		Message:      llm.Message{Role: llm.RoleAssistant, Content: text},
		FinishReason: llm.FinishStop,
		Model:        c.Name(),
		CreatedAt:    time.Now(),
	}
	if last != nil {
		if last.UsageMetadata != nil {
			out.Usage = llm.TokenUsage{
				InputTokens:  int(last.UsageMetadata.PromptTokenCount),
				OutputTokens: int(last.UsageMetadata.CandidatesTokenCount),
			}
		}
		if len(last.Candidates) > 0 && last.Candidates[0].FinishReason == genai.FinishReasonMaxTokens {
			out.FinishReason = llm.FinishLength
		}
	}
	for _, fc := range calls {
		args, err := json.Marshal(fc.Args)
		if err != nil || fc.Args == nil {
			args = []byte("{}")
		}
		id := fc.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		out.Message.ToolCalls = append(out.Message.ToolCalls, llm.ToolCall{ID: id, Name: fc.Name, Arguments: string(args)})
	}
	if len(out.Message.ToolCalls) > 0 {
		out.FinishReason = llm.FinishToolCalls
	}
	c.logger.Debug("gemini response", zap.String("model", c.model), zap.Int("tool_calls", len(calls)))
	return out
}
