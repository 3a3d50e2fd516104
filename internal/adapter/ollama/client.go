// Package ollama talks to a local Ollama server through its native /api/chat endpoint.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeddict/jeddict/internal/llm"
)

// DefaultBaseURL is the address of a default local Ollama install.
const DefaultBaseURL = "http://localhost:11434"

type chatMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
}

type toolCall struct {
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

type tool struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Tools    []tool         `json:"tools,omitempty"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Model           string      `json:"model"`
	CreatedAt       time.Time   `json:"created_at"`
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	DoneReason      string      `json:"done_reason"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
	Error           string      `json:"error"`
}

// Client implements llm.ChatModel for Ollama.
type Client struct {
	http    *http.Client
	baseURL string
	model   string
	logger  *zap.Logger
}

// New returns a client for model at baseURL. An empty baseURL uses DefaultBaseURL.
func New(baseURL, model string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:    &http.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		logger:  logger,
	}
}

func (c *Client) Name() string { return "ollama:" + c.model }

func (c *Client) Capabilities() llm.Capabilities {
	return llm.Capabilities{Streaming: true, Tools: true}
}

// Chat implements llm.ChatModel.
func (c *Client) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	body, err := c.post(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var resp chatResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("ollama: decode response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("ollama: %s", resp.Error)
	}
	return c.toResponse(resp.Message.Content, resp), nil
}

// Stream implements llm.ChatModel. Ollama sends one JSON object per line.
func (c *Client) Stream(ctx context.Context, req llm.Request, h llm.StreamHandler) error {
	body, err := c.post(ctx, req, true)
	if err != nil {
		h.OnError(err)
		return err
	}
	defer body.Close()

	var text llm.Collector
	var calls []toolCall
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var chunk chatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			err = fmt.Errorf("ollama: decode stream chunk: %w", err)
			h.OnError(err)
			return err
		}
		if chunk.Error != "" {
			err := fmt.Errorf("ollama: %s", chunk.Error)
			h.OnError(err)
			return err
		}
		if chunk.Message.Content != "" {
			h.OnPartialResponse(text.Add(chunk.Message.Content))
		}
		calls = append(calls, chunk.Message.ToolCalls...)
		if chunk.Done {
			chunk.Message.ToolCalls = calls
			h.OnCompleteResponse(c.toResponse(text.String(), chunk))
			return nil
		}
	}
	err = scanner.Err()
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	err = fmt.Errorf("ollama: read stream: %w", err)
	h.OnError(err)
	return err
}

// IsAvailable reports whether the server answers on /api/tags.
func (c *Client) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *Client) post(ctx context.Context, req llm.Request, stream bool) (io.ReadCloser, error) {
	payload := chatRequest{
		Model:    c.model,
		Messages: toMessages(req.Messages),
		Stream:   stream,
	}
	if req.Temperature != nil {
		payload.Options = map[string]any{"temperature": *req.Temperature}
	}
	for _, t := range req.Tools {
		payload.Tools = append(payload.Tools, tool{
			Type:     "function",
			Function: toolFunction{Name: t.Name, Description: t.Description, Parameters: t.Parameters},
		})
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("ollama: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Debug("ollama request", zap.String("model", c.model), zap.Bool("stream", stream), zap.Int("messages", len(payload.Messages)))
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return resp.Body, nil
}

func (c *Client) toResponse(content string, r chatResponse) *llm.Response {
	out := &llm.Response{
		Message:      llm.Message{Role: llm.RoleAssistant, Content: content},
		FinishReason: llm.FinishStop,
		Usage:        llm.TokenUsage{InputTokens: r.PromptEvalCount, OutputTokens: r.EvalCount},
		Model:        c.Name(),
		CreatedAt:    time.Now(),
	}
	if r.DoneReason == "length" {
		out.FinishReason = llm.FinishLength
	}
	for _, tc := range r.Message.ToolCalls {
		args := string(tc.Function.Arguments)
		if args == "" || args == "null" {
			args = "{}"
		}
		out.Message.ToolCalls = append(out.Message.ToolCalls, llm.ToolCall{
			ID:        "call_" + uuid.NewString(),
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	if len(out.Message.ToolCalls) > 0 {
		out.FinishReason = llm.FinishToolCalls
	}
	return out
}

func toMessages(msgs []llm.Message) []chatMessage {
	out := make([]chatMessage, 0, len(msgs))
	for _, m := range msgs {
		cm := chatMessage{Role: string(m.Role), Content: m.Content}
		for _, tc := range m.ToolCalls {
			var t toolCall
			t.Function.Name = tc.Name
			t.Function.Arguments = json.RawMessage(tc.Arguments)
			if !json.Valid(t.Function.Arguments) {
				t.Function.Arguments = json.RawMessage("{}")
			}
			cm.ToolCalls = append(cm.ToolCalls, t)
		}
		out = append(out, cm)
	}
	return out
}
