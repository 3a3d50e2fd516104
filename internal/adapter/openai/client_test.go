package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeddict/jeddict/internal/llm"
)

type recorder struct {
	partials []string
	complete *llm.Response
	err      error
}

func (r *recorder) OnPartialResponse(t string)        { r.partials = append(r.partials, t) }
func (r *recorder) OnCompleteResponse(x *llm.Response) { r.complete = x }
func (r *recorder) OnError(err error)                  { r.err = err }

func sse(w http.ResponseWriter, payload string) {
	fmt.Fprintf(w, "data: %s\n\n", payload)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func TestStream_AssemblesToolCallFragments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["stream"])

		w.Header().Set("Content-Type", "text/event-stream")
		sse(w, `{"choices":[{"index":0,"delta":{"content":"Let me look"}}]}`)
		sse(w, `{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"read_file","arguments":"{\"pa"}}]}}]}`)
		sse(w, `{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"th\":\"A.java\"}"}}]}}]}`)
		sse(w, `{"choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`)
		sse(w, `[DONE]`)
	}))
	defer srv.Close()

	c := New("test-key", "gpt-4o", srv.URL+"/v1")
	rec := &recorder{}
	err := c.Stream(context.Background(), llm.Request{
		Messages: []llm.Message{llm.System("sys"), llm.User("read A")},
		Tools:    []llm.ToolSpec{{Name: "read_file", Parameters: map[string]any{"type": "object"}}},
	}, rec)
	require.NoError(t, err)
	require.NoError(t, rec.err)

	assert.Equal(t, []string{"Let me look"}, rec.partials)
	require.NotNil(t, rec.complete)
	assert.Equal(t, llm.FinishToolCalls, rec.complete.FinishReason)
	require.Len(t, rec.complete.Message.ToolCalls, 1)
	call := rec.complete.Message.ToolCalls[0]
	assert.Equal(t, "call_1", call.ID)
	assert.Equal(t, "read_file", call.Name)
	assert.JSONEq(t, `{"path":"A.java"}`, call.Arguments)
}

func TestChat_MapsUsageAndText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"x","model":"gpt-4o","choices":[{"index":0,"message":{"role":"assistant","content":"done"},"finish_reason":"stop"}],"usage":{"prompt_tokens":12,"completion_tokens":4,"total_tokens":16}}`)
	}))
	defer srv.Close()

	resp, err := New("k", "gpt-4o", srv.URL+"/v1").Chat(context.Background(), llm.Request{Messages: []llm.Message{llm.User("x")}})
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Text())
	assert.Equal(t, llm.FinishStop, resp.FinishReason)
	assert.Equal(t, llm.TokenUsage{InputTokens: 12, OutputTokens: 4}, resp.Usage)
}

func TestChat_ServerErrorIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	_, err := New("k", "gpt-4o", srv.URL+"/v1").Chat(context.Background(), llm.Request{Messages: []llm.Message{llm.User("x")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai chat")
}
