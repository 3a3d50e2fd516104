package ollama

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

func TestStream_AssemblesTokensAndToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)
		assert.Len(t, req.Tools, 1)

		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"Hel"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"lo","tool_calls":[{"function":{"name":"read_file","arguments":{"path":"a.go"}}}]},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true,"prompt_eval_count":7,"eval_count":3}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "llama3", nil)
	rec := &recorder{}
	err := c.Stream(context.Background(), llm.Request{
		Messages: []llm.Message{llm.User("hi")},
		Tools:    []llm.ToolSpec{{Name: "read_file", Parameters: map[string]any{"type": "object"}}},
	}, rec)
	require.NoError(t, err)
	require.NoError(t, rec.err)

	assert.Equal(t, []string{"Hel", "lo"}, rec.partials)
	require.NotNil(t, rec.complete)
	assert.Equal(t, "Hello", rec.complete.Text())
	assert.Equal(t, llm.FinishToolCalls, rec.complete.FinishReason)
	require.Len(t, rec.complete.Message.ToolCalls, 1)
	assert.Equal(t, "read_file", rec.complete.Message.ToolCalls[0].Name)
	assert.JSONEq(t, `{"path":"a.go"}`, rec.complete.Message.ToolCalls[0].Arguments)
	assert.Equal(t, 10, rec.complete.Usage.Total())
}

func TestStream_TruncatedStreamIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"partial"},"done":false}`)
	}))
	defer srv.Close()

	rec := &recorder{}
	err := New(srv.URL, "llama3", nil).Stream(context.Background(), llm.Request{Messages: []llm.Message{llm.User("hi")}}, rec)
	require.Error(t, err)
	assert.Equal(t, err, rec.err)
	assert.Nil(t, rec.complete)
}

func TestChat_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "missing", nil).Chat(context.Background(), llm.Request{Messages: []llm.Message{llm.User("hi")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "model not found")
}

func TestChat_Plain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message":{"role":"assistant","content":"pong"},"done":true,"done_reason":"stop"}`)
	}))
	defer srv.Close()

	resp, err := New(srv.URL, "llama3", nil).Chat(context.Background(), llm.Request{Messages: []llm.Message{llm.User("ping")}})
	require.NoError(t, err)
	assert.Equal(t, "pong", resp.Text())
	assert.Equal(t, llm.FinishStop, resp.FinishReason)
	assert.Equal(t, "ollama:llama3", resp.Model)
}
