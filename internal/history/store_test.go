package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeddict/jeddict/internal/llm"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", DBName))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func TestAppendAndReplay(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	sess, err := s.Create(ctx, KindChat, "explain Order", "openai:gpt-4o", "")
	require.NoError(t, err)
	require.Len(t, sess.ID, 36)

	call := llm.ToolCall{ID: "c1", Name: "read_file", Arguments: `{"path":"Order.java"}`}
	turn := []llm.Message{
		llm.User("what does Order do?"),
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{call}},
		llm.ToolResult(call, "class Order {}"),
		llm.Assistant("It is an empty class."),
	}
	require.NoError(t, s.Append(ctx, sess.ID, turn, llm.TokenUsage{InputTokens: 100, OutputTokens: 20}))
	require.NoError(t, s.Append(ctx, sess.ID, []llm.Message{llm.User("thanks"), llm.Assistant("Anytime.")}, llm.TokenUsage{InputTokens: 50, OutputTokens: 5}))

	msgs, err := s.Messages(ctx, sess.ID)
	require.NoError(t, err)
	want := append(append([]llm.Message{}, turn...), llm.User("thanks"), llm.Assistant("Anytime."))
	if diff := cmp.Diff(want, msgs); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}

	responses, err := s.Responses(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, responses, 2)
	assert.Equal(t, "It is an empty class.", responses[0].Text())

	got, err := s.Get(ctx, sess.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, 6, got.Messages)
	assert.Equal(t, 150, got.InputTokens)
	assert.Equal(t, 25, got.OutputTokens)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
}

func TestLatestListDelete(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	first, err := s.Create(ctx, KindTest, "tests", "m", "src/Order.java")
	require.NoError(t, err)
	second, err := s.Create(ctx, KindTest, "tests", "m", "src/Cart.java")
	require.NoError(t, err)
	chat, err := s.Create(ctx, KindChat, "chat", "m", "")
	require.NoError(t, err)

	latest, err := s.Latest(ctx, KindTest, "")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	latest, err = s.Latest(ctx, KindTest, "src/Order.java")
	require.NoError(t, err)
	assert.Equal(t, first.ID, latest.ID)

	_, err = s.Latest(ctx, KindTest, "src/None.java")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, chat.ID, all[0].ID)

	require.NoError(t, s.Append(ctx, first.ID, []llm.Message{llm.User("x")}, llm.TokenUsage{}))
	require.NoError(t, s.Delete(ctx, first.ID))
	_, err = s.Get(ctx, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, first.ID), ErrNotFound)
	assert.ErrorIs(t, s.Append(ctx, first.ID, nil, llm.TokenUsage{}), ErrNotFound)
}
