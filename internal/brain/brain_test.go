package brain

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jeddict/jeddict/internal/llm"
	"github.com/jeddict/jeddict/internal/llm/llmtest"
	"github.com/jeddict/jeddict/internal/prompt"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type events struct {
	mu  sync.Mutex
	all []Event
}

func (e *events) OnEvent(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.all = append(e.all, ev)
}

func (e *events) types() []EventType {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]EventType, len(e.all))
	for i, ev := range e.all {
		out[i] = ev.Type
	}
	return out
}

func (e *events) terminals() int {
	n := 0
	for _, t := range e.types() {
		if t.Terminal() {
			n++
		}
	}
	return n
}

type fakeTools struct {
	calls []llm.ToolCall
	out   string
	err   error
}

func (f *fakeTools) Specs() []llm.ToolSpec {
	return []llm.ToolSpec{{Name: "read_file", Parameters: map[string]any{"type": "object"}}}
}

func (f *fakeTools) Execute(ctx context.Context, call llm.ToolCall) (string, error) {
	f.calls = append(f.calls, call)
	return f.out, f.err
}

type maskSecrets struct{}

func (maskSecrets) Redact(s string) string { return strings.ReplaceAll(s, "secret", "[REDACTED]") }

func TestAssistantAsk_RendersRulesAndReturnsText(t *testing.T) {
	m := llmtest.New(llmtest.Text("forty-two"))
	b := New(m, WithRules(Rules{Global: "be brief", Project: ""}))

	out, err := b.Assistant().Ask(context.Background(), "what is the answer?", Source{})
	require.NoError(t, err)
	assert.Equal(t, "forty-two", out)

	req := m.LastRequest()
	require.Len(t, req.Messages, 2)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "Global rules:\nbe brief")
	assert.Contains(t, req.Messages[0].Content, "Project rules:\nnone")
	assert.Equal(t, "what is the answer?", req.Messages[1].Content)
	assert.Empty(t, req.Tools)
}

func TestAssistant_ErrorsPassThrough(t *testing.T) {
	boom := errors.New("quota exceeded")
	b := New(llmtest.New(llmtest.Turn{Err: boom}))
	_, err := b.Assistant().Ask(context.Background(), "q", Source{})
	require.ErrorIs(t, err, boom)
}

func TestAssistant_FixMethodExtractsCode(t *testing.T) {
	m := llmtest.New(llmtest.Text("Here you go:\n```java\nint twice(int x) { return x * 2; }\n```\nDone."))
	b := New(m)
	out, err := b.Assistant().FixMethod(context.Background(), Source{Path: "A.java", Code: "int twice(int x) { return x + 2; }"}, "test failed: expected 4")
	require.NoError(t, err)
	assert.Equal(t, "int twice(int x) { return x * 2; }", out)

	user := m.LastRequest().Messages[1].Content
	assert.Contains(t, user, "expected 4")
	assert.Contains(t, user, "```java\nint twice(int x) { return x + 2; }\n```")
}

func TestAssistant_GenerateDocComment(t *testing.T) {
	m := llmtest.New(llmtest.Text("```java\n/**\n * Doubles x.\n */\n```"))
	out, err := New(m).Assistant().GenerateDocComment(context.Background(), Source{Path: "A.java", Code: "int twice(int x)"})
	require.NoError(t, err)
	assert.Equal(t, "/**\n * Doubles x.\n */", out)
	assert.Contains(t, m.LastRequest().Messages[1].Content, "Javadoc")
}

func TestAssistant_SuggestNames(t *testing.T) {
	m := llmtest.New(llmtest.Text("1. computeTotal\n2. `sumLines`\n- total\n"))
	names, err := New(m).Assistant().SuggestNames(context.Background(), Source{Code: "int f()"}, "method")
	require.NoError(t, err)
	assert.Equal(t, []string{"computeTotal", "sumLines", "total"}, names)
}

func TestAssistant_RedactsCode(t *testing.T) {
	m := llmtest.New(llmtest.Text("ok"))
	b := New(m, WithRedactor(maskSecrets{}))
	_, err := b.Assistant().Ask(context.Background(), "explain", Source{Code: `key = "secret"`, Context: "secret too"})
	require.NoError(t, err)
	user := m.LastRequest().Messages[1].Content
	assert.NotContains(t, user, "secret")
	assert.Contains(t, user, "[REDACTED]")
}

func TestHackerStream_PartialsThenOneCompleted(t *testing.T) {
	m := llmtest.New(llmtest.Turn{Tokens: []string{"Hel", "lo", "!"}})
	ev := &events{}
	ex, err := New(m).Hacker().Chat(context.Background(), nil, "hi", Source{}, ev)
	require.NoError(t, err)

	want := []EventType{ChatPartial, ChatPartial, ChatPartial, ChatCompleted}
	if diff := cmp.Diff(want, ev.types()); diff != "" {
		t.Fatalf("event order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "Hello!", ex.Response.Text())
	assert.Equal(t, "Hello!", ev.all[3].Response.Text())
	assert.Equal(t, llm.RoleUser, ex.User.Role)
}

func TestHackerStream_ErrorIsTerminal(t *testing.T) {
	boom := errors.New("connection reset")
	m := llmtest.New(llmtest.Turn{Tokens: []string{"a", "b", "c"}, Err: boom, ErrAfter: 2})
	ev := &events{}
	_, err := New(m).Hacker().Chat(context.Background(), nil, "hi", Source{}, ev)
	require.ErrorIs(t, err, boom)

	assert.Equal(t, []EventType{ChatPartial, ChatPartial, ChatError}, ev.types())
	assert.ErrorIs(t, ev.all[2].Err, boom)
}

func TestHackerStream_HistoryPlacedBeforeUser(t *testing.T) {
	m := llmtest.New(llmtest.Text("second"))
	history := []llm.Message{llm.User("first question"), llm.Assistant("first answer")}
	_, err := New(m).Hacker().Chat(context.Background(), history, "follow up", Source{}, nil)
	require.NoError(t, err)

	msgs := m.LastRequest().Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, "first question", msgs[1].Content)
	assert.Equal(t, "first answer", msgs[2].Content)
	assert.Equal(t, "follow up", msgs[3].Content)
}

func TestHackerRoleSelection(t *testing.T) {
	assert.Equal(t, prompt.Hacker, New(llmtest.New()).Hacker().Role())
	assert.Equal(t, prompt.HackerWithTools, New(llmtest.New(), WithTools(&fakeTools{})).Hacker().Role())

	noTools := llmtest.New()
	noTools.NoTools = true
	assert.Equal(t, prompt.HackerWithoutTools, New(noTools, WithTools(&fakeTools{})).Hacker().Role())
}

func TestHackerWithTools_RunsToolLoop(t *testing.T) {
	m := llmtest.New(
		llmtest.Turn{
			Tokens:    []string{"Looking."},
			ToolCalls: []llm.ToolCall{{ID: "c1", Name: "read_file", Arguments: `{path: 'A.java',}`}},
		},
		llmtest.Turn{Tokens: []string{"It ", "returns 1."}},
	)
	tools := &fakeTools{out: "L1: class A {}"}
	ev := &events{}

	ex, err := New(m, WithTools(tools)).Hacker().Chat(context.Background(), nil, "what does A do?", Source{}, ev)
	require.NoError(t, err)

	want := []EventType{ChatPartial, ChatIntermediate, ToolBeforeExecution, ToolExecuted, ChatPartial, ChatPartial, ChatCompleted}
	if diff := cmp.Diff(want, ev.types()); diff != "" {
		t.Fatalf("event order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, ev.terminals())

	require.Len(t, tools.calls, 1)
	assert.JSONEq(t, `{"path":"A.java"}`, tools.calls[0].Arguments)
	assert.Equal(t, "L1: class A {}", ev.all[3].ToolResult)

	reqs := m.Requests()
	require.Len(t, reqs, 2)
	assert.NotEmpty(t, reqs[0].Tools)
	last := reqs[1].Messages
	assert.Equal(t, llm.RoleAssistant, last[len(last)-2].Role)
	assert.Equal(t, llm.RoleTool, last[len(last)-1].Role)
	assert.Equal(t, "c1", last[len(last)-1].ToolCallID)

	assert.Equal(t, "It returns 1.", ex.Response.Text())
	require.Len(t, ex.Steps, 2)
	assert.Len(t, ex.Messages(), 4)
}

func TestHackerWithTools_RoundLimit(t *testing.T) {
	call := llm.ToolCall{ID: "c", Name: "read_file", Arguments: "{}"}
	m := llmtest.New(
		llmtest.Turn{ToolCalls: []llm.ToolCall{call}},
		llmtest.Turn{ToolCalls: []llm.ToolCall{call}},
	)
	ev := &events{}
	_, err := New(m, WithTools(&fakeTools{}), WithMaxToolRounds(1)).Hacker().Chat(context.Background(), nil, "loop", Source{}, ev)
	require.ErrorIs(t, err, ErrToolLimit)

	types := ev.types()
	assert.Equal(t, ChatError, types[len(types)-1])
	assert.Equal(t, 1, ev.terminals())
}

func TestHackerWithTools_ToolFailureAborts(t *testing.T) {
	boom := errors.New("approval channel closed")
	m := llmtest.New(llmtest.Turn{ToolCalls: []llm.ToolCall{{ID: "c", Name: "read_file"}}})
	ev := &events{}
	_, err := New(m, WithTools(&fakeTools{err: boom})).Hacker().Chat(context.Background(), nil, "x", Source{}, ev)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []EventType{ChatIntermediate, ToolBeforeExecution, ChatError}, ev.types())
}

type silentModel struct{ llmtest.Model }

func (*silentModel) Stream(ctx context.Context, req llm.Request, h llm.StreamHandler) error {
	h.OnPartialResponse("half")
	return nil
}

func TestStream_MissingTerminalBecomesError(t *testing.T) {
	ev := &events{}
	_, err := New(&silentModel{}).Hacker().Chat(context.Background(), nil, "x", Source{}, ev)
	require.ErrorIs(t, err, ErrNoTerminal)
	assert.Equal(t, []EventType{ChatPartial, ChatError}, ev.types())
}

type doubleModel struct{ llmtest.Model }

func (*doubleModel) Stream(ctx context.Context, req llm.Request, h llm.StreamHandler) error {
	h.OnCompleteResponse(&llm.Response{Message: llm.Assistant("done")})
	h.OnPartialResponse("late")
	err := errors.New("late failure")
	h.OnError(err)
	return err
}

func TestStream_OnlyFirstTerminalIsDelivered(t *testing.T) {
	ev := &events{}
	resp, err := New(&doubleModel{}).Hacker().Chat(context.Background(), nil, "x", Source{}, ev)
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Response.Text())
	assert.Equal(t, []EventType{ChatCompleted}, ev.types())
}

func TestFileWizard(t *testing.T) {
	m := llmtest.New(llmtest.Text("```java\npackage demo;\n\npublic class Greeter {}\n```"))
	out, err := New(m).FileWizard().GenerateFile(context.Background(), FileRequest{Path: "src/main/java/demo/Greeter.java", Prompt: "a greeter"})
	require.NoError(t, err)
	assert.Equal(t, "package demo;\n\npublic class Greeter {}", out)
	assert.Contains(t, m.LastRequest().Messages[0].Content, "Greeter.java")

	_, err = New(m).FileWizard().GenerateFile(context.Background(), FileRequest{})
	assert.Error(t, err)
}

func TestTestSpecialist_ReplaysHistory(t *testing.T) {
	m := llmtest.New(llmtest.Text("v3"))
	ts := New(m).TestSpecialist()
	req := TestRequest{
		Source:    Source{Path: "Calc.java", Code: "class Calc {}"},
		TestCase:  "division by zero",
		Framework: "JUnit 5",
		Prompt:    "add a test for negative numbers",
	}
	history := []*llm.Response{
		{Message: llm.Assistant("v1")},
		{Message: llm.Assistant("v2")},
	}
	ex, err := ts.GenerateTests(context.Background(), req, history, nil)
	require.NoError(t, err)
	assert.Equal(t, "v3", ex.Response.Text())

	msgs := m.LastRequest().Messages
	roles := make([]llm.Role, len(msgs))
	for i, msg := range msgs {
		roles[i] = msg.Role
	}
	assert.Equal(t, []llm.Role{llm.RoleSystem, llm.RoleUser, llm.RoleAssistant, llm.RoleUser, llm.RoleAssistant, llm.RoleUser}, roles)
	assert.Contains(t, msgs[0].Content, "JUnit 5")
	assert.Contains(t, msgs[1].Content, "division by zero")
	assert.NotContains(t, msgs[1].Content, "negative numbers")
	assert.Equal(t, "add a test for negative numbers", msgs[5].Content)
}

func TestTestSpecialist_FirstTurnIncludesPrompt(t *testing.T) {
	ts := New(llmtest.New()).TestSpecialist()
	msgs := ts.Messages(TestRequest{Source: Source{Path: "calc.go", Code: "func Add(a, b int) int"}, Prompt: "table driven"}, nil)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Content, "Go code")
	assert.Contains(t, msgs[1].Content, "table driven")
	assert.Contains(t, msgs[1].Content, "Test case focus:\nnone")
}
