package brain

import (
	"context"

	"github.com/jeddict/jeddict/internal/llm"
	"github.com/jeddict/jeddict/internal/prompt"
)

// refinePrompt sits between consecutive prior answers so roles keep alternating.
const refinePrompt = "Refine the tests above."

// TestRequest describes the tests to generate for a class.
type TestRequest struct {
	Source Source
	// TestCase narrows what to test, e.g. a method name or a scenario.
	TestCase string
	// Framework is the test framework, e.g. "JUnit 5" or "Go testing with testify".
	Framework string
	// Prompt is an extra instruction; with history it is the follow-up request.
	Prompt string
}

// TestSpecialist generates unit tests, optionally continuing from earlier answers.
type TestSpecialist struct {
	b *Brain
}

// Messages builds the conversation for req. Prior responses are replayed as
// assistant turns after the original request, then the follow-up prompt is
// sent as the final user message.
func (t *TestSpecialist) Messages(req TestRequest, history []*llm.Response) []llm.Message {
	framework := req.Framework
	if framework == "" {
		framework = DefaultFramework(req.Source.Lang())
	}
	vars := t.b.vars(req.Source, prompt.Vars{
		prompt.TestCase:      req.TestCase,
		prompt.TestFramework: framework,
	})
	if len(history) == 0 {
		vars[prompt.Prompt] = req.Prompt
		return t.b.messages(prompt.TestSpecialist, vars, nil)
	}

	initial := t.b.messages(prompt.TestSpecialist, vars, nil)
	msgs := append([]llm.Message{}, initial...)
	for i, resp := range history {
		if resp == nil {
			continue
		}
		if i > 0 {
			msgs = append(msgs, llm.User(refinePrompt))
		}
		msgs = append(msgs, llm.Assistant(resp.Text()))
	}
	followUp := req.Prompt
	if followUp == "" {
		followUp = refinePrompt
	}
	return append(msgs, llm.User(followUp))
}

// DefaultFramework is the test framework assumed for lang.
func DefaultFramework(lang string) string {
	switch lang {
	case "Go":
		return "Go testing with testify"
	case "Kotlin":
		return "JUnit 5 with kotlin.test"
	default:
		return "JUnit 5"
	}
}

// GenerateTests streams the test file to l.
func (t *TestSpecialist) GenerateTests(ctx context.Context, req TestRequest, history []*llm.Response, l Listener) (*Exchange, error) {
	msgs := t.Messages(req, history)
	ex := &Exchange{User: msgs[len(msgs)-1]}
	resp, err := t.b.stream(ctx, prompt.TestSpecialist, msgs, l)
	if err != nil {
		return ex, err
	}
	ex.Response = resp
	return ex, nil
}
