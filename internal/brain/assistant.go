package brain

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeddict/jeddict/internal/editor"
	"github.com/jeddict/jeddict/internal/llm"
	"github.com/jeddict/jeddict/internal/prompt"
)

// AssistantSpecialist answers one-shot requests synchronously.
type AssistantSpecialist struct {
	b *Brain
}

func (a *AssistantSpecialist) ask(ctx context.Context, src Source, instruction string) (string, error) {
	vars := a.b.vars(src, prompt.Vars{prompt.Prompt: instruction})
	resp, err := a.b.chat(ctx, prompt.Assistant, a.b.messages(prompt.Assistant, vars, nil))
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// Ask answers a free-form question, optionally about src.
func (a *AssistantSpecialist) Ask(ctx context.Context, question string, src Source) (string, error) {
	return a.ask(ctx, src, question)
}

// AskStream is Ask delivered as listener events.
func (a *AssistantSpecialist) AskStream(ctx context.Context, question string, src Source, l Listener) (*llm.Response, error) {
	vars := a.b.vars(src, prompt.Vars{prompt.Prompt: question})
	return a.b.stream(ctx, prompt.Assistant, a.b.messages(prompt.Assistant, vars, nil), l)
}

func docStyle(lang string) string {
	switch lang {
	case "Go":
		return "a Go doc comment (// lines starting with the declared name)"
	case "Java", "":
		return "a Javadoc comment (/** ... */) with @param, @return and @throws tags where they apply"
	default:
		return "a " + lang + " documentation comment"
	}
}

// GenerateDocComment writes a documentation comment for the member in src.Code.
// The result is the bare comment, without surrounding code.
func (a *AssistantSpecialist) GenerateDocComment(ctx context.Context, src Source) (string, error) {
	instruction := fmt.Sprintf("Write %s for the following member. Describe behaviour, not implementation. Reply with the comment only.", docStyle(src.Lang()))
	out, err := a.ask(ctx, src, instruction)
	if err != nil {
		return "", err
	}
	return editor.ExtractComment(out), nil
}

// UpdateDocComment revises an existing comment so it matches the current code.
func (a *AssistantSpecialist) UpdateDocComment(ctx context.Context, src Source, existing string) (string, error) {
	instruction := fmt.Sprintf("The member below is documented with this comment:\n\n%s\n\nUpdate it to %s that matches the current code. Keep still-accurate wording. Reply with the comment only.",
		strings.TrimSpace(existing), docStyle(src.Lang()))
	out, err := a.ask(ctx, src, instruction)
	if err != nil {
		return "", err
	}
	return editor.ExtractComment(out), nil
}

// FixMethod returns a corrected version of the member in src.Code. compileErrors
// is the compiler or test output describing what is wrong; it may be empty.
func (a *AssistantSpecialist) FixMethod(ctx context.Context, src Source, compileErrors string) (string, error) {
	instruction := "Fix the bugs in the following member and return the complete corrected member."
	if strings.TrimSpace(compileErrors) != "" {
		instruction += "\n\nThe compiler reported:\n" + strings.TrimSpace(compileErrors)
	}
	out, err := a.ask(ctx, src, instruction)
	if err != nil {
		return "", err
	}
	return editor.ExtractCode(out), nil
}

// EnhanceMethod returns an improved version of the member: clearer, safer,
// idiomatic, with the same signature and behaviour.
func (a *AssistantSpecialist) EnhanceMethod(ctx context.Context, src Source, hint string) (string, error) {
	instruction := "Improve the following member for readability, robustness and idiomatic style. Keep its signature and observable behaviour. Return the complete member."
	if strings.TrimSpace(hint) != "" {
		instruction += "\n\nFocus on: " + strings.TrimSpace(hint)
	}
	out, err := a.ask(ctx, src, instruction)
	if err != nil {
		return "", err
	}
	return editor.ExtractCode(out), nil
}

// SuggestNames proposes better names for the symbol in src.Code, best first.
func (a *AssistantSpecialist) SuggestNames(ctx context.Context, src Source, kind string) ([]string, error) {
	if kind == "" {
		kind = "symbol"
	}
	instruction := fmt.Sprintf("Suggest up to five better names for this %s. Reply with one name per line and nothing else.", kind)
	out, err := a.ask(ctx, src, instruction)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, line := range strings.Split(editor.ExtractCode(out), "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*0123456789.)"))
		line = strings.Trim(line, "`")
		if line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}

// GenerateCommitMessage writes a commit message for diff.
func (a *AssistantSpecialist) GenerateCommitMessage(ctx context.Context, branch, diff string) (string, error) {
	instruction := "Write a git commit message for the change below: a short imperative subject line under 72 characters, a blank line, then a brief body explaining what changed. Reply with the message only."
	if branch != "" {
		instruction += "\n\nBranch: " + branch
	}
	out, err := a.ask(ctx, Source{Context: "```diff\n" + strings.TrimRight(diff, "\n") + "\n```"}, instruction)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(editor.ExtractCode(out)), nil
}
