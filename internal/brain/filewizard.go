package brain

import (
	"context"
	"errors"

	"github.com/jeddict/jeddict/internal/editor"
	"github.com/jeddict/jeddict/internal/llm"
	"github.com/jeddict/jeddict/internal/prompt"
)

// FileRequest describes a file to generate.
type FileRequest struct {
	// Path of the new file; its base name and extension pick the language.
	Path     string
	Prompt   string
	Language string
	// Context is project text the new file should fit, e.g. sibling skeletons.
	Context string
}

// FileWizardSpecialist generates whole source files.
type FileWizardSpecialist struct {
	b *Brain
}

func (f *FileWizardSpecialist) messages(req FileRequest) ([]llm.Message, error) {
	if req.Path == "" {
		return nil, errors.New("file wizard: file path is required")
	}
	src := Source{Path: req.Path, Language: req.Language, Context: req.Context}
	vars := f.b.vars(src, prompt.Vars{prompt.Prompt: req.Prompt})
	return f.b.messages(prompt.FileWizard, vars, nil), nil
}

// GenerateFile returns the content of the requested file.
func (f *FileWizardSpecialist) GenerateFile(ctx context.Context, req FileRequest) (string, error) {
	msgs, err := f.messages(req)
	if err != nil {
		return "", err
	}
	resp, err := f.b.chat(ctx, prompt.FileWizard, msgs)
	if err != nil {
		return "", err
	}
	return editor.ExtractCode(resp.Text()), nil
}

// StreamFile streams the generation to l; the caller extracts the content
// from the completed response.
func (f *FileWizardSpecialist) StreamFile(ctx context.Context, req FileRequest, l Listener) (*llm.Response, error) {
	msgs, err := f.messages(req)
	if err != nil {
		if l != nil {
			l.OnEvent(Event{Type: ChatError, Err: err})
		}
		return nil, err
	}
	return f.b.stream(ctx, prompt.FileWizard, msgs, l)
}
