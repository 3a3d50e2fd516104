// Package brain renders role prompts and dispatches them to a chat model,
// synchronously or as a stream of listener events.
package brain

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jeddict/jeddict/internal/llm"
	"github.com/jeddict/jeddict/internal/prompt"
)

// DefaultMaxToolRounds bounds how many times a tool-using answer may loop
// back to the model before the call fails.
const DefaultMaxToolRounds = 25

// ErrToolLimit is reported when the model keeps requesting tools past the limit.
var ErrToolLimit = errors.New("brain: tool round limit reached")

// ErrNoTerminal is reported when a model stream ends without completing or failing.
var ErrNoTerminal = errors.New("brain: stream ended without a final response")

// ToolSet executes the tools offered to a tool-calling specialist.
type ToolSet interface {
	Specs() []llm.ToolSpec
	// Execute runs call and returns the text handed back to the model. Tool
	// failures are reported in the text; an error aborts the conversation.
	Execute(ctx context.Context, call llm.ToolCall) (string, error)
}

// Redactor masks sensitive text before it leaves the machine.
type Redactor interface {
	Redact(text string) string
}

// Rules are the user-level and project-level instructions added to every prompt.
type Rules struct {
	Global  string
	Project string
}

// Source is a piece of code the request is about.
type Source struct {
	Path     string
	Language string // derived from Path when empty
	Code     string
	// Context is supporting text such as skeletons of referenced types.
	Context string
}

// Lang returns the display name of the source language.
func (s Source) Lang() string {
	if s.Language != "" {
		return s.Language
	}
	return LanguageOf(s.Path)
}

// LanguageOf maps a file path to a language display name. Unknown extensions yield "".
func LanguageOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".java":
		return "Java"
	case ".go":
		return "Go"
	case ".kt":
		return "Kotlin"
	case ".js", ".mjs":
		return "JavaScript"
	case ".ts", ".tsx":
		return "TypeScript"
	case ".py":
		return "Python"
	default:
		return ""
	}
}

// Brain is the specialist factory. It holds the chat model and the prompt
// inputs shared by all roles; specialists are created per request.
type Brain struct {
	model         llm.ChatModel
	catalog       *prompt.Catalog
	rules         Rules
	tools         ToolSet
	redactor      Redactor
	language      string
	temperature   *float64
	maxToolRounds int
	logger        *zap.Logger
}

// Option configures a Brain.
type Option func(*Brain)

func WithCatalog(c *prompt.Catalog) Option { return func(b *Brain) { b.catalog = c } }

func WithRules(r Rules) Option { return func(b *Brain) { b.rules = r } }

// WithTools enables the tool-using hacker when the model supports tool calls.
func WithTools(t ToolSet) Option { return func(b *Brain) { b.tools = t } }

func WithRedactor(r Redactor) Option { return func(b *Brain) { b.redactor = r } }

// WithLanguage sets the language used when a request does not name one.
func WithLanguage(lang string) Option { return func(b *Brain) { b.language = lang } }

func WithTemperature(t float64) Option { return func(b *Brain) { b.temperature = &t } }

func WithMaxToolRounds(n int) Option {
	return func(b *Brain) {
		if n > 0 {
			b.maxToolRounds = n
		}
	}
}

func WithLogger(l *zap.Logger) Option { return func(b *Brain) { b.logger = l } }

// New returns a Brain dispatching to model.
func New(model llm.ChatModel, opts ...Option) *Brain {
	b := &Brain{
		model:         model,
		catalog:       prompt.NewCatalog(),
		maxToolRounds: DefaultMaxToolRounds,
		logger:        zap.NewNop(),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Model returns the bound chat model.
func (b *Brain) Model() llm.ChatModel { return b.model }

// Assistant returns the one-shot assistant.
func (b *Brain) Assistant() *AssistantSpecialist {
	return &AssistantSpecialist{b: b}
}

// Hacker returns the conversational specialist. It uses tools when a tool set
// was configured and the model can call tools, tells the model it has no
// tools when a tool set was configured but the model cannot use it, and is
// the plain hacker otherwise.
func (b *Brain) Hacker() *HackerSpecialist {
	role := prompt.Hacker
	if b.tools != nil {
		if b.model.Capabilities().Tools {
			role = prompt.HackerWithTools
		} else {
			role = prompt.HackerWithoutTools
		}
	}
	return &HackerSpecialist{b: b, role: role}
}

// FileWizard returns the file generator.
func (b *Brain) FileWizard() *FileWizardSpecialist {
	return &FileWizardSpecialist{b: b}
}

// TestSpecialist returns the unit test generator.
func (b *Brain) TestSpecialist() *TestSpecialist {
	return &TestSpecialist{b: b}
}

// vars fills the placeholders shared by every template.
func (b *Brain) vars(src Source, extra prompt.Vars) prompt.Vars {
	lang := src.Lang()
	if lang == "" {
		lang = b.language
	}
	v := prompt.Vars{
		prompt.GlobalRules:  b.rules.Global,
		prompt.ProjectRules: b.rules.Project,
		prompt.Language:     lang,
		prompt.Code:         fence(b.redact(src.Code), lang),
		prompt.Context:      b.redact(src.Context),
		prompt.FileName:     filepath.Base(src.Path),
	}
	if src.Path == "" {
		v[prompt.FileName] = ""
	}
	for k, val := range extra {
		v[k] = val
	}
	return v
}

func (b *Brain) redact(s string) string {
	if b.redactor == nil || s == "" {
		return s
	}
	return b.redactor.Redact(s)
}

// fence wraps code in a markdown block tagged with the language.
func fence(code, lang string) string {
	if strings.TrimSpace(code) == "" {
		return ""
	}
	tag := strings.ToLower(lang)
	return "```" + tag + "\n" + strings.TrimRight(code, "\n") + "\n```"
}

// messages renders role's template and places history between the system and user message.
func (b *Brain) messages(role prompt.Specialist, vars prompt.Vars, history []llm.Message) []llm.Message {
	system, user := b.catalog.Render(role, vars)
	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.System(system))
	msgs = append(msgs, history...)
	msgs = append(msgs, llm.User(user))
	return msgs
}

func (b *Brain) request(msgs []llm.Message, tools []llm.ToolSpec) llm.Request {
	return llm.Request{Messages: msgs, Tools: tools, Temperature: b.temperature}
}
