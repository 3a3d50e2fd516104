// Package tool exposes workspace operations to tool-calling models. Safe
// tools run directly; unsafe ones return a Proposal that an Approver must
// accept before it is applied.
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/jeddict/jeddict/internal/llm"
)

// Definition describes a tool that can be invoked by the model.
type Definition struct {
	Name        string
	Description string
	JSONSchema  map[string]any
	Safe        bool // true = no user confirmation required
	Handler     func(ctx context.Context, raw json.RawMessage) (any, error)
}

// Proposal is the result of an unsafe tool: a change described but not yet
// made.
type Proposal struct {
	Tool    string
	Summary string
	Diff    string
	Apply   func(ctx context.Context) (any, error)
}

// Approver decides whether a proposed change may be applied.
type Approver interface {
	Approve(ctx context.Context, p *Proposal) (bool, error)
}

// ApproverFunc adapts a function to Approver.
type ApproverFunc func(ctx context.Context, p *Proposal) (bool, error)

func (f ApproverFunc) Approve(ctx context.Context, p *Proposal) (bool, error) { return f(ctx, p) }

var (
	// AutoApprove accepts every proposal.
	AutoApprove Approver = ApproverFunc(func(context.Context, *Proposal) (bool, error) { return true, nil })
	// DenyAll rejects every proposal.
	DenyAll Approver = ApproverFunc(func(context.Context, *Proposal) (bool, error) { return false, nil })
)

// Registry manages the available tools.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]Definition
	order    []string
	approver Approver
	logger   *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithApprover sets who accepts unsafe proposals. The default denies them.
func WithApprover(a Approver) Option {
	return func(r *Registry) {
		if a != nil {
			r.approver = a
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry creates an empty tool registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		tools:    make(map[string]Definition),
		approver: DenyAll,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool to the registry.
func (r *Registry) Register(def Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("tool %q already registered", def.Name)
	}
	if def.Handler == nil {
		return errors.New("tool handler cannot be nil")
	}
	if def.JSONSchema == nil {
		def.JSONSchema = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	r.tools[def.Name] = def
	r.order = append(r.order, def.Name)
	return nil
}

// Get retrieves a tool definition by name.
func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tools[name]
	return def, ok
}

// Tools returns the registered definitions in registration order.
func (r *Registry) Tools() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name])
	}
	return defs
}

// Specs describes the tools to the model.
func (r *Registry) Specs() []llm.ToolSpec {
	defs := r.Tools()
	specs := make([]llm.ToolSpec, len(defs))
	for i, d := range defs {
		specs[i] = llm.ToolSpec{Name: d.Name, Description: d.Description, Parameters: d.JSONSchema}
	}
	return specs
}

// Invoke executes a tool by name with the given arguments.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (any, error) {
	def, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	// tools with only optional parameters are often called with no arguments
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	return def.Handler(ctx, args)
}

// Execute runs a model tool call. Tool failures and declined proposals are
// reported to the model as text; only a failing approver aborts the call.
func (r *Registry) Execute(ctx context.Context, call llm.ToolCall) (string, error) {
	result, err := r.Invoke(ctx, call.Name, json.RawMessage(call.Arguments))
	if err != nil {
		r.logger.Debug("tool failed", zap.String("tool", call.Name), zap.Error(err))
		return fmt.Sprintf("Error: %v", err), nil
	}

	if p, ok := result.(*Proposal); ok {
		r.mu.RLock()
		approver := r.approver
		r.mu.RUnlock()

		approved, err := approver.Approve(ctx, p)
		if err != nil {
			return "", fmt.Errorf("approve %s: %w", call.Name, err)
		}
		if !approved {
			r.logger.Info("proposal declined", zap.String("tool", call.Name), zap.String("summary", p.Summary))
			return fmt.Sprintf("The user declined: %s. Do not retry the same change.", p.Summary), nil
		}
		result, err = p.Apply(ctx)
		if err != nil {
			return fmt.Sprintf("Error: %v", err), nil
		}
		r.logger.Info("proposal applied", zap.String("tool", call.Name), zap.String("summary", p.Summary))
	}
	return render(result), nil
}

func render(result any) string {
	switch v := result.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Sprintf("%v", result)
		}
		return string(data)
	}
}
