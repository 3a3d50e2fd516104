package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/jeddict/jeddict/internal/editor"
)

// RunCommandArgs describes a command the model wants to run.
type RunCommandArgs struct {
	// Shell runs Command through "sh -c".
	Shell bool `json:"shell,omitempty"`
	// Command is the binary, or the full command line when Shell is set.
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
	// Cwd is resolved within the workspace and defaults to its root.
	Cwd            string `json:"cwd,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// ShellResult captures stdout, stderr and exit code.
type ShellResult struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   int    `json:"exit_code"`
	DurationMs int    `json:"duration_ms"`
	Cwd        string `json:"cwd"`
}

// maxOutput bounds each captured stream returned to the model.
const maxOutput = 32 * 1024

// RegisterRunCommand registers run_command. Every invocation is a proposal
// the approver must accept.
func RegisterRunCommand(registry *Registry, workspacePath string) error {
	return registry.Register(Definition{
		Name:        "run_command",
		Description: "Run a command in the workspace, for example the build or the tests. The user must approve it.",
		Safe:        false,
		JSONSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"shell": map[string]any{
					"type":        "boolean",
					"description": "If true, run via system shell using 'sh -c' with the given command string.",
				},
				"command": map[string]any{
					"type":        "string",
					"description": "Binary to execute (shell=false) or full command string (shell=true)",
				},
				"args": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Arguments to pass to the binary (ignored when shell=true)",
				},
				"cwd": map[string]any{
					"type":        "string",
					"description": "Working directory relative to the workspace root",
				},
				"timeout_seconds": map[string]any{
					"type":        "integer",
					"description": "Maximum execution time in seconds (default 60, max 600)",
				},
			},
			"required": []string{"command"},
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args RunCommandArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, fmt.Errorf("failed to parse arguments: %w", err)
			}
			if strings.TrimSpace(args.Command) == "" {
				return nil, errors.New("command is required")
			}
			cwd := workspacePath
			if args.Cwd != "" {
				var err error
				if cwd, err = editor.ResolvePath(workspacePath, args.Cwd); err != nil {
					return nil, fmt.Errorf("invalid cwd: %w", err)
				}
			}

			line := args.Command
			if !args.Shell && len(args.Args) > 0 {
				line += " " + strings.Join(args.Args, " ")
			}
			return &Proposal{
				Tool:    "run_command",
				Summary: "run `" + line + "`",
				Diff:    fmt.Sprintf("cwd: %s\ntimeout: %ds\n$ %s\n", cwd, normalizeTimeout(args.TimeoutSeconds), line),
				Apply: func(ctx context.Context) (any, error) {
					return runCommand(ctx, cwd, args)
				},
			}, nil
		},
	})
}

func runCommand(ctx context.Context, cwd string, args RunCommandArgs) (*ShellResult, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(normalizeTimeout(args.TimeoutSeconds))*time.Second)
	defer cancel()

	var cmd *exec.Cmd
	if args.Shell {
		cmd = exec.CommandContext(ctx, "sh", "-c", args.Command)
	} else {
		cmd = exec.CommandContext(ctx, args.Command, args.Args...)
	}
	cmd.Dir = cwd

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	exitCode := 0
	if runErr != nil {
		var ee *exec.ExitError
		if !errors.As(runErr, &ee) {
			if ctx.Err() == nil {
				return nil, fmt.Errorf("failed to start command: %w", runErr)
			}
			exitCode = -1
		} else {
			exitCode = ee.ExitCode()
		}
	}

	return &ShellResult{
		Stdout:     truncate(stdout.String(), maxOutput),
		Stderr:     truncate(stderr.String(), maxOutput),
		ExitCode:   exitCode,
		DurationMs: int(duration / time.Millisecond),
		Cwd:        cwd,
	}, nil
}

func normalizeTimeout(seconds int) int {
	if seconds <= 0 {
		return 60
	}
	if seconds > 600 {
		return 600
	}
	return seconds
}

// truncate keeps the tail of s, where build tools print their failures.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "...(truncated)\n" + s[len(s)-n:]
}
