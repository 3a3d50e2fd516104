package tool

import (
	"go.uber.org/zap"

	"github.com/jeddict/jeddict/internal/indexer"
	"github.com/jeddict/jeddict/internal/scanner"
	"github.com/jeddict/jeddict/internal/vcs"
)

// CoreOptions selects the tools offered for a workspace.
type CoreOptions struct {
	Workspace string
	Project   *scanner.Project // enables class_skeleton and cache invalidation
	Repo      *vcs.Repository  // enables git_status and git_diff
	Shell     bool             // enables run_command
	Logger    *zap.Logger
}

// RegisterCoreTools registers every tool available for the workspace. A tool
// that fails to register is logged and skipped.
func RegisterCoreTools(registry *Registry, opts CoreOptions) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	check := func(name string, err error) {
		if err != nil {
			logger.Warn("failed to register tool", zap.String("tool", name), zap.Error(err))
		}
	}

	var onChange ChangeHook
	if opts.Project != nil {
		onChange = opts.Project.Invalidate
	}

	check("read_file", RegisterReadFile(registry, opts.Workspace))
	check("list_dir", RegisterListDir(registry, opts.Workspace))
	check("search_code", RegisterSearchCode(registry, indexer.NewRipgrepIndexer(opts.Workspace, logger)))
	if opts.Project != nil {
		check("class_skeleton", RegisterClassSkeleton(registry, opts.Project))
	}
	check("edit_file", RegisterEditFile(registry, opts.Workspace, onChange))
	check("create_file", RegisterCreateFile(registry, opts.Workspace, onChange))
	if opts.Repo != nil {
		check("git", RegisterGitTools(registry, opts.Repo))
	}
	if opts.Shell {
		check("run_command", RegisterRunCommand(registry, opts.Workspace))
	}
}
