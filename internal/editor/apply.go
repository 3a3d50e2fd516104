package editor

import (
	"fmt"
	"os"
	"path/filepath"
)

// ApplyEdit writes an edit plan to the filesystem. Existing files keep their
// permissions; new files and directories are created as needed.
func ApplyEdit(plan *EditPlan) error {
	if plan.IsDeletion {
		if err := os.Remove(plan.FilePath); err != nil {
			return fmt.Errorf("failed to delete file: %w", err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(plan.FilePath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(plan.FilePath); err == nil {
		mode = info.Mode().Perm()
	}

	// write through a temp file so a failed write never truncates the original
	tmp, err := os.CreateTemp(filepath.Dir(plan.FilePath), ".jeddict-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(plan.NewContent); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), plan.FilePath); err != nil {
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}

// Summary is a one-line description of the plan for prompts and logs.
func (p *EditPlan) Summary() string {
	added, removed := DiffStats(p.Diff)
	switch {
	case p.IsCreation:
		return fmt.Sprintf("create %s (%d lines)", p.FilePath, p.ChangedLines.EndLine)
	case p.IsDeletion:
		return fmt.Sprintf("delete %s", p.FilePath)
	default:
		return fmt.Sprintf("edit %s (+%d -%d, lines %d-%d)", p.FilePath, added, removed, p.ChangedLines.StartLine, p.ChangedLines.EndLine)
	}
}
