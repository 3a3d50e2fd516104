// Package workspace locates the project the user is working in.
package workspace

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jeddict/jeddict/internal/config"
	"github.com/jeddict/jeddict/internal/vcs"
)

// markers identify a project root when there is no repository.
var markers = []string{config.DirName, "pom.xml", "build.gradle", "build.gradle.kts", "settings.gradle", "go.mod"}

// Detect returns the workspace root for start: the enclosing git working
// tree, else the nearest directory holding a build file, else start itself.
func Detect(start string) (string, error) {
	if start == "" {
		pwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		start = pwd
	}
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	repo, err := vcs.Open(abs)
	switch {
	case err == nil:
		return repo.Root(), nil
	case !errors.Is(err, vcs.ErrNotRepository):
		return "", err
	}

	if root := findMarker(abs); root != "" {
		return root, nil
	}
	return abs, nil
}

// findMarker walks up the directory tree looking for a project marker.
func findMarker(start string) string {
	current := start
	for {
		for _, m := range markers {
			if _, err := os.Stat(filepath.Join(current, m)); err == nil {
				return current
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return ""
		}
		current = parent
	}
}

// EnsureDir creates <workspace>/.jeddict with a .gitignore that keeps its
// contents out of the repository.
func EnsureDir(workspacePath string) (string, error) {
	dir := config.ProjectDir(workspacePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	ignore := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(ignore); os.IsNotExist(err) {
		if err := os.WriteFile(ignore, []byte("*\n"), 0o644); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", ignore, err)
		}
	}
	return dir, nil
}

// DataDir returns ~/.jeddict/projects/<hash>, the per-project directory for
// state that must not live in the workspace.
func DataDir(workspacePath string) (string, error) {
	global, err := config.GlobalDir()
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(workspacePath)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(global, "projects", hex.EncodeToString(sum[:8])), nil
}
