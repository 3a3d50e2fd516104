package vcs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) (string, *git.Worktree) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName("main")},
	})
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "App.java"), []byte("class App {\n    int v = 1;\n}\n"), 0o644))
	_, err = wt.Add("App.java")
	require.NoError(t, err)
	_, err = wt.Commit("feat: add app", &git.CommitOptions{
		Author: &object.Signature{Name: "Dev", Email: "dev@example.com", When: time.Unix(1700000000, 0)},
	})
	require.NoError(t, err)
	return dir, wt
}

func TestOpenFindsRootFromSubdirectory(t *testing.T) {
	dir, _ := initRepo(t)
	sub := filepath.Join(dir, "src", "main")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	r, err := Open(sub)
	require.NoError(t, err)
	assert.Equal(t, dir, r.Root())

	branch, err := r.Branch()
	require.NoError(t, err)
	assert.Equal(t, "main", branch)

	_, err = Open(t.TempDir())
	assert.ErrorIs(t, err, ErrNotRepository)
}

func TestStatusAndDiff(t *testing.T) {
	dir, wt := initRepo(t)
	r, err := Open(dir)
	require.NoError(t, err)

	status, err := r.Status()
	require.NoError(t, err)
	assert.True(t, status.IsClean)
	assert.Contains(t, status.FormatStatus(), "Working tree clean")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "App.java"), []byte("class App {\n    int v = 2;\n}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Notes.txt"), []byte("todo\n"), 0o644))

	status, err = r.Status()
	require.NoError(t, err)
	require.Len(t, status.Files, 2)
	assert.Equal(t, &FileStatus{Path: "App.java", Status: "modified", WorkTree: true}, status.Files[0])
	assert.Equal(t, "untracked", status.Files[1].Status)
	assert.Equal(t, 1, status.ModifiedCount)
	assert.Equal(t, 1, status.UntrackedCount)

	unstaged, err := r.Diff(false)
	require.NoError(t, err)
	assert.Contains(t, unstaged, "diff --git a/App.java b/App.java\n--- a/App.java\n+++ b/App.java\n")
	assert.Contains(t, unstaged, "-    int v = 1;\n+    int v = 2;\n")
	assert.Contains(t, unstaged, "--- /dev/null\n+++ b/Notes.txt\n@@ -0,0 +1,1 @@")

	staged, err := r.Diff(true)
	require.NoError(t, err)
	assert.Empty(t, staged)

	changes, err := r.ChangesDiff()
	require.NoError(t, err)
	assert.Equal(t, unstaged, changes)

	_, err = wt.Add("App.java")
	require.NoError(t, err)
	staged, err = r.Diff(true)
	require.NoError(t, err)
	assert.Contains(t, staged, "+    int v = 2;")
	assert.NotContains(t, staged, "Notes.txt")

	changes, err = r.ChangesDiff()
	require.NoError(t, err)
	assert.Equal(t, staged, changes)
}

func TestRecentCommits(t *testing.T) {
	dir, _ := initRepo(t)
	r, err := Open(dir)
	require.NoError(t, err)

	commits, err := r.RecentCommits(5)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, "feat: add app", commits[0].Message)
	assert.Equal(t, "Dev", commits[0].Author)
}
