package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectRepositoryRoot(t *testing.T) {
	root := t.TempDir()
	_, err := git.PlainInit(root, false)
	require.NoError(t, err)
	sub := filepath.Join(root, "src", "main", "java")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	got, err := Detect(sub)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestDetectBuildFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "pom.xml"), []byte("<project/>"), 0o644))
	sub := filepath.Join(root, "src", "main")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	got, err := Detect(sub)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestEnsureDirAndDataDir(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	ws := t.TempDir()

	dir, err := EnsureDir(ws)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, "*\n", string(data))

	a, err := DataDir(ws)
	require.NoError(t, err)
	b, err := DataDir(ws + string(filepath.Separator))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	other, err := DataDir(t.TempDir())
	require.NoError(t, err)
	assert.NotEqual(t, a, other)
}
