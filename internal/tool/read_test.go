package tool

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderJava = `package shop;

public class Order {
    private int total;
}`

func javaProject(t *testing.T) string {
	t.Helper()
	ws := t.TempDir()
	files := map[string]string{
		"src/main/java/shop/Order.java": orderJava,
		"pom.xml":                       "<project/>\n",
		"README.md":                     "# shop\n",
		".jeddict/config.toml":          "model = \"ollama:llama3\"\n",
	}
	for rel, content := range files {
		path := filepath.Join(ws, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return ws
}

func invoke[T any](t *testing.T, reg *Registry, name string, args any) (T, error) {
	t.Helper()
	var zero T
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	res, err := reg.Invoke(context.Background(), name, raw)
	if err != nil {
		return zero, err
	}
	out, ok := res.(T)
	require.Truef(t, ok, "unexpected result type %T", res)
	return out, nil
}

func TestReadFileNumbersLines(t *testing.T) {
	ws := javaProject(t)
	reg := NewRegistry()
	require.NoError(t, RegisterReadFile(reg, ws))

	r, err := invoke[*ReadFileResult](t, reg, "read_file", ReadFileArgs{Path: "src/main/java/shop/Order.java"})
	require.NoError(t, err)
	assert.Equal(t, "java", r.Language)
	assert.Equal(t, 5, r.Lines)
	assert.True(t, strings.HasPrefix(r.Content, "L1: package shop;\nL2: \nL3: public class Order {"), r.Content)
	assert.True(t, strings.HasSuffix(r.Content, "L5: }"), r.Content)
}

func TestReadFileWindow(t *testing.T) {
	ws := javaProject(t)
	reg := NewRegistry()
	require.NoError(t, RegisterReadFile(reg, ws))

	r, err := invoke[*ReadFileResult](t, reg, "read_file", ReadFileArgs{Path: "src/main/java/shop/Order.java", Offset: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, "L3: public class Order {\nL4:     private int total;", r.Content)

	raw := false
	r, err = invoke[*ReadFileResult](t, reg, "read_file", ReadFileArgs{Path: "src/main/java/shop/Order.java", Offset: 3, Limit: 1, IncludeLineNumbers: &raw})
	require.NoError(t, err)
	assert.Equal(t, "    private int total;", r.Content)

	_, err = invoke[*ReadFileResult](t, reg, "read_file", ReadFileArgs{Path: "src/main/java/shop/Order.java", Offset: 9})
	assert.ErrorContains(t, err, "beyond the file length (5 lines)")
}

func TestReadFileRejects(t *testing.T) {
	ws := javaProject(t)
	reg := NewRegistry()
	require.NoError(t, RegisterReadFile(reg, ws))

	for name, tc := range map[string]struct {
		path string
		want string
	}{
		"empty":     {"  ", "path is required"},
		"missing":   {"Missing.java", "file not found: Missing.java"},
		"directory": {"src", "src is a directory"},
		"outside":   {"../etc/passwd", ""},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := invoke[*ReadFileResult](t, reg, "read_file", ReadFileArgs{Path: tc.path})
			require.Error(t, err)
			if tc.want != "" {
				assert.Contains(t, err.Error(), tc.want)
			}
		})
	}
}

func TestDetectLanguage(t *testing.T) {
	for path, want := range map[string]string{
		"Order.java":             "java",
		"cart.go":                "go",
		"pom.xml":                "xml",
		"build.gradle":           "gradle",
		"application.properties": "properties",
		"application.yml":        "yaml",
		"schema.sql":             "sql",
		"notes.txt":              "text",
	} {
		assert.Equal(t, want, detectLanguage(path), path)
	}
}
