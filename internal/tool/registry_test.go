package tool

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeddict/jeddict/internal/llm"
	"github.com/jeddict/jeddict/internal/scanner"
)

func call(name string, args any) llm.ToolCall {
	raw, _ := json.Marshal(args)
	return llm.ToolCall{ID: "call_1", Name: name, Arguments: string(raw)}
}

func TestRegistrySpecsKeepOrder(t *testing.T) {
	ws := t.TempDir()
	reg := NewRegistry()
	RegisterCoreTools(reg, CoreOptions{Workspace: ws})

	var names []string
	for _, s := range reg.Specs() {
		names = append(names, s.Name)
		assert.Equal(t, "object", s.Parameters["type"], s.Name)
	}
	assert.Equal(t, []string{"read_file", "list_dir", "search_code", "edit_file", "create_file"}, names)

	assert.Error(t, RegisterReadFile(reg, ws), "duplicate registration")
}

func TestRegistryExecuteReportsToolErrors(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, RegisterReadFile(reg, t.TempDir()))

	out, err := reg.Execute(context.Background(), call("read_file", ReadFileArgs{Path: "missing.txt"}))
	require.NoError(t, err)
	assert.Equal(t, "Error: file not found: missing.txt", out)

	out, err = reg.Execute(context.Background(), llm.ToolCall{Name: "nope"})
	require.NoError(t, err)
	assert.Contains(t, out, `unknown tool "nope"`)
}

func TestEditFileNeedsApproval(t *testing.T) {
	ws := t.TempDir()
	path := filepath.Join(ws, "App.java")
	require.NoError(t, os.WriteFile(path, []byte("class App {\n    int v = 1;\n}\n"), 0o644))

	var proposals []*Proposal
	approve := false
	approver := ApproverFunc(func(_ context.Context, p *Proposal) (bool, error) {
		proposals = append(proposals, p)
		return approve, nil
	})
	var changed []string
	reg := NewRegistry(WithApprover(approver))
	require.NoError(t, RegisterEditFile(reg, ws, func(p string) { changed = append(changed, p) }))

	edit := call("edit_file", EditFileArgs{Path: "App.java", OldString: "int v = 1;", NewString: "int v = 2;"})
	out, err := reg.Execute(context.Background(), edit)
	require.NoError(t, err)
	assert.Contains(t, out, "declined")
	data, _ := os.ReadFile(path)
	assert.Contains(t, string(data), "int v = 1;")
	require.Len(t, proposals, 1)
	assert.Contains(t, proposals[0].Diff, "+    int v = 2;")

	approve = true
	out, err = reg.Execute(context.Background(), edit)
	require.NoError(t, err)
	assert.Contains(t, out, `"success": true`)
	data, _ = os.ReadFile(path)
	assert.Contains(t, string(data), "int v = 2;")
	assert.Equal(t, []string{path}, changed)

	// the old text is gone now
	out, err = reg.Execute(context.Background(), edit)
	require.NoError(t, err)
	assert.Contains(t, out, "STRING_NOT_FOUND")
}

func TestApproverErrorAborts(t *testing.T) {
	boom := errors.New("stdin closed")
	reg := NewRegistry(WithApprover(ApproverFunc(func(context.Context, *Proposal) (bool, error) { return false, boom })))
	require.NoError(t, RegisterCreateFile(reg, t.TempDir(), nil))

	_, err := reg.Execute(context.Background(), call("create_file", CreateFileArgs{Path: "a.txt", Content: "x"}))
	assert.ErrorIs(t, err, boom)
}

func TestCreateFileRefusesOverwrite(t *testing.T) {
	ws := t.TempDir()
	reg := NewRegistry(WithApprover(AutoApprove))
	require.NoError(t, RegisterCreateFile(reg, ws, nil))

	out, err := reg.Execute(context.Background(), call("create_file", CreateFileArgs{Path: "pkg/a.go", Content: "package pkg\n"}))
	require.NoError(t, err)
	assert.Contains(t, out, `"success": true`)

	out, err = reg.Execute(context.Background(), call("create_file", CreateFileArgs{Path: "pkg/a.go", Content: "package other\n"}))
	require.NoError(t, err)
	assert.Contains(t, out, "FILE_EXISTS")
}

func TestClassSkeletonTool(t *testing.T) {
	ws := t.TempDir()
	src := "package shop\n\n// Cart holds items.\ntype Cart struct {\n\tItems []Item\n\tsecret int\n}\n\ntype Item struct{}\n\nfunc (c *Cart) Total() int {\n\treturn len(c.Items)\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(ws, "cart.go"), []byte(src), 0o644))

	project, err := scanner.NewProject(ws)
	require.NoError(t, err)
	require.NoError(t, project.Scan(context.Background()))

	reg := NewRegistry()
	require.NoError(t, RegisterClassSkeleton(reg, project))

	byPath, err := reg.Execute(context.Background(), call("class_skeleton", ClassSkeletonArgs{Path: "cart.go"}))
	require.NoError(t, err)
	assert.Contains(t, byPath, "// cart.go\npackage shop")
	assert.Contains(t, byPath, "func (c *Cart) Total() int")
	assert.NotContains(t, byPath, "secret")
	assert.NotContains(t, byPath, "return len")
	assert.Contains(t, byPath, "// references: Cart, Item")

	byName, err := reg.Execute(context.Background(), call("class_skeleton", ClassSkeletonArgs{Name: "Cart"}))
	require.NoError(t, err)
	assert.Equal(t, byPath, byName)

	out, err := reg.Execute(context.Background(), call("class_skeleton", ClassSkeletonArgs{}))
	require.NoError(t, err)
	assert.Equal(t, "Error: either path or name is required", out)
}
