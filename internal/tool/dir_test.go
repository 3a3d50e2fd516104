package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListDirSortsAndHidesDotEntries(t *testing.T) {
	ws := javaProject(t)
	reg := NewRegistry()
	require.NoError(t, RegisterListDir(reg, ws))

	r, err := invoke[*ListDirResult](t, reg, "list_dir", ListDirArgs{})
	require.NoError(t, err)
	assert.True(t, r.IsDir)
	assert.Equal(t, ".", r.Path)

	var names []string
	for _, e := range r.Entries {
		names = append(names, e.Name)
	}
	// directories first, .jeddict hidden
	assert.Equal(t, []string{"src", "README.md", "pom.xml"}, names)
	assert.True(t, r.Entries[0].IsDir)
	assert.Zero(t, r.Entries[0].Size)
	assert.Equal(t, int64(len("<project/>\n")), r.Entries[2].Size)
	assert.NotEmpty(t, r.Entries[2].ModTime)
}

func TestListDirOnFile(t *testing.T) {
	ws := javaProject(t)
	reg := NewRegistry()
	require.NoError(t, RegisterListDir(reg, ws))

	r, err := invoke[*ListDirResult](t, reg, "list_dir", ListDirArgs{Path: "src/main/java/shop/Order.java"})
	require.NoError(t, err)
	assert.False(t, r.IsDir)
	require.Len(t, r.Entries, 1)
	assert.Equal(t, "Order.java", r.Entries[0].Name)

	_, err = invoke[*ListDirResult](t, reg, "list_dir", ListDirArgs{Path: "nope"})
	assert.ErrorContains(t, err, "failed to access path")
}
