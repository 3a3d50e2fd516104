package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_SubstitutesAndNormalizes(t *testing.T) {
	tmpl := "G={{globalRules}} P={{projectRules}} Q={{prompt}} C={{code}}"

	got := Render(tmpl, Vars{Prompt: "do it", GlobalRules: "  ", Code: "x := 1"})
	assert.Equal(t, "G=none P=none Q=do it C=x := 1", got)

	got = Render(tmpl, nil)
	assert.Equal(t, "G=none P=none Q= C=", got)
}

func TestRender_LeavesUnknownPlaceholders(t *testing.T) {
	got := Render("{{prompt}} {{mystery}}", Vars{Prompt: "hi"})
	assert.Equal(t, "hi {{mystery}}", got)

	got = Render("{{prompt}} {{mystery}}", Vars{Prompt: "hi", "mystery": "solved"})
	assert.Equal(t, "hi solved", got)
}

func TestRender_DoesNotExpandValues(t *testing.T) {
	got := Render("{{prompt}}|{{code}}", Vars{Prompt: "literal {{code}}", Code: "c"})
	assert.Equal(t, "literal {{code}}|c", got)
}

func TestRender_RepeatedPlaceholder(t *testing.T) {
	got := Render("{{fileName}} and {{fileName}}", Vars{FileName: "A.java"})
	assert.Equal(t, "A.java and A.java", got)
}

func TestEveryTemplateRendersWithoutLeftovers(t *testing.T) {
	c := NewCatalog()
	for _, s := range Specialists() {
		sys, user := c.Render(s, Vars{Prompt: "p"})
		for _, out := range []string{sys, user} {
			assert.NotContains(t, out, "{{", "%s left a placeholder", s)
		}
		assert.Contains(t, sys, "Global rules:\nnone", s.String())
		assert.Contains(t, sys, "Project rules:\nnone", s.String())
	}
}

func TestSpecialistNames(t *testing.T) {
	for _, s := range Specialists() {
		parsed, err := ParseSpecialist(strings.ToLower(s.String()))
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	s, err := ParseSpecialist("hacker-with-tools")
	require.NoError(t, err)
	assert.Equal(t, HackerWithTools, s)
	assert.Equal(t, "Hacker With Tools", s.DisplayName())

	_, err = ParseSpecialist("wizard of oz")
	assert.Error(t, err)
}

func TestLoadCatalog_Overrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
templates:
  hacker:
    system: "Custom {{projectRules}}"
`), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)

	sys, _ := c.Render(Hacker, Vars{ProjectRules: "use tabs"})
	assert.Equal(t, "Custom use tabs", sys)

	def, _ := Default(Hacker)
	assert.Equal(t, def.User, c.Template(Hacker).User)
	assert.Equal(t, []Specialist{Hacker}, c.Overridden())
	assert.Equal(t, path, c.Source(Hacker))
	assert.Equal(t, "builtin", c.Source(Assistant))
}

func TestLoadCatalog_MissingFileAndBadName(t *testing.T) {
	c, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, c.Overridden())

	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("templates:\n  pirate:\n    system: arr\n"), 0o644))
	_, err = LoadCatalog(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pirate")
}

func TestTidy(t *testing.T) {
	assert.Equal(t, "a\n\nb", Tidy(" a\n\n\n\n\nb \n"))
}

func TestCatalogRender_KeepsCodeVerbatim(t *testing.T) {
	code := "String s = \"\"\"\n    a\n\n\n\n    b\n    \"\"\";\n"

	_, user := NewCatalog().Render(Assistant, Vars{Code: code, Prompt: "explain"})
	assert.Contains(t, user, code)
}

func TestCatalogRender_DropsEmptySections(t *testing.T) {
	_, user := NewCatalog().Render(Assistant, Vars{Prompt: "what is the answer?"})
	assert.Equal(t, "what is the answer?", user)
}
