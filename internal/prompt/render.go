// Package prompt holds the assistant's role templates and renders them by
// plain placeholder substitution.
package prompt

import (
	"regexp"
	"slices"
	"strings"
)

// Placeholder names understood by the compiled-in templates.
const (
	GlobalRules   = "globalRules"
	ProjectRules  = "projectRules"
	Prompt        = "prompt"
	Code          = "code"
	Context       = "context"
	Language      = "language"
	FileName      = "fileName"
	TestCase      = "testCase"
	TestFramework = "testFramework"
)

// NoneSentinel replaces blank rule text so the model sees an explicit absence.
const NoneSentinel = "none"

// sentinels maps a placeholder to the value used when its input is blank.
// Placeholders not listed normalize to "".
var sentinels = map[string]string{
	GlobalRules:   NoneSentinel,
	ProjectRules:  NoneSentinel,
	TestCase:      NoneSentinel,
	Language:      "Java",
	TestFramework: "JUnit 5",
}

var known = []string{GlobalRules, ProjectRules, Prompt, Code, Context, Language, FileName, TestCase, TestFramework}

var placeholderRE = regexp.MustCompile(`\{\{([A-Za-z][A-Za-z0-9_]*)\}\}`)

// Vars are the values substituted into a template.
type Vars map[string]string

// Normalize returns the value used for placeholder name given raw input.
func Normalize(name, value string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return sentinels[name]
}

// Render substitutes every {{name}} token in tmpl. Known placeholders and
// names present in vars are replaced (blank values become their sentinel);
// any other token is left untouched. Substitution happens in one pass, so
// placeholder-like text inside a value is never expanded.
func Render(tmpl string, vars Vars) string {
	names := map[string]bool{}
	for _, n := range known {
		names[n] = true
	}
	for n := range vars {
		names[n] = true
	}

	var pairs []string
	for _, m := range placeholderRE.FindAllStringSubmatch(tmpl, -1) {
		name := m[1]
		if !names[name] {
			continue
		}
		pairs = append(pairs, m[0], Normalize(name, vars[name]))
		delete(names, name)
	}
	if len(pairs) == 0 {
		return tmpl
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func isKnown(name string, vars Vars) bool {
	_, ok := vars[name]
	return ok || slices.Contains(known, name)
}

// Placeholders lists the distinct placeholder names used in tmpl, in order of first use.
func Placeholders(tmpl string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range placeholderRE.FindAllStringSubmatch(tmpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// blankRunRE matches runs of empty lines left behind by empty sections.
var blankRunRE = regexp.MustCompile(`\n{3,}`)

// Tidy trims template text and collapses repeated blank lines. It runs
// before substitution so values pass through untouched.
func Tidy(s string) string {
	return strings.TrimSpace(blankRunRE.ReplaceAllString(s, "\n\n"))
}
