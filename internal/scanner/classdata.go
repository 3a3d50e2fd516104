// Package scanner extracts signature-only skeletons and referenced type
// names from Java and Go sources, and caches them per project.
package scanner

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Language of a scanned source file.
type Language string

const (
	Java    Language = "java"
	Go      Language = "go"
	Unknown Language = ""
)

// LanguageOf returns the language of path by extension.
func LanguageOf(path string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".java":
		return Java
	case ".go":
		return Go
	default:
		return Unknown
	}
}

// Supported reports whether path can be scanned.
func Supported(path string) bool { return LanguageOf(path) != Unknown }

// ClassData is the cached summary of one source file.
type ClassData struct {
	Path     string
	Language Language
	Package  string
	Imports  []string
	// Types are the simple names of the types declared in the file.
	Types []string
	// Skeleton is the file reduced to non-private signatures without bodies.
	Skeleton string
	// Referenced are the type names used by declarations in the file.
	Referenced []string
	Members    []Member
	ModTime    time.Time
	Size       int64
}

// MemberKind classifies a declaration.
type MemberKind string

const (
	KindType        MemberKind = "type"
	KindMethod      MemberKind = "method"
	KindConstructor MemberKind = "constructor"
	KindField       MemberKind = "field"
	KindFunction    MemberKind = "function"
)

// Member locates a declaration in its source file. Offsets are byte offsets
// into the source; Start includes annotations and modifiers.
type Member struct {
	Name      string
	Owner     string // enclosing type, "" for top level
	Kind      MemberKind
	Signature string
	Start     int
	End       int
	// DocStart and DocEnd delimit the attached documentation comment; both are -1 when there is none.
	DocStart int
	DocEnd   int
	Line     int // 1-based line of Start
	EndLine  int
	Private  bool
}

// QualifiedName is Owner.Name, or Name for top level members.
func (m Member) QualifiedName() string {
	if m.Owner == "" {
		return m.Name
	}
	return m.Owner + "." + m.Name
}

// HasDoc reports whether the member has a documentation comment.
func (m Member) HasDoc() bool { return m.DocStart >= 0 && m.DocEnd > m.DocStart }

// Parse builds the ClassData of a file from its source.
func Parse(path string, src []byte) (*ClassData, error) {
	switch LanguageOf(path) {
	case Java:
		return parseJava(path, src)
	case Go:
		return parseGo(path, src)
	default:
		return nil, fmt.Errorf("scanner: unsupported file type %q", filepath.Ext(path))
	}
}

// FindMember returns the member called name, which may be qualified as
// Owner.Name. When line is positive, the member spanning that line wins.
func (c *ClassData) FindMember(name string, line int) (Member, error) {
	var matches []Member
	for _, m := range c.Members {
		if line > 0 && (line < m.Line || line > m.EndLine) {
			continue
		}
		if name == "" || m.Name == name || m.QualifiedName() == name {
			matches = append(matches, m)
		}
	}
	if line > 0 && name == "" && len(matches) > 0 {
		// innermost member spanning the line
		best := matches[0]
		for _, m := range matches[1:] {
			if m.End-m.Start < best.End-best.Start {
				best = m
			}
		}
		return best, nil
	}
	switch len(matches) {
	case 0:
		if line > 0 {
			return Member{}, fmt.Errorf("no member %q at line %d in %s", name, line, c.Path)
		}
		return Member{}, fmt.Errorf("no member %q in %s", name, c.Path)
	case 1:
		return matches[0], nil
	default:
		lines := make([]string, len(matches))
		for i, m := range matches {
			lines[i] = fmt.Sprintf("%s (line %d)", m.QualifiedName(), m.Line)
		}
		return Member{}, fmt.Errorf("member %q is ambiguous in %s, pass a line: %s", name, c.Path, strings.Join(lines, ", "))
	}
}
