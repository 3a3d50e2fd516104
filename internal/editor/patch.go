package editor

import (
	"fmt"
	"os"
	"strings"

	"github.com/jeddict/jeddict/internal/scanner"
)

// MemberPatch rewrites src around one located member.
type MemberPatch func(src string, m scanner.Member) (string, error)

// PatchMember plans an edit of a single member of filePath. The member is
// found by name, optionally qualified as Owner.Name, or by line when line is
// positive.
func PatchMember(workspacePath, filePath, name string, line int, patch MemberPatch) (*EditPlan, error) {
	absPath, err := ResolvePath(workspacePath, filePath)
	if err != nil {
		return nil, err
	}
	if !scanner.Supported(absPath) {
		return nil, ValidationError{Message: fmt.Sprintf("Cannot locate members in %s", filePath), Code: CodeUnsupportedLang}
	}
	src, err := os.ReadFile(absPath)
	if err != nil {
		return nil, ValidationError{Message: fmt.Sprintf("Failed to read file: %v", err), Code: CodeFileAccess}
	}
	data, err := scanner.Parse(absPath, src)
	if err != nil {
		return nil, ValidationError{Message: err.Error(), Code: CodeUnsupportedLang}
	}
	m, err := data.FindMember(name, line)
	if err != nil {
		return nil, ValidationError{Message: err.Error(), Code: CodeMemberNotFound}
	}
	updated, err := patch(string(src), m)
	if err != nil {
		return nil, err
	}
	return ProposeContent(workspacePath, absPath, updated)
}

// SetDocComment attaches comment to m, replacing the member's existing
// documentation comment or inserting it above the member.
func SetDocComment(comment string) MemberPatch {
	return func(src string, m scanner.Member) (string, error) {
		comment = strings.TrimSpace(comment)
		if comment == "" {
			return "", ValidationError{Message: "Empty documentation comment", Code: CodeNoChange}
		}
		if m.Start < 0 || m.Start > len(src) {
			return "", ValidationError{Message: "Member position is outside the file", Code: CodeMemberNotFound}
		}
		indent := lineIndent(src, m.Start)
		text := reindent(comment, indent)
		if m.HasDoc() {
			return src[:m.DocStart] + strings.TrimPrefix(text, indent) + src[m.DocEnd:], nil
		}
		return src[:m.Start] + strings.TrimPrefix(text, indent) + "\n" + indent + src[m.Start:], nil
	}
}

// ReplaceWith swaps the source of m for code, re-indented to the member's
// column. When code carries its own leading comment it also replaces the
// member's documentation.
func ReplaceWith(code string) MemberPatch {
	return func(src string, m scanner.Member) (string, error) {
		code = strings.TrimSpace(code)
		if code == "" {
			return "", ValidationError{Message: "Empty replacement", Code: CodeNoChange}
		}
		if m.Start < 0 || m.End > len(src) || m.Start >= m.End {
			return "", ValidationError{Message: "Member position is outside the file", Code: CodeMemberNotFound}
		}
		start := m.Start
		if m.HasDoc() && (strings.HasPrefix(code, "/*") || strings.HasPrefix(code, "//")) {
			start = m.DocStart
		}
		indent := lineIndent(src, start)
		text := strings.TrimPrefix(reindent(code, indent), indent)
		return src[:start] + text + src[m.End:], nil
	}
}

// lineIndent returns the leading whitespace of the line containing offset.
func lineIndent(src string, offset int) string {
	lineStart := strings.LastIndexByte(src[:offset], '\n') + 1
	i := lineStart
	for i < len(src) && (src[i] == ' ' || src[i] == '\t') {
		i++
	}
	return src[lineStart:i]
}

// reindent removes the common indentation of text and prefixes every
// non-blank line with indent.
func reindent(text, indent string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	common := -1
	for i, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		// the first line usually lost its indentation when the answer was trimmed
		if i == 0 && len(lines) > 1 {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " \t"))
		if common < 0 || n < common {
			common = n
		}
	}
	if common < 0 {
		common = 0
	}
	block := strings.HasPrefix(strings.TrimSpace(lines[0]), "/*")
	for i, l := range lines {
		t := strings.TrimLeft(l, " \t")
		switch {
		case strings.TrimSpace(l) == "":
			lines[i] = ""
		case block && i > 0 && strings.HasPrefix(t, "*"):
			// javadoc continuation lines align under the opening star
			lines[i] = indent + " " + t
		case i == 0:
			lines[i] = indent + t
		default:
			lines[i] = indent + l[min(common, len(l)-len(t)):]
		}
	}
	return strings.Join(lines, "\n")
}
