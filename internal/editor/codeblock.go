package editor

import (
	"regexp"
	"strings"
)

// CodeBlock is one fenced block from a markdown answer.
type CodeBlock struct {
	Lang string
	Code string
}

var fenceRE = regexp.MustCompile("(?s)```([A-Za-z0-9_+#.-]*)[ \t]*\r?\n(.*?)\r?\n?```")

// ExtractBlocks returns the fenced code blocks of a markdown answer in order.
func ExtractBlocks(answer string) []CodeBlock {
	var out []CodeBlock
	for _, m := range fenceRE.FindAllStringSubmatch(answer, -1) {
		out = append(out, CodeBlock{Lang: strings.ToLower(m[1]), Code: m[2]})
	}
	return out
}

// ExtractCode returns the largest fenced block of answer, or the trimmed
// answer when it has no fences. Models often wrap a single block in chatter.
func ExtractCode(answer string) string {
	blocks := ExtractBlocks(answer)
	if len(blocks) == 0 {
		s := strings.TrimSpace(answer)
		// an unterminated fence still yields its body
		if strings.HasPrefix(s, "```") {
			if nl := strings.IndexByte(s, '\n'); nl >= 0 {
				return strings.TrimSpace(s[nl+1:])
			}
		}
		return s
	}
	best := blocks[0]
	for _, b := range blocks[1:] {
		if len(b.Code) > len(best.Code) {
			best = b
		}
	}
	return strings.TrimRight(best.Code, " \t\r\n")
}

// ExtractComment returns the documentation comment contained in answer:
// a /** */ or /* */ block, or a run of // lines.
func ExtractComment(answer string) string {
	text := ExtractCode(answer)
	if i := strings.Index(text, "/*"); i >= 0 {
		if j := strings.Index(text[i:], "*/"); j >= 0 {
			return text[i : i+j+2]
		}
	}
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "//") {
			lines = append(lines, t)
		} else if len(lines) > 0 {
			break
		}
	}
	if len(lines) > 0 {
		return strings.Join(lines, "\n")
	}
	return text
}
