package editor

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// contextLines is the number of unchanged lines shown around each change.
const contextLines = 3

type diffLine struct {
	op   byte // ' ', '-', '+'
	text string
	old  int // 1-based line in the old content, 0 for inserts
	new  int // 1-based line in the new content, 0 for deletes
}

// UnifiedDiff renders a unified diff between two versions of fileName.
// It returns "" when the contents are equal.
func UnifiedDiff(oldContent, newContent, fileName string) string {
	if oldContent == newContent {
		return ""
	}
	lines := lineDiff(oldContent, newContent)

	var b strings.Builder
	oldName, newName := "a/"+fileName, "b/"+fileName
	if oldContent == "" {
		oldName = "/dev/null"
	}
	if newContent == "" {
		newName = "/dev/null"
	}
	fmt.Fprintf(&b, "--- %s\n+++ %s\n", oldName, newName)

	for _, h := range hunks(lines) {
		oldStart, oldLen, newStart, newLen := hunkHeader(lines[h[0]:h[1]])
		fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", oldStart, oldLen, newStart, newLen)
		for _, l := range lines[h[0]:h[1]] {
			b.WriteByte(l.op)
			b.WriteString(l.text)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// lineDiff computes a line-level diff with diffmatchpatch.
func lineDiff(oldContent, newContent string) []diffLine {
	dmp := diffmatchpatch.New()
	a, b, table := dmp.DiffLinesToChars(oldContent, newContent)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), table)

	var out []diffLine
	oldNum, newNum := 1, 1
	for _, d := range diffs {
		for _, text := range splitLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				out = append(out, diffLine{op: ' ', text: text, old: oldNum, new: newNum})
				oldNum++
				newNum++
			case diffmatchpatch.DiffDelete:
				out = append(out, diffLine{op: '-', text: text, old: oldNum})
				oldNum++
			case diffmatchpatch.DiffInsert:
				out = append(out, diffLine{op: '+', text: text, new: newNum})
				newNum++
			}
		}
	}
	return out
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.SplitAfter(s, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\n")
	}
	return parts
}

// hunks groups changed lines with their context into [start, end) windows.
func hunks(lines []diffLine) [][2]int {
	var out [][2]int
	for i := 0; i < len(lines); i++ {
		if lines[i].op == ' ' {
			continue
		}
		start := max(i-contextLines, 0)
		end := i
		for end < len(lines) {
			if lines[end].op != ' ' {
				end++
				continue
			}
			// stop once a run of unchanged lines is long enough to separate hunks
			run := end
			for run < len(lines) && lines[run].op == ' ' {
				run++
			}
			if run == len(lines) || run-end > 2*contextLines {
				end = min(end+contextLines, len(lines))
				break
			}
			end = run
		}
		if n := len(out); n > 0 && start <= out[n-1][1] {
			out[n-1][1] = end
		} else {
			out = append(out, [2]int{start, end})
		}
		i = end - 1
	}
	return out
}

func hunkHeader(lines []diffLine) (oldStart, oldLen, newStart, newLen int) {
	for _, l := range lines {
		if l.op != '+' {
			if oldStart == 0 {
				oldStart = l.old
			}
			oldLen++
		}
		if l.op != '-' {
			if newStart == 0 {
				newStart = l.new
			}
			newLen++
		}
	}
	return oldStart, oldLen, newStart, newLen
}

// DiffStats counts added and removed lines in a unified diff.
func DiffStats(diff string) (added, removed int) {
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			removed++
		}
	}
	return added, removed
}
