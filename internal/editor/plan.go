// Package editor turns model answers into file changes: it extracts code from
// replies, patches members in place, plans edits with diffs and applies them.
package editor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LineRange is an inclusive, 1-based range of lines.
type LineRange struct {
	StartLine int
	EndLine   int
}

// EditPlan is a validated, not yet applied, change to one file.
type EditPlan struct {
	FilePath     string
	OldContent   string
	NewContent   string
	Diff         string
	IsCreation   bool
	IsDeletion   bool
	ChangedLines LineRange
}

// Validation error codes.
const (
	CodePathTraversal   = "PATH_TRAVERSAL"
	CodeFileAccess      = "FILE_ACCESS_ERROR"
	CodeIsDirectory     = "IS_DIRECTORY"
	CodeFileNotExist    = "FILE_NOT_EXIST"
	CodeFileExists      = "FILE_EXISTS"
	CodeEmptyOldString  = "EMPTY_OLD_STRING"
	CodeStringNotFound  = "STRING_NOT_FOUND"
	CodeAmbiguous       = "AMBIGUOUS_REPLACEMENT"
	CodeNoChange        = "NO_CHANGE"
	CodeMemberNotFound  = "MEMBER_NOT_FOUND"
	CodeUnsupportedLang = "UNSUPPORTED_LANGUAGE"
)

// ValidationError explains why an edit was rejected.
type ValidationError struct {
	Message string
	Code    string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s (code: %s)", e.Message, e.Code)
}

// HasCode reports whether err is a ValidationError with the given code.
func HasCode(err error, code string) bool {
	var ve ValidationError
	return errors.As(err, &ve) && ve.Code == code
}

// ProposeEdit plans replacing the single occurrence of oldString with
// newString. An empty oldString on a missing file creates it; empty old and
// new strings on an existing file delete it.
func ProposeEdit(workspacePath, filePath, oldString, newString string) (*EditPlan, error) {
	absPath, err := ResolvePath(workspacePath, filePath)
	if err != nil {
		return nil, err
	}

	oldContent, exists, err := readExisting(absPath)
	if err != nil {
		return nil, err
	}

	if !exists {
		if oldString != "" {
			return nil, ValidationError{Message: "Cannot replace text in a file that doesn't exist", Code: CodeFileNotExist}
		}
		return creationPlan(absPath, newString), nil
	}

	if newString == "" && oldString == "" {
		return &EditPlan{
			FilePath:     absPath,
			OldContent:   oldContent,
			Diff:         UnifiedDiff(oldContent, "", filepath.Base(absPath)),
			IsDeletion:   true,
			ChangedLines: LineRange{StartLine: 1, EndLine: lineCount(oldContent)},
		}, nil
	}

	if oldString == "" {
		return nil, ValidationError{Message: "Old string cannot be empty for existing files", Code: CodeEmptyOldString}
	}
	count := strings.Count(oldContent, oldString)
	switch {
	case count == 0:
		return nil, ValidationError{Message: "Old string not found in file", Code: CodeStringNotFound}
	case count > 1:
		return nil, ValidationError{
			Message: fmt.Sprintf("Old string occurs %d times, replacement is ambiguous", count),
			Code:    CodeAmbiguous,
		}
	}

	offset := strings.Index(oldContent, oldString)
	newContent := oldContent[:offset] + newString + oldContent[offset+len(oldString):]
	return ProposeContent(workspacePath, filePath, newContent)
}

// ProposeContent plans replacing the whole content of a file, creating it
// when missing. Used for generated files and in-place member patches.
func ProposeContent(workspacePath, filePath, newContent string) (*EditPlan, error) {
	absPath, err := ResolvePath(workspacePath, filePath)
	if err != nil {
		return nil, err
	}
	oldContent, exists, err := readExisting(absPath)
	if err != nil {
		return nil, err
	}
	if !exists {
		return creationPlan(absPath, newContent), nil
	}
	if oldContent == newContent {
		return nil, ValidationError{Message: "Edit does not change the file", Code: CodeNoChange}
	}
	return &EditPlan{
		FilePath:     absPath,
		OldContent:   oldContent,
		NewContent:   newContent,
		Diff:         UnifiedDiff(oldContent, newContent, filepath.Base(absPath)),
		ChangedLines: changedRange(oldContent, newContent),
	}, nil
}

// ProposeCreate plans creating a new file and fails if it already exists.
func ProposeCreate(workspacePath, filePath, content string) (*EditPlan, error) {
	absPath, err := ResolvePath(workspacePath, filePath)
	if err != nil {
		return nil, err
	}
	if _, exists, err := readExisting(absPath); err != nil {
		return nil, err
	} else if exists {
		return nil, ValidationError{Message: fmt.Sprintf("%s already exists", filePath), Code: CodeFileExists}
	}
	return creationPlan(absPath, content), nil
}

func creationPlan(absPath, content string) *EditPlan {
	return &EditPlan{
		FilePath:     absPath,
		NewContent:   content,
		Diff:         UnifiedDiff("", content, filepath.Base(absPath)),
		IsCreation:   true,
		ChangedLines: LineRange{StartLine: 1, EndLine: lineCount(content)},
	}
}

func readExisting(absPath string) (string, bool, error) {
	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, ValidationError{Message: fmt.Sprintf("Failed to access file: %v", err), Code: CodeFileAccess}
	}
	if info.IsDir() {
		return "", false, ValidationError{Message: "Cannot edit a directory", Code: CodeIsDirectory}
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return "", false, ValidationError{Message: fmt.Sprintf("Failed to read file: %v", err), Code: CodeFileAccess}
	}
	return string(data), true, nil
}

// ResolvePath makes filePath absolute and rejects paths outside the workspace.
func ResolvePath(workspacePath, filePath string) (string, error) {
	root := filepath.Clean(workspacePath)
	absPath := filePath
	if !filepath.IsAbs(absPath) {
		absPath = filepath.Join(root, filePath)
	}
	absPath = filepath.Clean(absPath)

	rel, err := filepath.Rel(root, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ValidationError{Message: "File path must be within the workspace", Code: CodePathTraversal}
	}
	return absPath, nil
}

func lineCount(s string) int {
	return 1 + strings.Count(s, "\n")
}

// changedRange finds the first and last differing lines of the new content.
func changedRange(oldContent, newContent string) LineRange {
	a := strings.Split(oldContent, "\n")
	b := strings.Split(newContent, "\n")
	start := 0
	for start < len(a) && start < len(b) && a[start] == b[start] {
		start++
	}
	endA, endB := len(a)-1, len(b)-1
	for endA >= start && endB >= start && a[endA] == b[endB] {
		endA--
		endB--
	}
	if endB < start {
		endB = start
	}
	return LineRange{StartLine: start + 1, EndLine: endB + 1}
}
