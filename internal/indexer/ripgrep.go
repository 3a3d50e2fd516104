// Package indexer searches workspace text with ripgrep, falling back to a
// built-in walker when rg is not installed.
package indexer

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// DefaultMaxResults bounds a search when no limit is given.
const DefaultMaxResults = 50

var skippedDirs = []string{"node_modules", ".git", "vendor", "target", "build", "dist", ".jeddict"}

// RipgrepMatch represents a single match.
type RipgrepMatch struct {
	Path      string `json:"path"`
	LineNum   int    `json:"line_number"`
	LineText  string `json:"line_text"`
	StartChar int    `json:"start_char,omitempty"`
	EndChar   int    `json:"end_char,omitempty"`
}

// RipgrepResult is a collection of matches.
type RipgrepResult struct {
	Matches   []RipgrepMatch `json:"matches"`
	Truncated bool           `json:"truncated,omitempty"`
}

// RipgrepIndexer searches a workspace.
type RipgrepIndexer struct {
	WorkspacePath string
	logger        *zap.Logger
	mu            sync.Mutex
	rgPath        string
}

// NewRipgrepIndexer creates a searcher rooted at workspacePath.
func NewRipgrepIndexer(workspacePath string, logger *zap.Logger) *RipgrepIndexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RipgrepIndexer{WorkspacePath: workspacePath, logger: logger, rgPath: "rg"}
}

// SetRipgrepPath sets a custom path to the ripgrep executable. An empty path
// forces the built-in walker.
func (rg *RipgrepIndexer) SetRipgrepPath(path string) {
	rg.mu.Lock()
	defer rg.mu.Unlock()
	rg.rgPath = path
}

// Search finds lines matching the case-insensitive regular expression query,
// optionally restricted to files matching the glob filePattern.
func (rg *RipgrepIndexer) Search(ctx context.Context, query, filePattern string, maxResults int) (*RipgrepResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("search query is empty")
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	rg.mu.Lock()
	rgPath := rg.rgPath
	rg.mu.Unlock()

	if rgPath != "" {
		if bin, err := exec.LookPath(rgPath); err == nil {
			return rg.searchRipgrep(ctx, bin, query, filePattern, maxResults)
		}
		rg.logger.Debug("ripgrep not found, using built-in search", zap.String("rg", rgPath))
	}
	return rg.searchWalk(ctx, query, filePattern, maxResults)
}

func (rg *RipgrepIndexer) searchRipgrep(ctx context.Context, bin, query, filePattern string, maxResults int) (*RipgrepResult, error) {
	args := []string{"--json", "--line-number", "-i"}
	if filePattern != "" {
		args = append(args, "--glob", filePattern)
	}
	for _, d := range skippedDirs {
		args = append(args, "--glob=!"+d+"/**")
	}
	args = append(args, "--", query, rg.WorkspacePath)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	cmd := exec.CommandContext(ctx, bin, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ripgrep: %w", err)
	}

	var result RipgrepResult
	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var msg rgMessage
		if err := json.Unmarshal(sc.Bytes(), &msg); err != nil || msg.Type != "match" {
			continue
		}
		if len(result.Matches) >= maxResults {
			result.Truncated = true
			cancel()
			break
		}
		rel, err := filepath.Rel(rg.WorkspacePath, msg.Data.Path.Text)
		if err != nil {
			rel = msg.Data.Path.Text
		}
		m := RipgrepMatch{
			Path:     filepath.ToSlash(rel),
			LineNum:  msg.Data.LineNumber,
			LineText: strings.TrimRight(msg.Data.Lines.Text, "\r\n"),
		}
		if len(msg.Data.Submatches) > 0 {
			m.StartChar = msg.Data.Submatches[0].Start
			m.EndChar = msg.Data.Submatches[0].End
		}
		result.Matches = append(result.Matches, m)
	}

	if err := cmd.Wait(); err != nil && !result.Truncated {
		// exit code 1 means no matches
		var ee *exec.ExitError
		if !errors.As(err, &ee) || ee.ExitCode() != 1 {
			return nil, fmt.Errorf("ripgrep search failed: %w", err)
		}
	}
	return &result, nil
}

type rgMessage struct {
	Type string `json:"type"`
	Data struct {
		Path struct {
			Text string `json:"text"`
		} `json:"path"`
		Lines struct {
			Text string `json:"text"`
		} `json:"lines"`
		LineNumber int `json:"line_number"`
		Submatches []struct {
			Start int `json:"start"`
			End   int `json:"end"`
		} `json:"submatches"`
	} `json:"data"`
}

// searchWalk is the built-in search used when ripgrep is unavailable.
func (rg *RipgrepIndexer) searchWalk(ctx context.Context, query, filePattern string, maxResults int) (*RipgrepResult, error) {
	re, err := regexp.Compile("(?i)" + query)
	if err != nil {
		re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(query))
	}

	var result RipgrepResult
	errStop := errors.New("stop")
	err = filepath.WalkDir(rg.WorkspacePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			for _, skip := range skippedDirs {
				if d.Name() == skip {
					return filepath.SkipDir
				}
			}
			return nil
		}
		rel, _ := filepath.Rel(rg.WorkspacePath, path)
		rel = filepath.ToSlash(rel)
		if filePattern != "" && !globMatch(filePattern, rel) {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil || strings.IndexByte(string(data), 0) >= 0 {
			return nil
		}
		for i, line := range strings.Split(string(data), "\n") {
			loc := re.FindStringIndex(line)
			if loc == nil {
				continue
			}
			if len(result.Matches) >= maxResults {
				result.Truncated = true
				return errStop
			}
			result.Matches = append(result.Matches, RipgrepMatch{
				Path:      rel,
				LineNum:   i + 1,
				LineText:  strings.TrimRight(line, "\r"),
				StartChar: loc[0],
				EndChar:   loc[1],
			})
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	sort.SliceStable(result.Matches, func(i, j int) bool { return result.Matches[i].Path < result.Matches[j].Path })
	return &result, nil
}

// globMatch matches a ripgrep-style glob against a slash separated path.
// Patterns without a slash match the base name.
func globMatch(pattern, rel string) bool {
	if !strings.Contains(pattern, "/") {
		ok, _ := filepath.Match(pattern, filepath.Base(rel))
		return ok
	}
	if strings.Contains(pattern, "**/") {
		prefix, suffix, _ := strings.Cut(pattern, "**/")
		if !strings.HasPrefix(rel, prefix) {
			return false
		}
		rest := strings.TrimPrefix(rel, prefix)
		parts := strings.Split(rest, "/")
		for i := range parts {
			if ok, _ := filepath.Match(suffix, strings.Join(parts[i:], "/")); ok {
				return true
			}
		}
		return false
	}
	ok, _ := filepath.Match(pattern, rel)
	return ok
}
