package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const rulesFile = "rules.json"

// LoadRules reads both user and project rules.
// User rules live at $HOME/.jeddict/rules.json
// Project rules live at <workspace>/.jeddict/rules.json
func LoadRules(workspacePath string) (userRules []string, projectRules []string, _ error) {
	u, err := loadUserRules()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("failed to load user rules: %w", err)
	}
	var p []string
	if workspacePath != "" {
		p, err = readRulesFile(projectRulesPath(workspacePath))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("failed to load project rules: %w", err)
		}
	}
	return normalizeRules(u), normalizeRules(p), nil
}

// SaveUserRules writes user rules to $HOME/.jeddict/rules.json
func SaveUserRules(rules []string) error {
	path, err := userRulesPath()
	if err != nil {
		return err
	}
	return writeRulesFile(path, normalizeRules(rules), 0o600)
}

// SaveProjectRules writes project rules to <workspace>/.jeddict/rules.json
func SaveProjectRules(workspacePath string, rules []string) error {
	if workspacePath == "" {
		return errors.New("workspace path is empty")
	}
	return writeRulesFile(projectRulesPath(workspacePath), normalizeRules(rules), 0o644)
}

// AddRule appends rule to the user or project list unless already present.
func AddRule(workspacePath, rule string, global bool) error {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return errors.New("rule is empty")
	}
	user, project, err := LoadRules(workspacePath)
	if err != nil {
		return err
	}
	if global {
		if contains(user, rule) {
			return nil
		}
		return SaveUserRules(append(user, rule))
	}
	if contains(project, rule) {
		return nil
	}
	return SaveProjectRules(workspacePath, append(project, rule))
}

// RemoveRule deletes the 1-based index from the user or project list.
func RemoveRule(workspacePath string, index int, global bool) (string, error) {
	user, project, err := LoadRules(workspacePath)
	if err != nil {
		return "", err
	}
	rules := project
	if global {
		rules = user
	}
	if index < 1 || index > len(rules) {
		return "", fmt.Errorf("no rule #%d (%d rules)", index, len(rules))
	}
	removed := rules[index-1]
	rules = append(rules[:index-1:index-1], rules[index:]...)
	if global {
		return removed, SaveUserRules(rules)
	}
	return removed, SaveProjectRules(workspacePath, rules)
}

// FormatRules renders rules as a bulleted list for prompts. An empty list
// renders as "".
func FormatRules(rules []string) string {
	if len(rules) == 0 {
		return ""
	}
	var b strings.Builder
	for i, r := range rules {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- " + r)
	}
	return b.String()
}

func contains(rules []string, rule string) bool {
	for _, r := range rules {
		if r == rule {
			return true
		}
	}
	return false
}

func loadUserRules() ([]string, error) {
	path, err := userRulesPath()
	if err != nil {
		return nil, err
	}
	return readRulesFile(path)
}

func userRulesPath() (string, error) {
	dir, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, rulesFile), nil
}

func projectRulesPath(workspacePath string) string {
	workspacePath = expandUserHome(workspacePath)
	if abs, err := filepath.Abs(workspacePath); err == nil {
		workspacePath = abs
	}
	return filepath.Join(ProjectDir(workspacePath), rulesFile)
}

func readRulesFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, os.ErrNotExist
		}
		return nil, err
	}
	if len(data) == 0 {
		return []string{}, nil
	}
	// a simple JSON array of strings
	var rules []string
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules file '%s': %w", path, err)
	}
	return rules, nil
}

func writeRulesFile(path string, rules []string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create rules directory: %w", err)
	}
	b, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode rules: %w", err)
	}
	if err := os.WriteFile(path, b, mode); err != nil {
		return fmt.Errorf("failed to write rules: %w", err)
	}
	return nil
}

func normalizeRules(rules []string) []string {
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		if trimmed := strings.TrimSpace(r); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// expandUserHome expands a leading ~ or ~/ to the user's home directory.
func expandUserHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			if p == "~" {
				return home
			}
			return filepath.Join(home, p[2:])
		}
	}
	return p
}
