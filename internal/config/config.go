// Package config loads jeddict settings from compiled defaults, the global
// and project config.toml files and JEDDICT_* environment variables, in
// that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// DirName is the settings directory under the home and workspace roots.
	DirName = ".jeddict"
	// FileName is the config file inside DirName.
	FileName = "config.toml"
	// EnvPrefix marks the environment variables that override settings.
	EnvPrefix = "JEDDICT_"
)

// Config represents the jeddict configuration.
type Config struct {
	Model         string  `koanf:"model"`
	APIKey        string  `koanf:"api_key"`
	BaseURL       string  `koanf:"base_url"`
	Temperature   float64 `koanf:"temperature"`
	Stream        bool    `koanf:"stream"`
	Tools         bool    `koanf:"tools"`
	MaxToolRounds int     `koanf:"max_tool_rounds"`
	EnableShell   bool    `koanf:"enable_shell"`
	AutoApprove   bool    `koanf:"auto_approve"`
	RedactSecrets bool    `koanf:"redact_secrets"`
	MaxFileSize   int64   `koanf:"max_file_size"`
	TestFramework string  `koanf:"test_framework"`
}

// defaults are the compiled settings every layer overrides.
var defaults = map[string]any{
	"model":           "openai:gpt-4o",
	"api_key":         "",
	"base_url":        "",
	"temperature":     0.2,
	"stream":          true,
	"tools":           true,
	"max_tool_rounds": 25,
	"enable_shell":    false,
	"auto_approve":    false,
	"redact_secrets":  true,
	"max_file_size":   int64(1_500_000),
	"test_framework":  "",
}

// secretKeys are masked by List.
var secretKeys = map[string]bool{"api_key": true}

// Keys returns the known setting names in order.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GlobalDir returns ~/.jeddict.
func GlobalDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HOME: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// ProjectDir returns <workspace>/.jeddict.
func ProjectDir(workspacePath string) string {
	return filepath.Join(workspacePath, DirName)
}

// Loader holds the merged layers of one workspace.
type Loader struct {
	k         *koanf.Koanf
	workspace string
}

// Load reads every layer for workspacePath. Missing files are skipped; a
// malformed file is an error.
func Load(workspacePath string) (*Loader, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	var paths []string
	if dir, err := GlobalDir(); err == nil {
		paths = append(paths, filepath.Join(dir, FileName))
	}
	if workspacePath != "" {
		paths = append(paths, filepath.Join(ProjectDir(workspacePath), FileName))
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config %s: %w", path, err)
		}
	}

	// JEDDICT_MAX_TOOL_ROUNDS -> max_tool_rounds
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	return &Loader{k: k, workspace: workspacePath}, nil
}

// Config unmarshals the merged settings.
func (l *Loader) Config() (*Config, error) {
	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	return &cfg, nil
}

// Get returns the effective value of key.
func (l *Loader) Get(key string) (string, error) {
	if _, ok := defaults[key]; !ok {
		return "", fmt.Errorf("unknown config key: %s", key)
	}
	return l.k.String(key), nil
}

// List returns every effective setting with secrets masked.
func (l *Loader) List() map[string]string {
	out := make(map[string]string, len(defaults))
	for _, key := range Keys() {
		v := l.k.String(key)
		if secretKeys[key] && v != "" {
			v = mask(v)
		}
		out[key] = v
	}
	return out
}

func mask(v string) string {
	if len(v) <= 8 {
		return "********"
	}
	return v[:4] + "..." + v[len(v)-4:]
}

// Set validates value against the type of key and writes it to the project
// config file, or the global one when global is set.
func (l *Loader) Set(key, value string, global bool) error {
	typed, err := parseValue(key, value)
	if err != nil {
		return err
	}

	var path string
	if global {
		dir, err := GlobalDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, FileName)
	} else {
		if l.workspace == "" {
			return errors.New("workspace path is empty")
		}
		path = filepath.Join(ProjectDir(l.workspace), FileName)
	}

	fk := koanf.New(".")
	if _, err := os.Stat(path); err == nil {
		if err := fk.Load(file.Provider(path), toml.Parser()); err != nil {
			return fmt.Errorf("error loading config %s: %w", path, err)
		}
	}
	if err := fk.Set(key, typed); err != nil {
		return err
	}
	data, err := fk.Marshal(toml.Parser())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return l.k.Set(key, typed)
}

// parseValue converts CLI input to the type of the key's default.
func parseValue(key, value string) (any, error) {
	def, ok := defaults[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	switch def.(type) {
	case bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("expected 'true' or 'false' for %s, got: %s", key, value)
		}
		return b, nil
	case int:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("expected a non-negative integer for %s, got: %s", key, value)
		}
		return n, nil
	case int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("expected a non-negative integer for %s, got: %s", key, value)
		}
		return n, nil
	case float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("expected a number for %s, got: %s", key, value)
		}
		return f, nil
	default:
		return value, nil
	}
}
