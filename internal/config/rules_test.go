package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestRulesRoundTrip(t *testing.T) {
	home, ws := isolate(t)

	if err := AddRule(ws, "Prefer constructor injection", false); err != nil {
		t.Fatalf("add project rule: %v", err)
	}
	if err := AddRule(ws, "  Use records for DTOs ", false); err != nil {
		t.Fatalf("add project rule: %v", err)
	}
	if err := AddRule(ws, "Prefer constructor injection", false); err != nil {
		t.Fatalf("add duplicate: %v", err)
	}
	if err := AddRule(ws, "Answer briefly", true); err != nil {
		t.Fatalf("add user rule: %v", err)
	}

	user, project, err := LoadRules(ws)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(user, []string{"Answer briefly"}) {
		t.Errorf("user rules = %q", user)
	}
	if !reflect.DeepEqual(project, []string{"Prefer constructor injection", "Use records for DTOs"}) {
		t.Errorf("project rules = %q", project)
	}
	if _, err := os.Stat(filepath.Join(home, DirName, rulesFile)); err != nil {
		t.Errorf("user rules file missing: %v", err)
	}

	removed, err := RemoveRule(ws, 1, false)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed != "Prefer constructor injection" {
		t.Errorf("removed %q", removed)
	}
	if _, err := RemoveRule(ws, 5, false); err == nil {
		t.Error("expected out-of-range removal to fail")
	}

	_, project, _ = LoadRules(ws)
	if got := FormatRules(project); got != "- Use records for DTOs" {
		t.Errorf("FormatRules = %q", got)
	}
	if got := FormatRules(nil); got != "" {
		t.Errorf("FormatRules(nil) = %q", got)
	}
}

func TestRulesMissingFiles(t *testing.T) {
	_, ws := isolate(t)
	user, project, err := LoadRules(ws)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(user) != 0 || len(project) != 0 {
		t.Errorf("expected no rules, got %q %q", user, project)
	}
}
