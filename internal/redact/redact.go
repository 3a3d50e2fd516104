// Package redact masks credentials in source code and prompt context before
// they are sent to a remote model.
package redact

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// Pattern is one kind of secret.
type Pattern struct {
	Name     string
	Category string
	// Pattern matches the secret. When it has a capture group only the
	// group is masked and the surrounding assignment stays readable.
	Pattern *regexp.Regexp
}

// Finding is a secret located in a text.
type Finding struct {
	Name   string
	Offset int
	Length int

	ruleset bool
}

// rulesetCategory is the marker category of secrets found by the gitleaks
// ruleset rather than a registered pattern.
const rulesetCategory = "secret"

var (
	rulesetOnce sync.Once
	ruleset     *detect.Detector
)

// defaultRuleset returns the shared gitleaks detector, or nil when its
// default configuration cannot be loaded.
func defaultRuleset() *detect.Detector {
	rulesetOnce.Do(func() {
		if d, err := detect.NewDetectorDefaultConfig(); err == nil {
			ruleset = d
		}
	})
	return ruleset
}

// Detector finds and masks secrets. Registered patterns run first; the
// gitleaks default ruleset fills in what they miss.
type Detector struct {
	patterns []Pattern
	ruleset  *detect.Detector
}

// New returns a detector with the default patterns and the gitleaks ruleset.
func New() *Detector {
	d := &Detector{ruleset: defaultRuleset()}
	d.addDefaultPatterns()
	return d
}

func (d *Detector) addDefaultPatterns() {
	// assignments in code, properties and yaml
	d.Add("API Key", "api", `(?i)api[_-]?key[s]?["']?\s*[:=]\s*["']?([A-Za-z0-9_\-]{20,})["']?`)
	d.Add("Secret Key", "api", `(?i)secret[_-]?key[s]?["']?\s*[:=]\s*["']?([A-Za-z0-9_\-]{20,})["']?`)
	d.Add("Access Token", "api", `(?i)access[_-]?token[s]?["']?\s*[:=]\s*["']?([A-Za-z0-9_\-.]{20,})["']?`)
	d.Add("Client Secret", "oauth", `(?i)client[_-]?secret["']?\s*[:=]\s*["']?([A-Za-z0-9_\-]{20,})["']?`)
	d.Add("Password", "auth", `(?i)passw(?:or)?d["']?\s*[:=]\s*["']([^"'\s]{8,})["']`)
	d.Add("Bearer Token", "api", `Bearer\s+([A-Za-z0-9\-_.]{20,})`)
	d.Add("JWT Token", "api", `eyJ[A-Za-z0-9\-_]{10,}\.eyJ[A-Za-z0-9\-_]{10,}\.[A-Za-z0-9\-_]{10,}`)

	// well-known token formats
	d.Add("AWS Access Key", "cloud", `AKIA[0-9A-Z]{16}`)
	d.Add("Google API Key", "cloud", `AIza[0-9A-Za-z\-_]{35}`)
	d.Add("OpenAI Key", "api", `sk-(?:proj-)?[A-Za-z0-9_\-]{20,}`)
	d.Add("GitHub Token", "oauth", `gh[pousr]_[A-Za-z0-9]{36}`)
	d.Add("GitLab Token", "oauth", `glpat-[A-Za-z0-9\-_]{20}`)
	d.Add("Slack Token", "oauth", `xox[baprs]-[0-9A-Za-z\-]{10,}`)
	d.Add("Stripe Key", "payment", `[rs]k_live_[0-9A-Za-z]{24,}`)
	d.Add("SendGrid Key", "api", `SG\.[A-Za-z0-9\-_]{22}\.[A-Za-z0-9\-_]{43}`)
	d.Add("Private Key", "crypto", `-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z ]*PRIVATE KEY-----`)

	// credentials embedded in connection strings
	d.Add("URL Credentials", "url", `(?i)\b(?:https?|ftp|jdbc:[a-z]+|mongodb(?:\+srv)?|postgres(?:ql)?|mysql|redis|amqp)://[^:@\s/]+:([^@\s/]+)@`)
}

// Add registers a pattern. It panics on an invalid expression.
func (d *Detector) Add(name, category, expr string) {
	d.patterns = append(d.patterns, Pattern{Name: name, Category: category, Pattern: regexp.MustCompile(expr)})
}

// Patterns returns the registered patterns.
func (d *Detector) Patterns() []Pattern { return d.patterns }

// Detect reports the secrets in content ordered by offset. Overlapping
// matches keep the earliest, longest one.
func (d *Detector) Detect(content string) []Finding {
	var found []Finding
	for _, p := range d.patterns {
		for _, loc := range p.Pattern.FindAllStringSubmatchIndex(content, -1) {
			start, end := loc[0], loc[1]
			if len(loc) >= 4 && loc[2] >= 0 {
				start, end = loc[2], loc[3]
			}
			found = append(found, Finding{Name: p.Name, Offset: start, Length: end - start})
		}
	}
	found = append(found, d.rulesetFindings(content, found)...)
	sort.Slice(found, func(i, j int) bool {
		if found[i].Offset != found[j].Offset {
			return found[i].Offset < found[j].Offset
		}
		return found[i].Length > found[j].Length
	})

	out := found[:0]
	end := -1
	for _, f := range found {
		if f.Offset < end {
			continue
		}
		out = append(out, f)
		end = f.Offset + f.Length
	}
	return out
}

// rulesetFindings locates the secrets gitleaks reports in content, skipping
// any that overlap a pattern finding.
func (d *Detector) rulesetFindings(content string, known []Finding) []Finding {
	if d.ruleset == nil {
		return nil
	}
	var out []Finding
	for _, lf := range d.ruleset.DetectString(content) {
		if lf.Secret == "" {
			continue
		}
		from := 0
		for {
			i := strings.Index(content[from:], lf.Secret)
			if i < 0 {
				break
			}
			f := Finding{Name: lf.RuleID, Offset: from + i, Length: len(lf.Secret), ruleset: true}
			if !overlaps(f, known) {
				out = append(out, f)
			}
			from = f.Offset + f.Length
		}
	}
	return out
}

func overlaps(f Finding, known []Finding) bool {
	for _, k := range known {
		if f.Offset < k.Offset+k.Length && k.Offset < f.Offset+f.Length {
			return true
		}
	}
	return false
}

// Redact replaces every detected secret with a [REDACTED_<CATEGORY>] marker.
func (d *Detector) Redact(content string) string {
	findings := d.Detect(content)
	if len(findings) == 0 {
		return content
	}
	category := make(map[string]string, len(d.patterns))
	for _, p := range d.patterns {
		category[p.Name] = p.Category
	}

	var b strings.Builder
	last := 0
	for _, f := range findings {
		cat := category[f.Name]
		if f.ruleset {
			cat = rulesetCategory
		}
		b.WriteString(content[last:f.Offset])
		b.WriteString("[REDACTED_" + strings.ToUpper(cat) + "]")
		last = f.Offset + f.Length
	}
	b.WriteString(content[last:])
	return b.String()
}
