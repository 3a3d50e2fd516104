package prompt

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Specialist is an assistant role bound to one prompt template.
type Specialist int

const (
	Assistant Specialist = iota
	Hacker
	HackerWithTools
	HackerWithoutTools
	FileWizard
	TestSpecialist
)

var specialistNames = [...]string{
	Assistant:          "ASSISTANT",
	Hacker:             "HACKER",
	HackerWithTools:    "HACKER_WITH_TOOLS",
	HackerWithoutTools: "HACKER_WITHOUT_TOOLS",
	FileWizard:         "FILE_WIZARD",
	TestSpecialist:     "TEST",
}

// Specialists lists every role in declaration order.
func Specialists() []Specialist {
	return []Specialist{Assistant, Hacker, HackerWithTools, HackerWithoutTools, FileWizard, TestSpecialist}
}

func (s Specialist) String() string {
	if s < 0 || int(s) >= len(specialistNames) {
		return fmt.Sprintf("Specialist(%d)", int(s))
	}
	return specialistNames[s]
}

// DisplayName is the human form, e.g. "Hacker With Tools".
func (s Specialist) DisplayName() string {
	return cases.Title(language.English).String(strings.ToLower(strings.ReplaceAll(s.String(), "_", " ")))
}

// ParseSpecialist accepts the enum name in any case, with '-' or '_' separators.
func ParseSpecialist(name string) (Specialist, error) {
	n := strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(name, "-", "_")))
	if n == "TEST_SPECIALIST" {
		n = "TEST"
	}
	for i, s := range specialistNames {
		if s == n {
			return Specialist(i), nil
		}
	}
	return 0, fmt.Errorf("unknown specialist %q", name)
}

// MarshalText lets specialists be used as YAML and JSON keys.
func (s Specialist) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Specialist) UnmarshalText(b []byte) error {
	v, err := ParseSpecialist(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
