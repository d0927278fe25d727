package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/msgpulse/internal/i18n"
	"github.com/roach88/msgpulse/internal/sim"
)

// Scenario is one scripted session against the simulated server.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Catalog is the CUE catalog path, relative to the scenario file.
	Catalog string `yaml:"catalog"`

	// Config holds feature documents keyed by feature name
	// (event_messages, chat_broadcast, custom_commands, dead_show_image).
	// Missing features get their defaults.
	Config map[string]any `yaml:"config,omitempty"`

	// Locales maps a locale tag to its translations, nested like a
	// translations file.
	Locales       map[string]map[string]any `yaml:"locales,omitempty"`
	DefaultLocale string                    `yaml:"default_locale,omitempty"`

	// Players are connected before the plugin loads.
	Players []sim.PlayerSpec `yaml:"players,omitempty"`

	Steps []sim.Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions"`
}

// Assertion checks the transcript after the steps ran.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Player restricts the check to one recipient. Required for
	// chat_contains, chat_order and hud_contains.
	Player string `yaml:"player,omitempty"`

	Text  string   `yaml:"text,omitempty"`
	Texts []string `yaml:"texts,omitempty"`
	HTML  string   `yaml:"html,omitempty"`

	// Count is the expected number of matches for chat_count and
	// journal_count.
	Count int `yaml:"count,omitempty"`

	// Code is the rule problem code for the problem assertion.
	Code string `yaml:"code,omitempty"`

	// Event filters journal_count.
	Event string `yaml:"event,omitempty"`
}

// Assertion types.
const (
	AssertChatContains = "chat_contains"
	AssertChatOrder    = "chat_order"
	AssertChatCount    = "chat_count"
	AssertHUDContains  = "hud_contains"
	AssertProblem      = "problem"
	AssertJournalCount = "journal_count"
)

// LoadScenario reads a scenario file, rejecting unknown keys, and resolves
// the catalog path against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if s.Catalog != "" && !filepath.IsAbs(s.Catalog) {
		s.Catalog = filepath.Join(filepath.Dir(path), s.Catalog)
	}
	if _, err := os.Stat(s.Catalog); err != nil {
		return nil, fmt.Errorf("invalid scenario: catalog not found: %s", s.Catalog)
	}
	return s, nil
}

// ParseScenario decodes and validates a scenario document. The catalog
// path is left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenarios in %s", dir)
	}

	var (
		out  []*Scenario
		errs []error
	)
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(p), err))
			continue
		}
		out = append(out, s)
	}
	return out, errors.Join(errs...)
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Description == "" {
		return errors.New("description is required")
	}
	if s.Catalog == "" {
		return errors.New("catalog is required")
	}
	if len(s.Steps) == 0 {
		return errors.New("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return errors.New("assertions list is required and must be non-empty")
	}

	for i, p := range s.Players {
		if p.ID == "" {
			return fmt.Errorf("players[%d]: id is required", i)
		}
	}
	for i, step := range s.Steps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for locale := range s.Locales {
		if _, err := i18n.NewBundle(locale); err != nil {
			return fmt.Errorf("locales: %w", err)
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertChatContains:
		if a.Player == "" {
			return fmt.Errorf("assertions[%d]: player is required for chat_contains", index)
		}
	case AssertChatOrder:
		if a.Player == "" || len(a.Texts) == 0 {
			return fmt.Errorf("assertions[%d]: player and texts are required for chat_order", index)
		}
	case AssertHUDContains:
		if a.Player == "" || a.HTML == "" {
			return fmt.Errorf("assertions[%d]: player and html are required for hud_contains", index)
		}
	case AssertChatCount, AssertJournalCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertProblem:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for problem", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
