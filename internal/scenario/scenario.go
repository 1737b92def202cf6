package scenario

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a named fixture: an ordered list of events to seed a log with.
type Scenario struct {
	// Name identifies the fixture in CLI output and error messages.
	Name string `yaml:"name"`

	// Description explains what the fixture models.
	Description string `yaml:"description,omitempty"`

	// Events are appended in file order.
	Events []Step `yaml:"events"`
}

// Step declares one event. Alias names the step so later steps can reference
// it; CausedBy holds such a reference and is resolved to the persisted id at
// seed time. Correlation, when set, overrides the inherited transaction id.
type Step struct {
	Alias       string         `yaml:"alias"`
	Command     string         `yaml:"command"`
	Actor       string         `yaml:"actor,omitempty"`
	Origin      string         `yaml:"origin,omitempty"`
	Version     int            `yaml:"version,omitempty"`
	Payload     map[string]any `yaml:"payload,omitempty"`
	Metadata    map[string]any `yaml:"metadata,omitempty"`
	CausedBy    string         `yaml:"caused_by,omitempty"`
	Correlation string         `yaml:"correlation,omitempty"`
}

// LoadFile reads and parses a scenario YAML file.
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}
	return Parse(path, data)
}

// Parse validates and decodes a scenario document. filename appears in
// schema error positions. The document is unified with the embedded schema
// first, decoded strictly (unknown fields are rejected), then cross-checked
// so aliases are unique and every caused_by names an earlier step.
func Parse(filename string, data []byte) (*Scenario, error) {
	if err := validateDocument(filename, data); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}

	if err := validateScenario(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

// validateScenario performs the referential checks the schema cannot
// express: alias uniqueness and caused_by resolving to an earlier step.
// The presence checks repeat schema ground so scenarios constructed in Go
// go through the same gate.
func validateScenario(sc *Scenario) error {
	if sc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(sc.Events) == 0 {
		return fmt.Errorf("events list is required and must be non-empty")
	}

	seen := make(map[string]int, len(sc.Events))
	for i, step := range sc.Events {
		if step.Alias == "" {
			return fmt.Errorf("events[%d]: alias is required", i)
		}
		if step.Command == "" {
			return fmt.Errorf("events[%d]: command is required", i)
		}
		if prev, ok := seen[step.Alias]; ok {
			return fmt.Errorf("events[%d]: alias %q already used by events[%d]", i, step.Alias, prev)
		}
		if step.CausedBy != "" {
			if _, ok := seen[step.CausedBy]; !ok {
				return fmt.Errorf("events[%d]: caused_by %q does not name an earlier step", i, step.CausedBy)
			}
		}
		seen[step.Alias] = i
	}
	return nil
}
