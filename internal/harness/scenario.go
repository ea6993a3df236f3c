// Package harness replays scripted conversations against a fully wired
// machine with deterministic stand-ins for the outside world (geocoder,
// router, timers) and renders a compact transcript for golden-file
// comparison.
package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is one scripted conversation.
type Scenario struct {
	// Name uniquely identifies the scenario; the golden file is
	// testdata/golden/{Name}.golden.
	Name string `yaml:"name"`

	// Description explains what the conversation exercises.
	Description string `yaml:"description"`

	// Pickup enables the delivery-or-pickup question at checkout.
	Pickup bool `yaml:"pickup,omitempty"`

	// Steps run in order against a fresh machine.
	Steps []Step `yaml:"steps"`
}

// Step is a single scripted action. Exactly one field should be set.
type Step struct {
	// Send delivers a text message from the customer.
	Send string `yaml:"send,omitempty"`

	// Location shares a pin from the customer.
	Location *Location `yaml:"location,omitempty"`

	// FireFollowup expires every pending follow-up timer, as if the
	// customer went quiet.
	FireFollowup bool `yaml:"fire_followup,omitempty"`
}

// Location is a shared coordinate pair.
type Location struct {
	Lat float64 `yaml:"lat"`
	Lng float64 `yaml:"lng"`
}

// LoadScenario reads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario %s: %w", path, err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("scenario %s: missing name", path)
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s: no steps", path)
	}
	return &s, nil
}
