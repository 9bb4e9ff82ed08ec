// Package dreplay replays a scripted arrival order of sequence numbers
// through an ordering engine and records every decision,
// for diagnosing how a stream with given semantics would behave.
package dreplay

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/gordian-engine/dseq"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of arrivals on one stream.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	Semantics  dseq.DeliverySemantics `yaml:"semantics"`
	InitialTip uint64                 `yaml:"initial_tip,omitempty"`
	NackLimit  int                    `yaml:"nack_limit,omitempty"`

	// Sequence numbers in arrival order.
	Steps []uint64 `yaml:"steps"`
}

// Validate reports every problem with s at once.
func (s Scenario) Validate() error {
	var errs error

	if s.Name == "" {
		errs = errors.Join(errs, errors.New("name must not be empty"))
	}
	if !s.Semantics.Valid() {
		errs = errors.Join(errs, errors.New("semantics must be set"))
	}
	if s.NackLimit < 0 {
		errs = errors.Join(errs, errors.New("nack_limit must not be negative"))
	}
	if len(s.Steps) == 0 {
		errs = errors.Join(errs, errors.New("steps must not be empty"))
	}

	return errs
}

// Parse decodes a single YAML scenario.
// Unknown fields are an error, to catch misspelled keys.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %q: %w", s.Name, err)
	}
	return &s, nil
}

// Load reads and parses the scenario file at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
