package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance scenario: a program plus assertions over
// its outcome.
type Scenario struct {
	// Name uniquely identifies this scenario; it is also the golden file
	// name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program is the ChronoStack source to execute.
	Program string `yaml:"program"`

	// Error, when set, is the runtime error code the program must fail
	// with. When empty the program must succeed.
	Error string `yaml:"error,omitempty"`

	// Stack is the expected final working stack, bottom first, each value
	// in display form ("10", `"text"`, "true"). Only checked on success.
	Stack []string `yaml:"stack,omitempty"`

	// Assertions validate the final timeline and trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Assertion validates one aspect of the final timeline or trace.
type Assertion struct {
	// Type selects the check:
	//   - "moment_top":    top of branch/index equals value
	//   - "paradox":       paradox flag of branch/index equals flag
	//   - "branch_length": branch has length moments
	//   - "active":        active branch/index position
	//   - "stable":        timeline stability equals flag
	//   - "trace_order":   ops appear in the trace in this order
	//   - "trace_count":   op appears exactly count times
	Type string `yaml:"type"`

	Branch string   `yaml:"branch,omitempty"`
	Index  int      `yaml:"index,omitempty"`
	Value  string   `yaml:"value,omitempty"`
	Flag   bool     `yaml:"flag,omitempty"`
	Length int      `yaml:"length,omitempty"`
	Op     string   `yaml:"op,omitempty"`
	Ops    []string `yaml:"ops,omitempty"`
	Count  int      `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertMomentTop    = "moment_top"
	AssertParadox      = "paradox"
	AssertBranchLength = "branch_length"
	AssertActive       = "active"
	AssertStable       = "stable"
	AssertTraceOrder   = "trace_order"
	AssertTraceCount   = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected to catch typos.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml scenario in a directory, sorted by file
// name for deterministic test ordering.
func LoadScenarios(dir string) ([]*Scenario, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	scenarios := make([]*Scenario, 0, len(matches))
	for _, path := range matches {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Program == "" {
		return fmt.Errorf("program is required")
	}
	if s.Error != "" && len(s.Stack) > 0 {
		return fmt.Errorf("error and stack are mutually exclusive")
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertMomentTop:
		if a.Branch == "" || a.Value == "" {
			return fmt.Errorf("assertions[%d]: branch and value are required for moment_top", index)
		}
	case AssertParadox:
		if a.Branch == "" {
			return fmt.Errorf("assertions[%d]: branch is required for paradox", index)
		}
	case AssertBranchLength:
		if a.Branch == "" {
			return fmt.Errorf("assertions[%d]: branch is required for branch_length", index)
		}
	case AssertActive:
		if a.Branch == "" {
			return fmt.Errorf("assertions[%d]: branch is required for active", index)
		}
	case AssertStable:
		// flag alone suffices
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
