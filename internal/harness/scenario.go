package harness

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/HENNGE/lambda-container-example/internal/config"
	"github.com/HENNGE/lambda-container-example/internal/reconcile"
	"github.com/HENNGE/lambda-container-example/internal/stream"
)

// Scenario defines one reconciliation test case.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config overlays config.Default(). Only reconciler settings (keys,
	// mapping, exclude) are used.
	Config *config.Config `yaml:"config,omitempty"`

	// Records is the batch, in delivery order.
	Records []stream.Record `yaml:"records"`

	// Expect holds the checks on the reconciler output.
	Expect Expect `yaml:"expect"`

	// Replica, when set, applies the operations to an in-memory store.
	Replica *ReplicaSpec `yaml:"replica,omitempty"`
}

// Expect lists the expected reconciler output.
type Expect struct {
	// Stats is a subset match on the reconcile.Stats JSON field names.
	Stats map[string]int `yaml:"stats,omitempty"`

	// Rejections lists the reject codes of dropped records, in order.
	Rejections []string `yaml:"rejections,omitempty"`

	// Operations lists the emitted operations, in order.
	Operations []ExpectedOperation `yaml:"operations,omitempty"`
}

// ExpectedOperation is an operation in its wire shape.
type ExpectedOperation struct {
	Action string         `yaml:"action"`
	Body   map[string]any `yaml:"body"`
}

// ReplicaSpec seeds the replica and lists its expected final objects.
type ReplicaSpec struct {
	// Seed bodies are added before the batch is applied. Each needs an
	// objectID.
	Seed []map[string]any `yaml:"seed,omitempty"`

	// Expect lists every object body after the batch, in object ID order.
	Expect []map[string]any `yaml:"expect"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	scenario := Scenario{Config: config.Default()}

	// Strict field validation catches typos like "operation:" vs "operations:"
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse YAML: empty document")
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Config == nil {
		s.Config = config.Default()
	}
	if err := s.Config.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	for i, op := range s.Expect.Operations {
		switch reconcile.Action(op.Action) {
		case reconcile.ActionAdd, reconcile.ActionDelete, reconcile.ActionPartialUpdate:
		default:
			return fmt.Errorf("expect.operations[%d]: unknown action %q", i, op.Action)
		}
		if _, ok := op.Body[reconcile.ObjectIDField].(string); !ok {
			return fmt.Errorf("expect.operations[%d]: body needs a string %s", i, reconcile.ObjectIDField)
		}
	}

	if s.Replica != nil {
		for i, body := range s.Replica.Seed {
			if _, ok := body[reconcile.ObjectIDField].(string); !ok {
				return fmt.Errorf("replica.seed[%d]: needs a string %s", i, reconcile.ObjectIDField)
			}
		}
	}
	return nil
}
