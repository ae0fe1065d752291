package config

import (
	"fmt"

	"github.com/HENNGE/lambda-container-example/internal/filter"
	"github.com/HENNGE/lambda-container-example/internal/mapping"
	"github.com/HENNGE/lambda-container-example/internal/reconcile"
)

// Mapper builds the configured entity mapper.
func (c *Config) Mapper() (reconcile.Mapper, error) {
	switch c.Mapping.Mode {
	case ModeFields:
		m, err := mapping.NewFieldMapper(c.Mapping.HashField, c.Mapping.RangeField, c.Mapping.Fields)
		if err != nil {
			return nil, fmt.Errorf("mapping: %w", err)
		}
		return m, nil
	case ModePassthrough, "":
		omit := c.Mapping.Omit
		if omit == nil {
			omit = []string{c.Keys.Hash, c.Keys.Range}
		}
		return mapping.Passthrough{Omit: omit}, nil
	default:
		return nil, fmt.Errorf("mapping: unknown mode %q", c.Mapping.Mode)
	}
}

// Rules compiles the exclusion rules. It returns nil when none are
// configured.
func (c *Config) Rules() (*filter.Rules, error) {
	if len(c.Exclude.Origins) == 0 && len(c.Exclude.Keys) == 0 {
		return nil, nil
	}
	rules, err := filter.Compile(c.Exclude.Origins, c.Exclude.Keys)
	if err != nil {
		return nil, fmt.Errorf("exclude: %w", err)
	}
	return rules, nil
}

// Validator builds the record validator.
func (c *Config) Validator() (*reconcile.Validator, error) {
	mapper, err := c.Mapper()
	if err != nil {
		return nil, err
	}
	opts := reconcile.ValidatorOptions{
		HashKey:  c.Keys.Hash,
		RangeKey: c.Keys.Range,
		Mapper:   mapper,
	}

	rules, err := c.Rules()
	if err != nil {
		return nil, err
	}
	if rules != nil {
		opts.Exclusion = rules
	}
	return reconcile.NewValidator(opts), nil
}
