// Package filter implements configuration-driven exclusion rules.
//
// Rules are boolean expr-lang expressions. Origin rules see:
//
//	table  string  table name parsed from the source ARN ("" if none)
//	arn    string  the full source ARN
//
// Key rules see:
//
//	hash_key   string  partition component
//	range_key  string  sort component
//	object_id  string  hash_key + "|" + range_key
//
// A record is excluded if any rule of its kind evaluates to true.
//
// Example:
//
//	origins: ['table endsWith "-archive"']
//	keys:    ['hash_key startsWith "tmp#"', 'range_key == "draft"']
package filter

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/HENNGE/lambda-container-example/internal/reconcile"
)

// OriginEnv is the environment origin rules are evaluated in.
type OriginEnv struct {
	Table string `expr:"table"`
	ARN   string `expr:"arn"`
}

// KeyEnv is the environment key rules are evaluated in.
type KeyEnv struct {
	HashKey  string `expr:"hash_key"`
	RangeKey string `expr:"range_key"`
	ObjectID string `expr:"object_id"`
}

type rule struct {
	source  string
	program *vm.Program
}

// Rules is a compiled set of exclusion rules. The zero value excludes
// nothing. Rules is safe for concurrent use.
type Rules struct {
	origins []rule
	keys    []rule
}

var _ reconcile.Exclusion = (*Rules)(nil)

// Compile type-checks every expression against its environment and
// requires a boolean result.
func Compile(originExprs, keyExprs []string) (*Rules, error) {
	origins, err := compileAll(originExprs, OriginEnv{})
	if err != nil {
		return nil, fmt.Errorf("origin rule: %w", err)
	}
	keys, err := compileAll(keyExprs, KeyEnv{})
	if err != nil {
		return nil, fmt.Errorf("key rule: %w", err)
	}
	return &Rules{origins: origins, keys: keys}, nil
}

func compileAll(sources []string, env any) ([]rule, error) {
	out := make([]rule, 0, len(sources))
	for _, src := range sources {
		program, err := expr.Compile(src, expr.Env(env), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", src, err)
		}
		out = append(out, rule{source: src, program: program})
	}
	return out, nil
}

// ExcludeOrigin implements reconcile.Exclusion.
func (r *Rules) ExcludeOrigin(origin reconcile.Origin) (bool, error) {
	return match(r.origins, OriginEnv{Table: origin.Table, ARN: origin.ARN})
}

// ExcludeKey implements reconcile.Exclusion.
func (r *Rules) ExcludeKey(key reconcile.EntityKey) (bool, error) {
	return match(r.keys, KeyEnv{HashKey: key.Hash, RangeKey: key.Range, ObjectID: key.ObjectID()})
}

// Len returns the number of origin and key rules.
func (r *Rules) Len() (origins, keys int) {
	return len(r.origins), len(r.keys)
}

func match(rules []rule, env any) (bool, error) {
	for _, rl := range rules {
		out, err := expr.Run(rl.program, env)
		if err != nil {
			return false, fmt.Errorf("evaluate %q: %w", rl.source, err)
		}
		if excluded, _ := out.(bool); excluded {
			return true, nil
		}
	}
	return false, nil
}
