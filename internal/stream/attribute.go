package stream

import (
	"fmt"
	"sort"

	"github.com/HENNGE/lambda-container-example/internal/snapshot"
)

// AttributeValue is one typed attribute in the stream's wire encoding.
// Exactly one member is set on a well-formed value.
type AttributeValue struct {
	S    *string                   `json:"S,omitempty" yaml:"S,omitempty"`
	N    *string                   `json:"N,omitempty" yaml:"N,omitempty"`
	B    *string                   `json:"B,omitempty" yaml:"B,omitempty"`
	BOOL *bool                     `json:"BOOL,omitempty" yaml:"BOOL,omitempty"`
	NULL *bool                     `json:"NULL,omitempty" yaml:"NULL,omitempty"`
	SS   []string                  `json:"SS,omitempty" yaml:"SS,omitempty"`
	NS   []string                  `json:"NS,omitempty" yaml:"NS,omitempty"`
	BS   []string                  `json:"BS,omitempty" yaml:"BS,omitempty"`
	M    map[string]AttributeValue `json:"M,omitempty" yaml:"M,omitempty"`
	L    []AttributeValue          `json:"L,omitempty" yaml:"L,omitempty"`
}

// Str builds a string attribute.
func Str(s string) AttributeValue { return AttributeValue{S: &s} }

// Num builds a numeric attribute from its decimal text.
func Num(n string) AttributeValue { return AttributeValue{N: &n} }

// Bool builds a boolean attribute.
func Bool(b bool) AttributeValue { return AttributeValue{BOOL: &b} }

// Map builds a nested map attribute.
func Map(m map[string]AttributeValue) AttributeValue { return AttributeValue{M: m} }

// List builds a list attribute.
func List(l ...AttributeValue) AttributeValue { return AttributeValue{L: l} }

// StringSet builds a string set attribute.
func StringSet(ss ...string) AttributeValue { return AttributeValue{SS: ss} }

// NumberSet builds a number set attribute.
func NumberSet(ns ...string) AttributeValue { return AttributeValue{NS: ns} }

// Text returns the S member, reporting whether it was set.
func (av AttributeValue) Text() (string, bool) {
	if av.S == nil {
		return "", false
	}
	return *av.S, true
}

// ToValue converts an attribute into a snapshot value without any
// entity-specific interpretation. Sets become arrays, binary values stay
// base64 text, numbers are parsed exactly.
func (av AttributeValue) ToValue() (snapshot.Value, error) {
	switch {
	case av.S != nil:
		return snapshot.String(*av.S), nil
	case av.N != nil:
		return snapshot.ParseNumber(*av.N)
	case av.B != nil:
		return snapshot.String(*av.B), nil
	case av.BOOL != nil:
		return snapshot.Bool(*av.BOOL), nil
	case av.NULL != nil:
		return snapshot.Null{}, nil
	case av.SS != nil:
		return stringsToArray(av.SS), nil
	case av.BS != nil:
		return stringsToArray(av.BS), nil
	case av.NS != nil:
		arr := make(snapshot.Array, len(av.NS))
		for i, n := range av.NS {
			v, err := snapshot.ParseNumber(n)
			if err != nil {
				return nil, fmt.Errorf("NS[%d]: %w", i, err)
			}
			arr[i] = v
		}
		return arr, nil
	case av.M != nil:
		return av.mapToValue()
	case av.L != nil:
		arr := make(snapshot.Array, len(av.L))
		for i, elem := range av.L {
			v, err := elem.ToValue()
			if err != nil {
				return nil, fmt.Errorf("L[%d]: %w", i, err)
			}
			arr[i] = v
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("attribute value has no member set")
	}
}

func (av AttributeValue) mapToValue() (snapshot.Value, error) {
	keys := make([]string, 0, len(av.M))
	for k := range av.M {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	obj := make(snapshot.Object, len(av.M))
	for _, k := range keys {
		v, err := av.M[k].ToValue()
		if err != nil {
			return nil, fmt.Errorf("M[%q]: %w", k, err)
		}
		obj[k] = v
	}
	return obj, nil
}

// ToObject converts every attribute of an image. A nil image is absent and
// yields a nil Object.
func (img Image) ToObject() (snapshot.Object, error) {
	if img == nil {
		return nil, nil
	}
	v, err := AttributeValue{M: img}.mapToValue()
	if err != nil {
		return nil, err
	}
	return v.(snapshot.Object), nil
}

func stringsToArray(ss []string) snapshot.Array {
	arr := make(snapshot.Array, len(ss))
	for i, s := range ss {
		arr[i] = snapshot.String(s)
	}
	return arr
}
