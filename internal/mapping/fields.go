package mapping

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/HENNGE/lambda-container-example/internal/reconcile"
	"github.com/HENNGE/lambda-container-example/internal/snapshot"
	"github.com/HENNGE/lambda-container-example/internal/stream"
)

// FieldType selects how one attribute is coerced.
type FieldType string

const (
	// TypeText reads S, NFC-normalized. Default "".
	TypeText FieldType = "text"
	// TypeStringSet reads SS as normalized strings. Default [].
	TypeStringSet FieldType = "string_set"
	// TypeNumberSet reads NS as normalized strings. Default [].
	TypeNumberSet FieldType = "number_set"
	// TypeBool reads BOOL, or S == "1". Default false.
	TypeBool FieldType = "bool"
	// TypeInt reads the leading integer of N, or S made of digits.
	// Default null.
	TypeInt FieldType = "int"
	// TypeMapValues reads the non-empty S values of M, in key order.
	// Default [].
	TypeMapValues FieldType = "map_values"
	// TypeRaw converts the attribute generically. Missing attributes are
	// left out of the snapshot.
	TypeRaw FieldType = "raw"
)

var validTypes = map[FieldType]bool{
	TypeText:      true,
	TypeStringSet: true,
	TypeNumberSet: true,
	TypeBool:      true,
	TypeInt:       true,
	TypeMapValues: true,
	TypeRaw:       true,
}

// Field describes one snapshot field.
type Field struct {
	// Name is the snapshot field name.
	Name string `json:"name" yaml:"name"`
	// Source is the attribute name. Defaults to Name.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
	// Type is the coercion. Defaults to raw.
	Type FieldType `json:"type,omitempty" yaml:"type,omitempty"`
}

// FieldMapper builds snapshots with a fixed set of fields.
type FieldMapper struct {
	hashField  string
	rangeField string
	fields     []Field
}

var _ reconcile.Mapper = (*FieldMapper)(nil)

// NewFieldMapper validates the field list. hashField and rangeField, when
// non-empty, name snapshot fields that receive the key components.
func NewFieldMapper(hashField, rangeField string, fields []Field) (*FieldMapper, error) {
	seen := make(map[string]bool, len(fields)+2)
	for _, name := range []string{hashField, rangeField} {
		if name == "" {
			continue
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate field %q", name)
		}
		seen[name] = true
	}

	out := make([]Field, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("field %d: name is required", i)
		}
		if f.Name == reconcile.ObjectIDField {
			return nil, fmt.Errorf("field %d: %q is reserved", i, f.Name)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("duplicate field %q", f.Name)
		}
		seen[f.Name] = true

		if f.Source == "" {
			f.Source = f.Name
		}
		if f.Type == "" {
			f.Type = TypeRaw
		}
		if !validTypes[f.Type] {
			return nil, fmt.Errorf("field %q: unknown type %q", f.Name, f.Type)
		}
		out[i] = f
	}

	return &FieldMapper{hashField: hashField, rangeField: rangeField, fields: out}, nil
}

// Map implements reconcile.Mapper.
func (m *FieldMapper) Map(key reconcile.EntityKey, image stream.Image) (snapshot.Object, error) {
	obj := make(snapshot.Object, len(m.fields)+2)
	if m.hashField != "" {
		obj[m.hashField] = snapshot.String(key.Hash)
	}
	if m.rangeField != "" {
		obj[m.rangeField] = snapshot.String(key.Range)
	}

	for _, f := range m.fields {
		av, present := image[f.Source]
		v, err := coerce(f.Type, av, present)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		if v != nil {
			obj[f.Name] = v
		}
	}
	return obj, nil
}

var (
	digits     = regexp.MustCompile(`^\d+$`)
	leadingInt = regexp.MustCompile(`^\s*([+-]?\d+)`)
)

func coerce(t FieldType, av stream.AttributeValue, present bool) (snapshot.Value, error) {
	switch t {
	case TypeText:
		if s, ok := av.Text(); ok {
			return snapshot.String(norm.NFC.String(s)), nil
		}
		return snapshot.String(""), nil

	case TypeStringSet:
		return normalizedStrings(av.SS), nil

	case TypeNumberSet:
		return normalizedStrings(av.NS), nil

	case TypeBool:
		if av.BOOL != nil {
			return snapshot.Bool(*av.BOOL), nil
		}
		if s, ok := av.Text(); ok {
			return snapshot.Bool(s == "1"), nil
		}
		return snapshot.Bool(false), nil

	case TypeInt:
		if av.N != nil {
			if n, ok := truncateInt(*av.N); ok {
				return n, nil
			}
		}
		if s, ok := av.Text(); ok && digits.MatchString(s) {
			if n, ok := truncateInt(s); ok {
				return n, nil
			}
		}
		return snapshot.Null{}, nil

	case TypeMapValues:
		return mapValues(av.M), nil

	case TypeRaw:
		if !present {
			return nil, nil
		}
		return av.ToValue()
	}
	return nil, fmt.Errorf("unknown type %q", t)
}

func normalizedStrings(ss []string) snapshot.Array {
	arr := make(snapshot.Array, len(ss))
	for i, s := range ss {
		arr[i] = snapshot.String(norm.NFC.String(s))
	}
	return arr
}

// mapValues flattens a map attribute to its non-empty string values,
// ordered by key so the result does not depend on map iteration.
func mapValues(m map[string]stream.AttributeValue) snapshot.Array {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	arr := snapshot.Array{}
	for _, k := range keys {
		if s, ok := m[k].Text(); ok && s != "" {
			arr = append(arr, snapshot.String(norm.NFC.String(s)))
		}
	}
	return arr
}

// truncateInt reads the integer s starts with: an optional sign and the
// digits up to the first other character. "-3.7" is -3, "1e3" is 1 and
// "12abc" is 12. Text with no leading digits has no integer.
func truncateInt(s string) (snapshot.Number, bool) {
	m := leadingInt.FindStringSubmatch(s)
	if m == nil {
		return snapshot.Number{}, false
	}
	n, err := snapshot.ParseNumber(strings.TrimPrefix(m[1], "+"))
	return n, err == nil
}
