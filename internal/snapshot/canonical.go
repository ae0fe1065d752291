package snapshot

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf8"
)

// MarshalCanonical produces RFC 8785 canonical JSON for v.
//
// Differences from encoding/json:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping, U+2028 and U+2029 are written literally
//  3. Numbers are written exactly, in the ECMAScript layout; -0 is 0
//  4. Absent values are errors
//
// Strings are written as-is; normalization is the mapper's job. Invalid
// UTF-8 bytes become U+FFFD.
func MarshalCanonical(v Value) ([]byte, error) {
	enc := canonicalEncoder{strict: true}
	return enc.encode(nil, v)
}

// SortKey returns the order-insensitive canonical form of v: like
// MarshalCanonical, except that every array's elements are ordered by
// their own sort keys and invalid UTF-8 bytes are written as \xHH. Two
// values are Equivalent iff their sort keys are equal, which makes SortKey
// usable as a canonical ordering for arrays of any element type.
func SortKey(v Value) []byte {
	enc := canonicalEncoder{sortArrays: true}
	out, _ := enc.encode(nil, v)
	return out
}

type canonicalEncoder struct {
	// sortArrays orders array elements by their sort key.
	sortArrays bool
	// strict rejects absent values instead of writing a placeholder and
	// replaces invalid UTF-8, producing valid JSON.
	strict bool
}

func (e canonicalEncoder) encode(buf []byte, v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return e.absent(buf)
	case Null:
		return append(buf, "null"...), nil
	case Bool:
		return strconv.AppendBool(buf, bool(val)), nil
	case Number:
		return append(buf, val.String()...), nil
	case String:
		return appendCanonicalString(buf, string(val), e.strict), nil
	case Array:
		return e.array(buf, val)
	case Object:
		if val == nil {
			return e.absent(buf)
		}
		return e.object(buf, val)
	default:
		return nil, fmt.Errorf("unknown snapshot value type: %T", v)
	}
}

func (e canonicalEncoder) absent(buf []byte) ([]byte, error) {
	if e.strict {
		return nil, fmt.Errorf("absent value has no canonical form")
	}
	return append(buf, '~'), nil
}

func (e canonicalEncoder) array(buf []byte, arr Array) ([]byte, error) {
	elems := make([][]byte, len(arr))
	for i, elem := range arr {
		b, err := e.encode(nil, elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		elems[i] = b
	}
	if e.sortArrays {
		slices.SortFunc(elems, bytes.Compare)
	}

	buf = append(buf, '[')
	for i, b := range elems {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, b...)
	}
	return append(buf, ']'), nil
}

func (e canonicalEncoder) object(buf []byte, obj Object) ([]byte, error) {
	buf = append(buf, '{')
	for i, k := range obj.SortedKeys() {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = appendCanonicalString(buf, k, e.strict)
		buf = append(buf, ':')

		var err error
		buf, err = e.encode(buf, obj[k])
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	return append(buf, '}'), nil
}

const hexDigits = "0123456789abcdef"

// appendCanonicalString writes s as a JSON string. Only quote, backslash
// and control characters (U+0000-U+001F) are escaped. Invalid UTF-8 bytes
// become U+FFFD when valid is set, and \xHH otherwise. A literal
// backslash is always escaped, so \xHH cannot collide with string
// content.
func appendCanonicalString(buf []byte, s string, valid bool) []byte {
	buf = append(buf, '"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		switch {
		case r == utf8.RuneError && size == 1:
			if valid {
				buf = utf8.AppendRune(buf, utf8.RuneError)
			} else {
				b := s[i-1]
				buf = append(buf, '\\', 'x', hexDigits[b>>4], hexDigits[b&0xf])
			}
		case r == '"':
			buf = append(buf, '\\', '"')
		case r == '\\':
			buf = append(buf, '\\', '\\')
		case r == '\b':
			buf = append(buf, '\\', 'b')
		case r == '\f':
			buf = append(buf, '\\', 'f')
		case r == '\n':
			buf = append(buf, '\\', 'n')
		case r == '\r':
			buf = append(buf, '\\', 'r')
		case r == '\t':
			buf = append(buf, '\\', 't')
		case r < 0x20:
			buf = append(buf, '\\', 'u', '0', '0', hexDigits[r>>4], hexDigits[r&0xf])
		default:
			buf = utf8.AppendRune(buf, r)
		}
	}
	return append(buf, '"')
}
