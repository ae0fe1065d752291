package snapshot

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// Number represents an exact decimal value. NaN and infinities are never
// valid.
//
// A Number holds its canonical text, so == and reflect.DeepEqual agree
// with numeric equality: 1, 1.0 and 10e-1 are the same Number, while
// 9007199254740992 and 9007199254740993 stay distinct. The zero Number
// is 0.
type Number struct {
	text string
}

func (Number) snapshotValue() {}

// Int returns the Number for i.
func Int(i int64) Number {
	n, err := fromDecimal(apd.New(i, 0))
	if err != nil {
		panic(err)
	}
	return n
}

// ParseNumber parses decimal text such as "42", "-0.5" or "1.5E+30".
// Precision is never lost.
func ParseNumber(s string) (Number, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return Number{}, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return fromDecimal(d)
}

// MustNumber is ParseNumber for literals. It panics on invalid text.
func MustNumber(s string) Number {
	n, err := ParseNumber(s)
	if err != nil {
		panic(err)
	}
	return n
}

// NewNumber creates a Number from f using its shortest round-trip digits,
// rejecting NaN and infinities.
func NewNumber(f float64) (Number, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Number{}, fmt.Errorf("number %v is not finite", f)
	}
	return ParseNumber(strconv.FormatFloat(f, 'e', -1, 64))
}

// String returns the canonical text: the ECMAScript Number-to-String
// layout applied to the exact digits.
func (n Number) String() string {
	if n.text == "" {
		return "0"
	}
	return n.text
}

// Equal reports whether n and o are the same value.
func (n Number) Equal(o Number) bool {
	return n == o
}

// MarshalJSON writes the canonical text.
func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(n.String()), nil
}

func fromDecimal(d *apd.Decimal) (Number, error) {
	if d.Form != apd.Finite {
		return Number{}, fmt.Errorf("number %s is not finite", d.String())
	}
	var r apd.Decimal
	r.Reduce(d)
	if r.IsZero() {
		// Covers -0.
		return Number{}, nil
	}
	return Number{text: formatDecimal(r.Negative, r.Coeff.String(), int(r.Exponent))}, nil
}

// formatDecimal lays out digits * 10^exp the way ECMAScript prints
// numbers: plain notation while the decimal point sits within 21 digits
// and no further than six places right of it, exponent notation otherwise.
func formatDecimal(negative bool, digits string, exp int) string {
	k := len(digits)
	point := k + exp

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	switch {
	case k <= point && point <= 21:
		b.WriteString(digits)
		b.WriteString(strings.Repeat("0", point-k))
	case 0 < point && point <= 21:
		b.WriteString(digits[:point])
		b.WriteByte('.')
		b.WriteString(digits[point:])
	case -6 < point && point <= 0:
		b.WriteString("0.")
		b.WriteString(strings.Repeat("0", -point))
		b.WriteString(digits)
	default:
		b.WriteByte(digits[0])
		if k > 1 {
			b.WriteByte('.')
			b.WriteString(digits[1:])
		}
		b.WriteByte('e')
		if point-1 >= 0 {
			b.WriteByte('+')
		}
		b.WriteString(strconv.Itoa(point - 1))
	}
	return b.String()
}
