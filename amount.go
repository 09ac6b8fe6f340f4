package fx

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/govalues/decimal"
)

// Amount type represents a quantity of some currency with exactly two digits
// after the decimal point.
// It is stored as the pair (whole, frac) whose value is whole + frac / 100.
// Both fields carry the sign of the value, so -1.05 is (-1, -5) and -0.05
// is (0, -5).
// Its zero value corresponds to 0.00.
// Amount is designed to be safe for concurrent use by multiple goroutines.
type Amount struct {
	whole int64 // integer part
	frac  int64 // hundredths, |frac| < 100
}

// newAmountSafe creates a new amount and checks the invariants.
func newAmountSafe(whole, frac int64) (Amount, error) {
	switch {
	case !signsAgree(whole, frac):
		return Amount{}, fmt.Errorf("%w: inconsistent signs", ErrRange)
	case frac <= -100 || frac >= 100:
		return Amount{}, fmt.Errorf("%w: fraction %v is not in (-100, 100)", ErrRange, frac)
	case whole > MaxWhole || whole < -MaxWhole:
		return Amount{}, fmt.Errorf("%w: integer part exceeds %v", ErrRange, int64(MaxWhole))
	}
	return Amount{whole: whole, frac: frac}, nil
}

// NewAmount returns an amount equal to whole + frac / 100.
//
// NewAmount returns an error if:
//   - whole and frac have opposite signs;
//   - |frac| is 100 or more;
//   - |whole| is greater than [MaxWhole].
func NewAmount(whole, frac int64) (Amount, error) {
	a, err := newAmountSafe(whole, frac)
	if err != nil {
		return Amount{}, fmt.Errorf("converting (%v, %v): %w", whole, frac, err)
	}
	return a, nil
}

// MustNewAmount is like [NewAmount] but panics if the amount cannot be constructed.
// It simplifies safe initialization of global variables holding amounts.
func MustNewAmount(whole, frac int64) Amount {
	a, err := NewAmount(whole, frac)
	if err != nil {
		panic(fmt.Sprintf("NewAmount(%v, %v) failed: %v", whole, frac, err))
	}
	return a
}

// NewAmountFromDecimal converts a decimal to an amount.
// NewAmountFromDecimal returns an error if the decimal has a non-zero digit
// beyond the second fractional digit or if its integer part is greater
// than [MaxWhole].
func NewAmountFromDecimal(d decimal.Decimal) (Amount, error) {
	t := d.Trunc(AmountScale)
	if t.Cmp(d) != 0 {
		return Amount{}, fmt.Errorf("converting %v: %w: more than %v significant fractional digits", d, ErrRange, AmountScale)
	}
	whole, frac, ok := t.Int64(AmountScale)
	if !ok {
		return Amount{}, fmt.Errorf("converting %v: %w: integer part overflow", d, ErrRange)
	}
	a, err := newAmountSafe(whole, frac)
	if err != nil {
		return Amount{}, fmt.Errorf("converting %v: %w", d, err)
	}
	return a, nil
}

// amountFromMinorUnits converts a non-negative number of hundredths.
func amountFromMinorUnits(units uint64) (Amount, error) {
	if units/100 > MaxWhole {
		return Amount{}, fmt.Errorf("%w: integer part exceeds %v", ErrRange, int64(MaxWhole))
	}
	return Amount{whole: int64(units / 100), frac: int64(units % 100)}, nil //nolint:gosec
}

// ParseAmount converts a non-negative decimal string to an amount.
// The input string must be in one of the following formats:
//
//	12
//	12.
//	12.3
//	12.34
//	12.3400
//	.34
//
// Leading zeros in the integer part are allowed.
// Digits after the second fractional digit are allowed only if they are zeros.
//
// ParseAmount returns an error if:
//   - the string is empty, contains a sign, a non-digit character,
//     more than one decimal point, or only a decimal point;
//   - a digit after the second fractional digit is not zero;
//   - the integer part is greater than [MaxWhole].
func ParseAmount(s string) (Amount, error) {
	whole, frac, err := parseFixed(s, AmountScale, false)
	if err != nil {
		return Amount{}, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return Amount{whole: whole, frac: frac}, nil
}

// MustParseAmount is like [ParseAmount] but panics if the string cannot be parsed.
// It simplifies safe initialization of global variables holding amounts.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(fmt.Sprintf("ParseAmount(%q) failed: %v", s, err))
	}
	return a
}

// parseSignedAmount is like [ParseAmount] but also accepts a leading minus
// sign, as produced by [Amount.String] for negative amounts.
func parseSignedAmount(s string) (Amount, error) {
	whole, frac, err := parseFixed(s, AmountScale, true)
	if err != nil {
		return Amount{}, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return Amount{whole: whole, frac: frac}, nil
}

// Int64 returns the pair (whole, frac) of the amount.
// Persistence layers store the two integers directly.
func (a Amount) Int64() (whole, frac int64) {
	return a.whole, a.frac
}

// MinorUnits returns the amount in hundredths, e.g. 12.34 is 1234.
func (a Amount) MinorUnits() int64 {
	return a.whole*100 + a.frac
}

// Decimal returns the amount as a decimal with scale 2.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.MustNew(a.MinorUnits(), AmountScale)
}

// Sign returns:
//
//	-1 if a < 0
//	 0 if a = 0
//	+1 if a > 0
func (a Amount) Sign() int {
	switch {
	case a.whole < 0 || a.frac < 0:
		return -1
	case a.whole > 0 || a.frac > 0:
		return 1
	}
	return 0
}

// IsNeg returns:
//
//	true  if a < 0
//	false otherwise
func (a Amount) IsNeg() bool {
	return a.Sign() < 0
}

// IsPos returns:
//
//	true  if a > 0
//	false otherwise
func (a Amount) IsPos() bool {
	return a.Sign() > 0
}

// IsZero returns:
//
//	true  if a = 0
//	false otherwise
func (a Amount) IsZero() bool {
	return a.whole == 0 && a.frac == 0
}

// Neg returns an amount with the opposite sign.
func (a Amount) Neg() Amount {
	return Amount{whole: -a.whole, frac: -a.frac}
}

// validate checks that an amount obtained from outside the constructors,
// such as a struct literal, satisfies the invariants.
func (a Amount) validate() error {
	_, err := newAmountSafe(a.whole, a.frac)
	return err
}

// Add returns the sum of amounts a and b.
//
// Add returns an error if:
//   - a or b has fields of opposite signs;
//   - the integer part of the result is greater than [MaxWhole].
func (a Amount) Add(b Amount) (Amount, error) {
	c, err := a.add(b)
	if err != nil {
		return Amount{}, fmt.Errorf("computing [%v + %v]: %w", a, b, err)
	}
	return c, nil
}

func (a Amount) add(b Amount) (Amount, error) {
	if err := a.validate(); err != nil {
		return Amount{}, err
	}
	if err := b.validate(); err != nil {
		return Amount{}, err
	}

	// The fields are added independently and then reconciled so that the
	// fraction takes the sign of the integer part.
	whole, frac := a.whole+b.whole, a.frac+b.frac
	switch {
	case whole == 0:
		if frac <= -100 {
			whole, frac = whole-1, frac+100
		} else if frac >= 100 {
			whole, frac = whole+1, frac-100
		}
	case whole > 0:
		if frac < 0 {
			whole, frac = whole-1, frac+100
		} else if frac >= 100 {
			whole, frac = whole+1, frac-100
		}
	default:
		if frac > 0 {
			whole, frac = whole+1, frac-100
		} else if frac <= -100 {
			whole, frac = whole-1, frac+100
		}
	}
	return newAmountSafe(whole, frac)
}

// GreaterThan returns true if a > b.
// It does not validate the operands.
func (a Amount) GreaterThan(b Amount) bool {
	return a.MinorUnits() > b.MinorUnits()
}

// Cmp compares amounts and returns:
//
//	-1 if a < b
//	 0 if a = b
//	+1 if a > b
func (a Amount) Cmp(b Amount) int {
	switch {
	case a.GreaterThan(b):
		return 1
	case b.GreaterThan(a):
		return -1
	}
	return 0
}

// String implements the [fmt.Stringer] interface and returns a string
// representation of the amount with exactly two fractional digits.
// See also function [Format].
//
// [fmt.Stringer]: https://pkg.go.dev/fmt#Stringer
func (a Amount) String() string {
	return string(appendFixed(make([]byte, 0, 24), a.whole, a.frac, AmountScale))
}

// Format implements the [fmt.Formatter] interface.
// The %s, %v and %q verbs are supported together with width and the '-' flag.
//
// [fmt.Formatter]: https://pkg.go.dev/fmt#Formatter
func (a Amount) Format(state fmt.State, verb rune) {
	formatVerb(state, verb, a.String(), "Amount")
}

// MarshalText implements the [encoding.TextMarshaler] interface.
// See also method [Amount.String].
//
// [encoding.TextMarshaler]: https://pkg.go.dev/encoding#TextMarshaler
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements the [encoding.TextUnmarshaler] interface.
// Unlike [ParseAmount], a leading minus sign is accepted.
//
// [encoding.TextUnmarshaler]: https://pkg.go.dev/encoding#TextUnmarshaler
func (a *Amount) UnmarshalText(text []byte) error {
	var err error
	*a, err = parseSignedAmount(string(text))
	if err != nil {
		return fmt.Errorf("unmarshaling %T: %w", Amount{}, err)
	}
	return nil
}

// MarshalJSON implements the [json.Marshaler] interface.
// MarshalJSON always returns a quoted decimal string.
//
// [json.Marshaler]: https://pkg.go.dev/encoding/json#Marshaler
func (a Amount) MarshalJSON() ([]byte, error) {
	text := make([]byte, 0, 26)
	text = append(text, '"')
	text = appendFixed(text, a.whole, a.frac, AmountScale)
	text = append(text, '"')
	return text, nil
}

// UnmarshalJSON implements the [json.Unmarshaler] interface.
// The input must be a decimal string, a bare JSON number, or
// a two-element array of integers [whole, frac].
//
// [json.Unmarshaler]: https://pkg.go.dev/encoding/json#Unmarshaler
func (a *Amount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var err error
	if w, f, ok, perr := parsePairJSON(data); ok {
		if perr != nil {
			err = perr
		} else {
			*a, err = newAmountSafe(w, f)
		}
	} else {
		*a, err = parseSignedAmount(string(unquote(data)))
	}
	if err != nil {
		return fmt.Errorf("unmarshaling %T: %w", Amount{}, err)
	}
	return nil
}

// unquote strips surrounding double quotes, if any.
func unquote(data []byte) []byte {
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		return data[1 : len(data)-1]
	}
	return data
}

// parsePairJSON decodes a JSON array of exactly two integers.
// The ok result reports whether data is an array at all.
func parsePairJSON(data []byte) (whole, frac int64, ok bool, err error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return 0, 0, false, nil
	}
	var pair []json.Number
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&pair); err != nil {
		return 0, 0, true, fmt.Errorf("%w: %w", ErrShape, err)
	}
	if len(pair) != 2 {
		return 0, 0, true, fmt.Errorf("%w: got %v elements, want 2", ErrShape, len(pair))
	}
	whole, err = pair[0].Int64()
	if err != nil {
		return 0, 0, true, fmt.Errorf("%w: whole part %q is not an integer", ErrShape, pair[0])
	}
	frac, err = pair[1].Int64()
	if err != nil {
		return 0, 0, true, fmt.Errorf("%w: fractional part %q is not an integer", ErrShape, pair[1])
	}
	return whole, frac, true, nil
}
