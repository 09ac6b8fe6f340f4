package fx

import (
	"fmt"
	"math/bits"

	"github.com/govalues/decimal"
)

// Rate represents how many units of a quote currency are exchanged for one
// unit of the base currency, with exactly four digits after the decimal point.
// It is stored as the pair (whole, frac) whose value is whole + frac / 10000.
// A rate is always positive.
// The zero value is not a valid rate and is rejected by the conversion
// functions.
// Rate is designed to be safe for concurrent use by multiple goroutines.
type Rate struct {
	whole int64 // integer part
	frac  int64 // ten-thousandths, 0 <= frac <= 9999
}

// Rounding selects the direction in which a market rate is quantized to
// four fractional digits.
type Rounding int

const (
	// Floor rounds toward zero. Used for rates quoted to buyers of a currency.
	Floor Rounding = iota
	// Ceil rounds away from zero. Used for rates quoted to sellers of a currency.
	Ceil
)

func (m Rounding) String() string {
	switch m {
	case Floor:
		return "floor"
	case Ceil:
		return "ceil"
	}
	return fmt.Sprintf("Rounding(%d)", int(m))
}

func newRateSafe(whole, frac int64) (Rate, error) {
	switch {
	case whole < 0 || frac < 0:
		return Rate{}, fmt.Errorf("%w: rate must not be negative", ErrRange)
	case frac > 9999:
		return Rate{}, fmt.Errorf("%w: fraction %v is greater than 9999", ErrRange, frac)
	case whole == 0 && frac == 0:
		return Rate{}, fmt.Errorf("%w: rate must not be zero", ErrRange)
	case whole > MaxWhole:
		return Rate{}, fmt.Errorf("%w: integer part exceeds %v", ErrRange, int64(MaxWhole))
	}
	return Rate{whole: whole, frac: frac}, nil
}

// NewRate returns a rate equal to whole + frac / 10000.
//
// NewRate returns an error if:
//   - whole or frac is negative;
//   - frac is greater than 9999;
//   - both whole and frac are zero;
//   - whole is greater than [MaxWhole].
func NewRate(whole, frac int64) (Rate, error) {
	r, err := newRateSafe(whole, frac)
	if err != nil {
		return Rate{}, fmt.Errorf("converting (%v, %v): %w", whole, frac, err)
	}
	return r, nil
}

// MustNewRate is like [NewRate] but panics if the rate cannot be constructed.
// It simplifies safe initialization of global variables holding rates.
func MustNewRate(whole, frac int64) Rate {
	r, err := NewRate(whole, frac)
	if err != nil {
		panic(fmt.Sprintf("NewRate(%v, %v) failed: %v", whole, frac, err))
	}
	return r
}

// ParseRate converts a decimal string to a rate.
// It accepts the same forms as [ParseAmount], with up to four significant
// fractional digits.
// ParseRate returns an error if the string cannot be parsed or represents zero.
func ParseRate(s string) (Rate, error) {
	whole, frac, err := parseFixed(s, RateScale, false)
	if err != nil {
		return Rate{}, fmt.Errorf("parsing rate %q: %w", s, err)
	}
	r, err := newRateSafe(whole, frac)
	if err != nil {
		return Rate{}, fmt.Errorf("parsing rate %q: %w", s, err)
	}
	return r, nil
}

// MustParseRate is like [ParseRate] but panics if the string cannot be parsed.
// It simplifies safe initialization of global variables holding rates.
func MustParseRate(s string) Rate {
	r, err := ParseRate(s)
	if err != nil {
		panic(fmt.Sprintf("ParseRate(%q) failed: %v", s, err))
	}
	return r
}

// NewRateFromDecimal quantizes a market rate to four fractional digits
// using the given rounding direction.
//
// NewRateFromDecimal returns an error if:
//   - the decimal is not positive;
//   - the quantized rate is zero;
//   - the integer part is greater than [MaxWhole].
func NewRateFromDecimal(d decimal.Decimal, mode Rounding) (Rate, error) {
	if !d.IsPos() {
		return Rate{}, fmt.Errorf("converting %v: %w: rate must be positive", d, ErrRange)
	}
	var q decimal.Decimal
	switch mode {
	case Floor:
		q = d.Floor(RateScale)
	case Ceil:
		q = d.Ceil(RateScale)
	default:
		return Rate{}, fmt.Errorf("converting %v: unknown rounding %v", d, mode)
	}
	whole, frac, ok := q.Int64(RateScale)
	if !ok {
		return Rate{}, fmt.Errorf("converting %v: %w: integer part overflow", d, ErrRange)
	}
	r, err := newRateSafe(whole, frac)
	if err != nil {
		return Rate{}, fmt.Errorf("converting %v: %w", d, err)
	}
	return r, nil
}

// NewRateFromFloat64 is like [NewRateFromDecimal] but takes a float.
// The float is first converted to the shortest decimal that round-trips.
func NewRateFromFloat64(f float64, mode Rounding) (Rate, error) {
	d, err := decimal.NewFromFloat64(f)
	if err != nil {
		return Rate{}, fmt.Errorf("converting %v: %w: %w", f, ErrRange, err)
	}
	return NewRateFromDecimal(d, mode)
}

// Int64 returns the pair (whole, frac) of the rate.
func (r Rate) Int64() (whole, frac int64) {
	return r.whole, r.frac
}

// scaled returns the rate multiplied by 10^4.
func (r Rate) scaled() int64 {
	return r.whole*pow10[RateScale] + r.frac
}

// Decimal returns the rate as a decimal with scale 4.
func (r Rate) Decimal() decimal.Decimal {
	return decimal.MustNew(r.scaled(), RateScale)
}

// IsZero returns true for the zero value, which is not a valid rate.
func (r Rate) IsZero() bool {
	return r.whole == 0 && r.frac == 0
}

// Cmp compares rates and returns:
//
//	-1 if r < q
//	 0 if r = q
//	+1 if r > q
func (r Rate) Cmp(q Rate) int {
	switch a, b := r.scaled(), q.scaled(); {
	case a > b:
		return 1
	case a < b:
		return -1
	}
	return 0
}

// String implements the [fmt.Stringer] interface and returns a string
// representation of the rate with exactly four fractional digits.
//
// [fmt.Stringer]: https://pkg.go.dev/fmt#Stringer
func (r Rate) String() string {
	return string(appendFixed(make([]byte, 0, 24), r.whole, r.frac, RateScale))
}

// Format implements the [fmt.Formatter] interface.
// The %s, %v and %q verbs are supported together with width and the '-' flag.
//
// [fmt.Formatter]: https://pkg.go.dev/fmt#Formatter
func (r Rate) Format(state fmt.State, verb rune) {
	formatVerb(state, verb, r.String(), "Rate")
}

// MarshalText implements the [encoding.TextMarshaler] interface.
//
// [encoding.TextMarshaler]: https://pkg.go.dev/encoding#TextMarshaler
func (r Rate) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements the [encoding.TextUnmarshaler] interface.
// See also constructor [ParseRate].
//
// [encoding.TextUnmarshaler]: https://pkg.go.dev/encoding#TextUnmarshaler
func (r *Rate) UnmarshalText(text []byte) error {
	var err error
	*r, err = ParseRate(string(text))
	if err != nil {
		return fmt.Errorf("unmarshaling %T: %w", Rate{}, err)
	}
	return nil
}

// MarshalJSON implements the [json.Marshaler] interface.
// MarshalJSON always returns a quoted decimal string.
//
// [json.Marshaler]: https://pkg.go.dev/encoding/json#Marshaler
func (r Rate) MarshalJSON() ([]byte, error) {
	text := make([]byte, 0, 26)
	text = append(text, '"')
	text = appendFixed(text, r.whole, r.frac, RateScale)
	text = append(text, '"')
	return text, nil
}

// UnmarshalJSON implements the [json.Unmarshaler] interface.
// The input must be a decimal string, a bare JSON number, or
// a two-element array of integers [whole, frac].
//
// [json.Unmarshaler]: https://pkg.go.dev/encoding/json#Unmarshaler
func (r *Rate) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var err error
	if w, f, ok, perr := parsePairJSON(data); ok {
		if perr != nil {
			err = perr
		} else {
			*r, err = newRateSafe(w, f)
		}
	} else {
		*r, err = ParseRate(string(unquote(data)))
	}
	if err != nil {
		return fmt.Errorf("unmarshaling %T: %w", Rate{}, err)
	}
	return nil
}

// checkConv validates the operands of a conversion.
func checkConv(r Rate, a Amount) error {
	switch {
	case r.whole < 0 || r.frac < 0 || a.whole < 0 || a.frac < 0:
		return fmt.Errorf("%w: negative operand", ErrRange)
	case r.frac > 9999:
		return fmt.Errorf("%w: rate fraction %v is greater than 9999", ErrRange, r.frac)
	case a.frac > 99:
		return fmt.Errorf("%w: amount fraction %v is greater than 99", ErrRange, a.frac)
	case r.IsZero():
		return fmt.Errorf("%w: zero rate", ErrRange)
	}
	return nil
}

// AmountReceivedForBase returns the amount of quote currency received for
// spending the given amount of base currency at rate r.
// The exact product is truncated to two fractional digits, so the result
// never exceeds what the rate allows.
//
// AmountReceivedForBase returns an error if:
//   - the amount is negative;
//   - the rate is zero;
//   - the integer part of the result is greater than [MaxWhole].
func AmountReceivedForBase(r Rate, spent Amount) (Amount, error) {
	a, err := amountReceivedForBase(r, spent)
	if err != nil {
		return Amount{}, fmt.Errorf("computing amount received for %v at %v: %w", spent, r, err)
	}
	return a, nil
}

func amountReceivedForBase(r Rate, spent Amount) (Amount, error) {
	if err := checkConv(r, spent); err != nil {
		return Amount{}, err
	}
	// hundredths * ten-thousandths = millionths; keep hundredths.
	hi, lo := bits.Mul64(uint64(spent.MinorUnits()), uint64(r.scaled())) //nolint:gosec
	const divisor = 10_000
	if hi >= divisor {
		return Amount{}, fmt.Errorf("%w: result overflow", ErrRange)
	}
	units, _ := bits.Div64(hi, lo, divisor)
	return amountFromMinorUnits(units)
}

// AmountReceivedForQuote returns the amount of base currency received for
// spending the given amount of quote currency at rate r.
// The result is the largest amount b with two fractional digits such that
// buying b at rate r would not cost more than the amount spent.
//
// AmountReceivedForQuote returns an error if:
//   - the amount is negative;
//   - the rate is zero;
//   - the integer part of the result is greater than [MaxWhole].
func AmountReceivedForQuote(r Rate, spent Amount) (Amount, error) {
	a, err := amountReceivedForQuote(r, spent)
	if err != nil {
		return Amount{}, fmt.Errorf("computing amount received for %v at %v: %w", spent, r, err)
	}
	return a, nil
}

func amountReceivedForQuote(r Rate, spent Amount) (Amount, error) {
	if err := checkConv(r, spent); err != nil {
		return Amount{}, err
	}
	// The largest b (in hundredths) with b * rate <= spent is
	// floor(spent * 10^4 / rate), both sides scaled by 10^6.
	divisor := uint64(r.scaled())                                              //nolint:gosec
	hi, lo := bits.Mul64(uint64(spent.MinorUnits()), uint64(pow10[RateScale])) //nolint:gosec
	if hi >= divisor {
		return Amount{}, fmt.Errorf("%w: result overflow", ErrRange)
	}
	units, _ := bits.Div64(hi, lo, divisor)
	return amountFromMinorUnits(units)
}
