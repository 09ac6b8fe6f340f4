package fx

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrShape is returned when a value is not a well-formed pair of
	// integers, for example a JSON array of the wrong length.
	ErrShape = errors.New("malformed fixed-point pair")

	// ErrRange is returned when a well-formed value violates a domain
	// constraint: inconsistent signs, a fraction out of bounds, text that
	// cannot be parsed or is too precise, a zero rate, or an overflow.
	ErrRange = errors.New("fixed-point value out of range")
)

const (
	// AmountScale is the number of digits after the decimal point in an [Amount].
	AmountScale = 2

	// RateScale is the number of digits after the decimal point in a [Rate].
	RateScale = 4

	// MaxWhole is the largest absolute integer part of an [Amount] or a [Rate].
	// Any operation whose integer part would exceed it fails with [ErrRange].
	MaxWhole = 99_999_999_999_999
)

// pow10[i] = 10^i
var pow10 = [...]int64{
	1,
	10,
	100,
	1_000,
	10_000,
	100_000,
	1_000_000,
	10_000_000,
	100_000_000,
	1_000_000_000,
	10_000_000_000,
	100_000_000_000,
	1_000_000_000_000,
	10_000_000_000_000,
	100_000_000_000_000,
	1_000_000_000_000_000,
	10_000_000_000_000_000,
	100_000_000_000_000_000,
	1_000_000_000_000_000_000,
}

// signsAgree reports whether whole and frac are both non-negative or both
// non-positive.
func signsAgree(whole, frac int64) bool {
	return (whole >= 0 && frac >= 0) || (whole <= 0 && frac <= 0)
}

// Format returns the decimal representation of whole + frac / 10^scale.
// The fractional part is zero-padded to scale digits and the sign is carried
// in front of the integer part, so (0, -5) at scale 2 is rendered as "-0.05".
//
// Format returns an error if:
//   - the scale is not positive;
//   - whole and frac have opposite signs.
func Format(whole, frac int64, scale int) (string, error) {
	if scale <= 0 {
		return "", fmt.Errorf("formatting (%v, %v): %w: scale %v is not positive", whole, frac, ErrRange, scale)
	}
	if !signsAgree(whole, frac) {
		return "", fmt.Errorf("formatting (%v, %v): %w: inconsistent signs", whole, frac, ErrRange)
	}
	return string(appendFixed(nil, whole, frac, scale)), nil
}

// appendFixed appends the text form of a sign-consistent pair to buf.
func appendFixed(buf []byte, whole, frac int64, scale int) []byte {
	if whole < 0 || frac < 0 {
		buf = append(buf, '-')
	}
	buf = strconv.AppendUint(buf, abs(whole), 10)
	buf = append(buf, '.')
	digs := strconv.FormatUint(abs(frac), 10)
	for i := len(digs); i < scale; i++ {
		buf = append(buf, '0')
	}
	return append(buf, digs...)
}

// abs returns |v| as an unsigned integer, including for math.MinInt64.
func abs(v int64) uint64 {
	u := uint64(v)
	if v < 0 {
		u = -u
	}
	return u
}

// parseFixed parses text in one of the forms
//
//	D+
//	D+.
//	D*.F+
//
// where every fractional digit after the first scale digits must be zero.
// A leading minus sign is accepted only when signed is true.
// The result carries the sign in both fields.
func parseFixed(s string, scale int, signed bool) (whole, frac int64, err error) {
	if s == "" {
		return 0, 0, fmt.Errorf("%w: empty text", ErrRange)
	}
	pos, neg := 0, false
	if signed && s[0] == '-' {
		neg = true
		pos++
	}

	// Integer part
	start := pos
	for pos < len(s) && isDigit(s[pos]) {
		d := int64(s[pos] - '0')
		if whole > (MaxWhole-d)/10 {
			return 0, 0, fmt.Errorf("%w: integer part exceeds %v", ErrRange, int64(MaxWhole))
		}
		whole = whole*10 + d
		pos++
	}
	intdigs := pos - start

	// Fractional part
	fracdigs := 0
	if pos < len(s) && s[pos] == '.' {
		pos++
		start = pos
		for pos < len(s) && isDigit(s[pos]) {
			d := int64(s[pos] - '0')
			switch {
			case pos-start < scale:
				frac = frac*10 + d
			case d != 0:
				return 0, 0, fmt.Errorf("%w: more than %v significant fractional digits", ErrRange, scale)
			}
			pos++
		}
		fracdigs = pos - start
		for i := min(fracdigs, scale); i < scale; i++ {
			frac *= 10
		}
	}

	switch {
	case pos < len(s):
		return 0, 0, fmt.Errorf("%w: unexpected character %q", ErrRange, s[pos])
	case intdigs == 0 && fracdigs == 0:
		return 0, 0, fmt.Errorf("%w: no digits", ErrRange)
	}

	if neg {
		whole, frac = -whole, -frac
	}
	return whole, frac, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// formatVerb writes text to state honoring width, the '-' flag and the %q
// verb, the same way for every type of this package.
func formatVerb(state fmt.State, verb rune, text, typ string) {
	lquote, tquote := 0, 0
	if verb == 'q' || verb == 'Q' {
		lquote, tquote = 1, 1
	}

	// Calculating padding
	width := lquote + len(text) + tquote
	lspaces, tspaces := 0, 0
	if w, ok := state.Width(); ok && w > width {
		switch {
		case state.Flag('-'):
			tspaces = w - width
		default:
			lspaces = w - width
		}
		width = w
	}

	buf := make([]byte, 0, width)
	for i := 0; i < lspaces; i++ {
		buf = append(buf, ' ')
	}
	if lquote > 0 {
		buf = append(buf, '"')
	}
	buf = append(buf, text...)
	if tquote > 0 {
		buf = append(buf, '"')
	}
	for i := 0; i < tspaces; i++ {
		buf = append(buf, ' ')
	}

	// Writing result
	//nolint:errcheck
	switch verb {
	case 'q', 'Q', 's', 'S', 'v', 'V':
		state.Write(buf)
	default:
		state.Write([]byte("%!"))
		state.Write([]byte{byte(verb)})
		state.Write([]byte("(fx." + typ + "="))
		state.Write(buf)
		state.Write([]byte(")"))
	}
}
