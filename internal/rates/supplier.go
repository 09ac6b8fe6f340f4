// Package rates supplies exchange rates of the configured currencies against
// the base currency, already quantized to four fractional digits in the
// direction that favours the house.
package rates

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/govalues/decimal"

	"github.com/danyeu/fx"
)

var (
	// ErrUnavailable is returned when no rates can be obtained right now.
	ErrUnavailable = errors.New("exchange rates unavailable")
	// ErrInvalidRate is returned when a supplier reports a rate that is not
	// a positive number.
	ErrInvalidRate = errors.New("invalid exchange rate")
)

// Side is the direction of a trade from the user's point of view.
type Side int

const (
	// Buy quotes are used when the user buys a foreign currency.
	Buy Side = iota
	// Sell quotes are used when the user sells a foreign currency.
	Sell
)

// ParseSide converts "buy" or "sell" to a Side.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	}
	return Buy, fmt.Errorf("unknown side %q, want buy or sell", s)
}

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	}
	return fmt.Sprintf("Side(%d)", int(s))
}

// Rounding returns the direction in which market rates are quantized for
// this side: a buyer gets fewer units per base unit, a seller needs more.
func (s Side) Rounding() fx.Rounding {
	if s == Sell {
		return fx.Ceil
	}
	return fx.Floor
}

// Supplier returns quoted rates in units of each currency per one unit of
// the base currency.
type Supplier interface {
	Rates(ctx context.Context, side Side) (map[fx.Currency]fx.Rate, error)
}

// quantize converts market rates to quoted rates for the given side.
func quantize(market map[fx.Currency]decimal.Decimal, side Side) (map[fx.Currency]fx.Rate, error) {
	quoted := make(map[fx.Currency]fx.Rate, len(market))
	for curr, d := range market {
		r, err := fx.NewRateFromDecimal(d, side.Rounding())
		if err != nil {
			return nil, fmt.Errorf("%w for %v: %w", ErrInvalidRate, curr, err)
		}
		quoted[curr] = r
	}
	return quoted, nil
}

// Sorted returns the currencies of a rate map in alphabetical order.
func Sorted(quoted map[fx.Currency]fx.Rate) []fx.Currency {
	currs := make([]fx.Currency, 0, len(quoted))
	for c := range quoted {
		currs = append(currs, c)
	}
	sort.Slice(currs, func(i, j int) bool { return currs[i].Code() < currs[j].Code() })
	return currs
}
