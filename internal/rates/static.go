package rates

import (
	"context"
	"fmt"

	"github.com/govalues/decimal"

	"github.com/danyeu/fx"
)

// Static serves fixed market rates, for offline use and tests.
type Static struct {
	market map[fx.Currency]decimal.Decimal
}

// NewStatic returns a supplier quoting symbols from market.
// Every symbol must have a positive market rate.
func NewStatic(market map[fx.Currency]decimal.Decimal, symbols []fx.Currency) (*Static, error) {
	m := make(map[fx.Currency]decimal.Decimal, len(symbols))
	for _, curr := range symbols {
		d, ok := market[curr]
		if !ok {
			return nil, fmt.Errorf("%w: no static rate for %v", ErrInvalidRate, curr)
		}
		if !d.IsPos() {
			return nil, fmt.Errorf("%w: static rate for %v is %v", ErrInvalidRate, curr, d)
		}
		m[curr] = d
	}
	return &Static{market: m}, nil
}

func (s *Static) Rates(_ context.Context, side Side) (map[fx.Currency]fx.Rate, error) {
	return quantize(s.market, side)
}
