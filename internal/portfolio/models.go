package portfolio

import (
	"time"

	"github.com/danyeu/fx"
)

// Kind classifies history entries.
type Kind string

const (
	KindStart Kind = "start"
	KindBuy   Kind = "buy"
	KindSell  Kind = "sell"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindStart, KindBuy, KindSell:
		return true
	}
	return false
}

// Holding is the quantity of one currency held in the portfolio.
type Holding struct {
	Currency fx.Currency `json:"currency"`
	Amount   fx.Amount   `json:"amount"`
}

// Opening describes the state a portfolio is reset to.
type Opening struct {
	Base  fx.Currency
	FX    []fx.Currency
	Start fx.Amount
}

// Trade is a confirmed exchange to be applied to the holdings.
// Deltas are signed: a buy adds DeltaFX and removes base, a sell does the
// opposite.
type Trade struct {
	Kind      Kind
	Currency  fx.Currency
	DeltaFX   fx.Amount
	DeltaBase fx.Amount
	Rate      fx.Rate
}

// Entry is one row of the portfolio history.
// The start entry carries only DeltaBase and has no rate.
type Entry struct {
	ID        int64       `json:"id"`
	Kind      Kind        `json:"kind"`
	Currency  fx.Currency `json:"currency"`
	DeltaFX   fx.Amount   `json:"delta_fx"`
	DeltaBase fx.Amount   `json:"delta_base"`
	Rate      *fx.Rate    `json:"rate,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
