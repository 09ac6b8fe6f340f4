package trader

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/danyeu/fx"
	"github.com/danyeu/fx/internal/portfolio"
)

// Money is an amount of a specific currency.
type Money struct {
	Currency fx.Currency `json:"currency"`
	Amount   fx.Amount   `json:"amount"`
}

func (m Money) String() string {
	return fmt.Sprintf("%v %v", m.Currency, m.Amount)
}

// Quote is an offer to exchange Spent for Received that must be confirmed
// before ExpiresAt.
type Quote struct {
	ID        uuid.UUID      `json:"id"`
	Kind      portfolio.Kind `json:"kind"`
	Currency  fx.Currency    `json:"currency"`
	Rate      fx.Rate        `json:"rate"`
	Spent     Money          `json:"spent"`
	Received  Money          `json:"received"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// String describes the quote from the user's side, e.g.
// "Buy EUR 92.61 for USD 100.50".
func (q *Quote) String() string {
	return fmt.Sprintf("Buy %v for %v", q.Received, q.Spent)
}

// Expired reports whether the quote can no longer be confirmed at now.
func (q *Quote) Expired(now time.Time) bool {
	return !now.Before(q.ExpiresAt)
}

// trade converts the quote into signed portfolio deltas.
func (q *Quote) trade() portfolio.Trade {
	t := portfolio.Trade{Kind: q.Kind, Currency: q.Currency, Rate: q.Rate}
	if q.Kind == portfolio.KindBuy {
		t.DeltaFX = q.Received.Amount
		t.DeltaBase = q.Spent.Amount.Neg()
	} else {
		t.DeltaFX = q.Spent.Amount.Neg()
		t.DeltaBase = q.Received.Amount
	}
	return t
}
