// Package portfolio keeps the holdings of every traded currency and the
// history of changes to them.
package portfolio

import (
	"context"
	"errors"
	"fmt"

	"github.com/danyeu/fx"
)

// Common errors
var (
	ErrNotFound          = errors.New("holding not found")
	ErrNotInitialized    = errors.New("portfolio not initialized")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidTrade      = errors.New("invalid trade")
)

// Store persists holdings and history. Implementations must apply a trade
// to both holdings and the history atomically.
type Store interface {
	Initialized(ctx context.Context) (bool, error)
	Reset(ctx context.Context, o Opening) error
	// Holdings returns the base currency first, then the others in the
	// order they were given to Reset.
	Holdings(ctx context.Context) ([]Holding, error)
	Holding(ctx context.Context, curr fx.Currency) (fx.Amount, error)
	Apply(ctx context.Context, t Trade) (Entry, error)
	History(ctx context.Context) ([]Entry, error)
}

func validateOpening(o Opening) error {
	if !o.Start.IsPos() {
		return fmt.Errorf("%w: starting balance %v is not positive", ErrInvalidTrade, o.Start)
	}
	seen := map[fx.Currency]bool{o.Base: true}
	for _, c := range o.FX {
		if seen[c] {
			return fmt.Errorf("%w: currency %v listed twice", ErrInvalidTrade, c)
		}
		seen[c] = true
	}
	return nil
}

// validateTrade checks that the deltas have the signs implied by the kind.
func validateTrade(t Trade, base fx.Currency) error {
	if t.Currency == base {
		return fmt.Errorf("%w: cannot trade %v against itself", ErrInvalidTrade, base)
	}
	if t.Rate.IsZero() {
		return fmt.Errorf("%w: missing rate", ErrInvalidTrade)
	}
	switch t.Kind {
	case KindBuy:
		if t.DeltaFX.IsNeg() || !t.DeltaBase.IsNeg() {
			return fmt.Errorf("%w: buy must spend %v and receive %v", ErrInvalidTrade, base, t.Currency)
		}
	case KindSell:
		if !t.DeltaFX.IsNeg() || t.DeltaBase.IsNeg() {
			return fmt.Errorf("%w: sell must spend %v and receive %v", ErrInvalidTrade, t.Currency, base)
		}
	default:
		return fmt.Errorf("%w: unexpected kind %q", ErrInvalidTrade, t.Kind)
	}
	return nil
}

// settle returns the holdings after the trade, refusing any that would go
// below zero.
func settle(fxHeld, baseHeld fx.Amount, t Trade) (fxNew, baseNew fx.Amount, err error) {
	fxNew, err = fxHeld.Add(t.DeltaFX)
	if err != nil {
		return fx.Amount{}, fx.Amount{}, fmt.Errorf("updating %v holding: %w", t.Currency, err)
	}
	baseNew, err = baseHeld.Add(t.DeltaBase)
	if err != nil {
		return fx.Amount{}, fx.Amount{}, fmt.Errorf("updating base holding: %w", err)
	}
	if fxNew.IsNeg() || baseNew.IsNeg() {
		return fx.Amount{}, fx.Amount{}, ErrInsufficientFunds
	}
	return fxNew, baseNew, nil
}
