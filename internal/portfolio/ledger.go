package portfolio

import (
	"fmt"
	"time"

	"github.com/danyeu/fx"
)

// ledger is the in-memory state shared by the Memory and CSV stores.
// It is not safe for concurrent use; callers hold their own lock.
type ledger struct {
	base     fx.Currency
	order    []fx.Currency // base first
	holdings map[fx.Currency]fx.Amount
	history  []Entry
}

func newLedger(o Opening, now time.Time) (*ledger, error) {
	if err := validateOpening(o); err != nil {
		return nil, err
	}
	l := &ledger{
		base:     o.Base,
		order:    append([]fx.Currency{o.Base}, o.FX...),
		holdings: make(map[fx.Currency]fx.Amount, len(o.FX)+1),
	}
	for _, c := range o.FX {
		l.holdings[c] = fx.Amount{}
	}
	l.holdings[o.Base] = o.Start
	l.history = []Entry{{
		ID:        1,
		Kind:      KindStart,
		Currency:  o.Base,
		DeltaBase: o.Start,
		CreatedAt: now,
	}}
	return l, nil
}

func (l *ledger) clone() *ledger {
	c := &ledger{
		base:     l.base,
		order:    append([]fx.Currency(nil), l.order...),
		holdings: make(map[fx.Currency]fx.Amount, len(l.holdings)),
		history:  append([]Entry(nil), l.history...),
	}
	for k, v := range l.holdings {
		c.holdings[k] = v
	}
	return c
}

func (l *ledger) snapshot() []Holding {
	out := make([]Holding, 0, len(l.order))
	for _, c := range l.order {
		out = append(out, Holding{Currency: c, Amount: l.holdings[c]})
	}
	return out
}

func (l *ledger) holding(curr fx.Currency) (fx.Amount, error) {
	a, ok := l.holdings[curr]
	if !ok {
		return fx.Amount{}, fmt.Errorf("%w: %v", ErrNotFound, curr)
	}
	return a, nil
}

func (l *ledger) entries() []Entry {
	return append([]Entry(nil), l.history...)
}

func (l *ledger) apply(t Trade, now time.Time) (Entry, error) {
	if err := validateTrade(t, l.base); err != nil {
		return Entry{}, err
	}
	fxHeld, err := l.holding(t.Currency)
	if err != nil {
		return Entry{}, err
	}
	fxNew, baseNew, err := settle(fxHeld, l.holdings[l.base], t)
	if err != nil {
		return Entry{}, err
	}
	l.holdings[t.Currency] = fxNew
	l.holdings[l.base] = baseNew

	rate := t.Rate
	e := Entry{
		ID:        l.nextID(),
		Kind:      t.Kind,
		Currency:  t.Currency,
		DeltaFX:   t.DeltaFX,
		DeltaBase: t.DeltaBase,
		Rate:      &rate,
		CreatedAt: now,
	}
	l.history = append(l.history, e)
	return e, nil
}

func (l *ledger) nextID() int64 {
	if len(l.history) == 0 {
		return 1
	}
	return l.history[len(l.history)-1].ID + 1
}
