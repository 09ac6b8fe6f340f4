// Package trader quotes, confirms and records currency trades against a
// single portfolio.
package trader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"go.uber.org/zap"

	"github.com/danyeu/fx"
	"github.com/danyeu/fx/internal/logger"
	"github.com/danyeu/fx/internal/portfolio"
	"github.com/danyeu/fx/internal/rates"
)

var (
	ErrInvalidCurrency   = errors.New("invalid currency")
	ErrInvalidQuantity   = errors.New("invalid quantity: non-numeric or too precise")
	ErrZeroQuantity      = errors.New("invalid quantity: zero")
	ErrInsufficientFunds = portfolio.ErrInsufficientFunds
	ErrQuoteNotFound     = errors.New("quote not found")
	ErrQuoteExpired      = errors.New("quote expired")
)

// Config holds the trading parameters.
type Config struct {
	Base     fx.Currency
	FX       []fx.Currency
	Start    fx.Amount
	QuoteTTL time.Duration
}

// CurrencyRate is the quoted rate of one currency against the base.
type CurrencyRate struct {
	Currency fx.Currency `json:"currency"`
	Rate     fx.Rate     `json:"rate"`
}

// Valuation is the portfolio valued in the base currency as if every
// foreign holding were sold at the current sell rate.
type Valuation struct {
	Base     fx.Currency         `json:"base"`
	Holdings []portfolio.Holding `json:"holdings"`
	Value    decimal.Decimal     `json:"value"`
	Return   decimal.Decimal     `json:"return_pct"`
}

// Service handles trading business logic
type Service struct {
	store    portfolio.Store
	supplier rates.Supplier
	cfg      Config
	now      func() time.Time

	mu     sync.Mutex
	quotes map[uuid.UUID]*Quote
}

// NewService creates a new trading service
func NewService(store portfolio.Store, supplier rates.Supplier, cfg Config) *Service {
	if cfg.QuoteTTL <= 0 {
		cfg.QuoteTTL = 10 * time.Second
	}
	return &Service{
		store:    store,
		supplier: supplier,
		cfg:      cfg,
		now:      time.Now,
		quotes:   make(map[uuid.UUID]*Quote),
	}
}

// Base returns the base currency.
func (s *Service) Base() fx.Currency { return s.cfg.Base }

// Currencies returns the tradable currencies in configured order.
func (s *Service) Currencies() []fx.Currency {
	return append([]fx.Currency(nil), s.cfg.FX...)
}

// QuoteTTL returns how long a quote stays valid.
func (s *Service) QuoteTTL() time.Duration { return s.cfg.QuoteTTL }

// Init resets the portfolio if the store holds none yet.
// It reports whether a new portfolio was created.
func (s *Service) Init(ctx context.Context) (bool, error) {
	ok, err := s.store.Initialized(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to open portfolio: %w", err)
	}
	if ok {
		return false, nil
	}
	if err := s.Reset(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Reset wipes holdings and history and drops all pending quotes.
func (s *Service) Reset(ctx context.Context) error {
	err := s.store.Reset(ctx, portfolio.Opening{
		Base:  s.cfg.Base,
		FX:    s.cfg.FX,
		Start: s.cfg.Start,
	})
	if err != nil {
		return fmt.Errorf("failed to reset portfolio: %w", err)
	}

	s.mu.Lock()
	s.quotes = make(map[uuid.UUID]*Quote)
	s.mu.Unlock()

	portfolioResets.Inc()
	logger.Info("portfolio reset", zap.Stringer("start", s.startMoney()))
	return nil
}

func (s *Service) startMoney() Money {
	return Money{Currency: s.cfg.Base, Amount: s.cfg.Start}
}

// Start returns the starting balance.
func (s *Service) Start() Money { return s.startMoney() }

// ParseCurrency accepts the code of a tradable currency in any case.
func (s *Service) ParseCurrency(code string) (fx.Currency, error) {
	curr, err := fx.ParseCurr(strings.TrimSpace(code))
	if err != nil || !s.tradable(curr) {
		return fx.XXX, fmt.Errorf("%w %q", ErrInvalidCurrency, code)
	}
	return curr, nil
}

func (s *Service) tradable(curr fx.Currency) bool {
	for _, c := range s.cfg.FX {
		if c == curr {
			return true
		}
	}
	return false
}

// Available returns the current holding of curr.
func (s *Service) Available(ctx context.Context, curr fx.Currency) (fx.Amount, error) {
	return s.store.Holding(ctx, curr)
}

// Rates returns the quoted rates for side in configured order.
func (s *Service) Rates(ctx context.Context, side rates.Side) ([]CurrencyRate, error) {
	quoted, err := s.supplier.Rates(ctx, side)
	if err != nil {
		return nil, err
	}
	out := make([]CurrencyRate, 0, len(s.cfg.FX))
	for _, c := range s.cfg.FX {
		r, ok := quoted[c]
		if !ok {
			return nil, fmt.Errorf("%w: no rate for %v", rates.ErrUnavailable, c)
		}
		out = append(out, CurrencyRate{Currency: c, Rate: r})
	}
	return out, nil
}

func (s *Service) rate(ctx context.Context, side rates.Side, curr fx.Currency) (fx.Rate, error) {
	quoted, err := s.supplier.Rates(ctx, side)
	if err != nil {
		return fx.Rate{}, err
	}
	r, ok := quoted[curr]
	if !ok {
		return fx.Rate{}, fmt.Errorf("%w: no rate for %v", rates.ErrUnavailable, curr)
	}
	return r, nil
}

// Portfolio values the holdings at the current sell rates.
func (s *Service) Portfolio(ctx context.Context) (Valuation, error) {
	holdings, err := s.store.Holdings(ctx)
	if err != nil {
		return Valuation{}, err
	}
	quoted, err := s.supplier.Rates(ctx, rates.Sell)
	if err != nil {
		return Valuation{}, err
	}

	value := decimal.MustNew(0, 0)
	for _, h := range holdings {
		d := h.Amount.Decimal()
		if h.Currency != s.cfg.Base {
			r, ok := quoted[h.Currency]
			if !ok {
				return Valuation{}, fmt.Errorf("%w: no rate for %v", rates.ErrUnavailable, h.Currency)
			}
			if d, err = d.Quo(r.Decimal()); err != nil {
				return Valuation{}, fmt.Errorf("valuing %v: %w", h.Currency, err)
			}
		}
		if value, err = value.Add(d); err != nil {
			return Valuation{}, fmt.Errorf("valuing %v: %w", h.Currency, err)
		}
	}

	ret, err := percentReturn(value, s.cfg.Start.Decimal())
	if err != nil {
		return Valuation{}, err
	}
	return Valuation{
		Base:     s.cfg.Base,
		Holdings: holdings,
		Value:    value.Round(2).Pad(2),
		Return:   ret.Round(2).Pad(2),
	}, nil
}

// percentReturn returns (value / start - 1) * 100.
func percentReturn(value, start decimal.Decimal) (decimal.Decimal, error) {
	ratio, err := value.Quo(start)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("computing return: %w", err)
	}
	ratio, err = ratio.Sub(decimal.MustNew(1, 0))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("computing return: %w", err)
	}
	pct, err := ratio.Mul(decimal.MustNew(100, 0))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("computing return: %w", err)
	}
	return pct, nil
}

// QuoteBuy quotes spending quantity of the base currency on curr.
func (s *Service) QuoteBuy(ctx context.Context, curr fx.Currency, quantity string) (*Quote, error) {
	return s.RequestQuote(ctx, rates.Buy, curr, quantity)
}

// QuoteSell quotes selling quantity of curr for the base currency.
func (s *Service) QuoteSell(ctx context.Context, curr fx.Currency, quantity string) (*Quote, error) {
	return s.RequestQuote(ctx, rates.Sell, curr, quantity)
}

// RequestQuote validates the request against the current holdings and
// issues a quote that stays pending until confirmed, cancelled or expired.
func (s *Service) RequestQuote(ctx context.Context, side rates.Side, curr fx.Currency, quantity string) (*Quote, error) {
	if !s.tradable(curr) {
		return nil, fmt.Errorf("%w %q", ErrInvalidCurrency, curr.Code())
	}
	spent, err := fx.ParseAmount(strings.TrimSpace(quantity))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuantity, err)
	}
	if spent.IsZero() {
		return nil, ErrZeroQuantity
	}

	spentCurr, receivedCurr, kind := s.cfg.Base, curr, portfolio.KindBuy
	if side == rates.Sell {
		spentCurr, receivedCurr, kind = curr, s.cfg.Base, portfolio.KindSell
	}

	held, err := s.store.Holding(ctx, spentCurr)
	if err != nil {
		return nil, err
	}
	if spent.GreaterThan(held) {
		return nil, ErrInsufficientFunds
	}

	rate, err := s.rate(ctx, side, curr)
	if err != nil {
		return nil, err
	}
	var received fx.Amount
	if side == rates.Buy {
		received, err = fx.AmountReceivedForBase(rate, spent)
	} else {
		received, err = fx.AmountReceivedForQuote(rate, spent)
	}
	if err != nil {
		return nil, err
	}

	q := &Quote{
		ID:        uuid.New(),
		Kind:      kind,
		Currency:  curr,
		Rate:      rate,
		Spent:     Money{Currency: spentCurr, Amount: spent},
		Received:  Money{Currency: receivedCurr, Amount: received},
		ExpiresAt: s.now().Add(s.cfg.QuoteTTL),
	}

	s.mu.Lock()
	s.pruneLocked()
	s.quotes[q.ID] = q
	s.mu.Unlock()

	quotesIssued.WithLabelValues(string(kind), curr.Code()).Inc()
	logger.Debug("quote issued",
		zap.String("quote_id", q.ID.String()),
		zap.String("kind", string(kind)),
		zap.Stringer("rate", rate),
		zap.Stringer("spent", q.Spent),
		zap.Stringer("received", q.Received),
	)
	copied := *q
	return &copied, nil
}

// pruneLocked drops expired quotes. The caller holds s.mu.
func (s *Service) pruneLocked() {
	now := s.now()
	for id, q := range s.quotes {
		if q.Expired(now) {
			delete(s.quotes, id)
			quotesClosed.WithLabelValues(string(q.Kind), "expired").Inc()
		}
	}
}

// take removes a pending quote, failing if it is unknown or expired.
func (s *Service) take(id uuid.UUID) (*Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrQuoteNotFound, id)
	}
	delete(s.quotes, id)
	if q.Expired(s.now()) {
		quotesClosed.WithLabelValues(string(q.Kind), "expired").Inc()
		return nil, fmt.Errorf("%w: %v", ErrQuoteExpired, id)
	}
	return q, nil
}

// Confirm executes a pending quote.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (portfolio.Entry, error) {
	q, err := s.take(id)
	if err != nil {
		return portfolio.Entry{}, err
	}

	entry, err := s.store.Apply(ctx, q.trade())
	if err != nil {
		quotesClosed.WithLabelValues(string(q.Kind), "failed").Inc()
		logger.Warn("trade failed", zap.String("quote_id", id.String()), zap.Error(err))
		return portfolio.Entry{}, err
	}

	quotesClosed.WithLabelValues(string(q.Kind), "confirmed").Inc()
	tradesExecuted.WithLabelValues(string(q.Kind), q.Currency.Code()).Inc()
	logger.Info("trade executed",
		zap.String("quote_id", id.String()),
		zap.Int64("entry_id", entry.ID),
		zap.String("kind", string(q.Kind)),
		zap.Stringer("spent", q.Spent),
		zap.Stringer("received", q.Received),
	)
	return entry, nil
}

// Cancel drops a pending quote.
func (s *Service) Cancel(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[id]
	if !ok {
		return fmt.Errorf("%w: %v", ErrQuoteNotFound, id)
	}
	delete(s.quotes, id)
	quotesClosed.WithLabelValues(string(q.Kind), "cancelled").Inc()
	return nil
}

// History returns all history entries, oldest first.
func (s *Service) History(ctx context.Context) ([]portfolio.Entry, error) {
	return s.store.History(ctx)
}
