package trader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/danyeu/fx"
	"github.com/danyeu/fx/internal/portfolio"
	"github.com/danyeu/fx/internal/rates"
)

// MockStore is an in-package mock for testing
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Initialized(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) Reset(ctx context.Context, o portfolio.Opening) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockStore) Holdings(ctx context.Context) ([]portfolio.Holding, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]portfolio.Holding), args.Error(1)
}

func (m *MockStore) Holding(ctx context.Context, curr fx.Currency) (fx.Amount, error) {
	args := m.Called(ctx, curr)
	return args.Get(0).(fx.Amount), args.Error(1)
}

func (m *MockStore) Apply(ctx context.Context, t portfolio.Trade) (portfolio.Entry, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(portfolio.Entry), args.Error(1)
}

func (m *MockStore) History(ctx context.Context) ([]portfolio.Entry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]portfolio.Entry), args.Error(1)
}

// MockSupplier is an in-package mock for testing
type MockSupplier struct {
	mock.Mock
}

func (m *MockSupplier) Rates(ctx context.Context, side rates.Side) (map[fx.Currency]fx.Rate, error) {
	args := m.Called(ctx, side)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[fx.Currency]fx.Rate), args.Error(1)
}

var (
	buyRates = map[fx.Currency]fx.Rate{
		fx.EUR: fx.MustNewRate(0, 9215),
		fx.GBP: fx.MustNewRate(0, 7923),
		fx.JPY: fx.MustNewRate(149, 8765),
		fx.CNY: fx.MustNewRate(7, 2345),
	}
	sellRates = map[fx.Currency]fx.Rate{
		fx.EUR: fx.MustNewRate(0, 9216),
		fx.GBP: fx.MustNewRate(0, 7924),
		fx.JPY: fx.MustNewRate(149, 8766),
		fx.CNY: fx.MustNewRate(7, 2346),
	}
)

func testConfig() Config {
	return Config{
		Base:     fx.USD,
		FX:       []fx.Currency{fx.EUR, fx.GBP, fx.JPY, fx.CNY},
		Start:    fx.MustNewAmount(10000, 0),
		QuoteTTL: 10 * time.Second,
	}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newMockedService() (*Service, *MockStore, *MockSupplier, *fakeClock) {
	store := new(MockStore)
	supplier := new(MockSupplier)
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := NewService(store, supplier, testConfig())
	s.now = clock.now
	return s, store, supplier, clock
}

func TestNewService_DefaultTTL(t *testing.T) {
	cfg := testConfig()
	cfg.QuoteTTL = 0
	s := NewService(new(MockStore), new(MockSupplier), cfg)
	assert.Equal(t, 10*time.Second, s.QuoteTTL())
	assert.Equal(t, fx.USD, s.Base())
	assert.Equal(t, cfg.FX, s.Currencies())
	assert.Equal(t, "USD 10000.00", s.Start().String())
}

func TestInit(t *testing.T) {
	t.Run("existing portfolio", func(t *testing.T) {
		s, store, _, _ := newMockedService()
		store.On("Initialized", mock.Anything).Return(true, nil)

		fresh, err := s.Init(context.Background())
		require.NoError(t, err)
		assert.False(t, fresh)
		store.AssertNotCalled(t, "Reset", mock.Anything, mock.Anything)
	})

	t.Run("fresh portfolio", func(t *testing.T) {
		s, store, _, _ := newMockedService()
		store.On("Initialized", mock.Anything).Return(false, nil)
		store.On("Reset", mock.Anything, portfolio.Opening{
			Base:  fx.USD,
			FX:    []fx.Currency{fx.EUR, fx.GBP, fx.JPY, fx.CNY},
			Start: fx.MustNewAmount(10000, 0),
		}).Return(nil)

		fresh, err := s.Init(context.Background())
		require.NoError(t, err)
		assert.True(t, fresh)
		store.AssertExpectations(t)
	})

	t.Run("store error", func(t *testing.T) {
		s, store, _, _ := newMockedService()
		store.On("Initialized", mock.Anything).Return(false, errors.New("disk full"))

		_, err := s.Init(context.Background())
		assert.ErrorContains(t, err, "disk full")
	})
}

func TestParseCurrency(t *testing.T) {
	s, _, _, _ := newMockedService()

	curr, err := s.ParseCurrency(" eur ")
	require.NoError(t, err)
	assert.Equal(t, fx.EUR, curr)

	for _, code := range []string{"USD", "CHF", "ABC", ""} {
		_, err := s.ParseCurrency(code)
		assert.ErrorIs(t, err, ErrInvalidCurrency, code)
	}
}

func TestRates(t *testing.T) {
	s, _, supplier, _ := newMockedService()
	supplier.On("Rates", mock.Anything, rates.Buy).Return(buyRates, nil)

	got, err := s.Rates(context.Background(), rates.Buy)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, CurrencyRate{fx.EUR, fx.MustNewRate(0, 9215)}, got[0])
	assert.Equal(t, CurrencyRate{fx.CNY, fx.MustNewRate(7, 2345)}, got[3])
}

func TestRates_Missing(t *testing.T) {
	s, _, supplier, _ := newMockedService()
	supplier.On("Rates", mock.Anything, rates.Sell).Return(map[fx.Currency]fx.Rate{fx.EUR: fx.MustNewRate(1, 0)}, nil)

	_, err := s.Rates(context.Background(), rates.Sell)
	assert.ErrorIs(t, err, rates.ErrUnavailable)
}

func TestPortfolio(t *testing.T) {
	s, store, supplier, _ := newMockedService()
	store.On("Holdings", mock.Anything).Return([]portfolio.Holding{
		{Currency: fx.USD, Amount: fx.MustNewAmount(9899, 50)},
		{Currency: fx.EUR, Amount: fx.MustNewAmount(92, 61)},
		{Currency: fx.GBP, Amount: fx.Amount{}},
		{Currency: fx.JPY, Amount: fx.Amount{}},
		{Currency: fx.CNY, Amount: fx.Amount{}},
	}, nil)
	supplier.On("Rates", mock.Anything, rates.Sell).Return(sellRates, nil)

	v, err := s.Portfolio(context.Background())
	require.NoError(t, err)
	// 9899.50 + 92.61 / 0.9216 = 9999.9882...
	assert.Equal(t, "9999.99", v.Value.String())
	assert.True(t, v.Return.IsZero(), v.Return.String())
	assert.Len(t, v.Holdings, 5)
	assert.Equal(t, fx.USD, v.Base)
}

func TestPortfolio_Return(t *testing.T) {
	s, store, supplier, _ := newMockedService()
	store.On("Holdings", mock.Anything).Return([]portfolio.Holding{
		{Currency: fx.USD, Amount: fx.MustNewAmount(5000, 0)},
		{Currency: fx.JPY, Amount: fx.MustNewAmount(1000000, 0)},
	}, nil)
	supplier.On("Rates", mock.Anything, rates.Sell).Return(map[fx.Currency]fx.Rate{fx.JPY: fx.MustNewRate(100, 0)}, nil)

	v, err := s.Portfolio(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "15000.00", v.Value.String())
	assert.Equal(t, "50.00", v.Return.String())
}

func TestPercentReturn(t *testing.T) {
	ret, err := percentReturn(decimal.MustParse("9876.54321"), decimal.MustParse("10000"))
	require.NoError(t, err)
	assert.Equal(t, "-1.23", ret.Round(2).Pad(2).String())
}

func TestPortfolio_RatesUnavailable(t *testing.T) {
	s, store, supplier, _ := newMockedService()
	store.On("Holdings", mock.Anything).Return([]portfolio.Holding{{Currency: fx.USD, Amount: fx.MustNewAmount(1, 0)}}, nil)
	supplier.On("Rates", mock.Anything, rates.Sell).Return(nil, rates.ErrUnavailable)

	_, err := s.Portfolio(context.Background())
	assert.ErrorIs(t, err, rates.ErrUnavailable)
}

func TestQuoteBuy(t *testing.T) {
	s, store, supplier, clock := newMockedService()
	store.On("Holding", mock.Anything, fx.USD).Return(fx.MustNewAmount(10000, 0), nil)
	supplier.On("Rates", mock.Anything, rates.Buy).Return(buyRates, nil)

	q, err := s.QuoteBuy(context.Background(), fx.EUR, " 100.50 ")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, q.ID)
	assert.Equal(t, portfolio.KindBuy, q.Kind)
	assert.Equal(t, "Buy EUR 92.61 for USD 100.50", q.String())
	assert.Equal(t, clock.t.Add(10*time.Second), q.ExpiresAt)
	assert.Equal(t, fx.MustNewRate(0, 9215), q.Rate)
}

func TestQuoteSell(t *testing.T) {
	s, store, supplier, _ := newMockedService()
	store.On("Holding", mock.Anything, fx.EUR).Return(fx.MustNewAmount(92, 61), nil)
	supplier.On("Rates", mock.Anything, rates.Sell).Return(sellRates, nil)

	q, err := s.QuoteSell(context.Background(), fx.EUR, "92.61")
	require.NoError(t, err)
	assert.Equal(t, portfolio.KindSell, q.Kind)
	assert.Equal(t, "Buy USD 100.48 for EUR 92.61", q.String())
}

func TestRequestQuote_Errors(t *testing.T) {
	tests := map[string]struct {
		curr     fx.Currency
		quantity string
		want     error
	}{
		"base currency":  {fx.USD, "1", ErrInvalidCurrency},
		"not configured": {fx.CHF, "1", ErrInvalidCurrency},
		"non-numeric":    {fx.EUR, "ten", ErrInvalidQuantity},
		"too precise":    {fx.EUR, "1.001", ErrInvalidQuantity},
		"negative":       {fx.EUR, "-1", ErrInvalidQuantity},
		"empty":          {fx.EUR, "", ErrInvalidQuantity},
		"zero":           {fx.EUR, "0.00", ErrZeroQuantity},
		"more than held": {fx.EUR, "10000.01", ErrInsufficientFunds},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s, store, _, _ := newMockedService()
			store.On("Holding", mock.Anything, fx.USD).Return(fx.MustNewAmount(10000, 0), nil)

			_, err := s.QuoteBuy(context.Background(), tt.curr, tt.quantity)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestConfirm(t *testing.T) {
	s, store, supplier, _ := newMockedService()
	store.On("Holding", mock.Anything, fx.USD).Return(fx.MustNewAmount(10000, 0), nil)
	supplier.On("Rates", mock.Anything, rates.Buy).Return(buyRates, nil)

	q, err := s.QuoteBuy(context.Background(), fx.EUR, "100.50")
	require.NoError(t, err)

	want := portfolio.Trade{
		Kind:      portfolio.KindBuy,
		Currency:  fx.EUR,
		DeltaFX:   fx.MustNewAmount(92, 61),
		DeltaBase: fx.MustNewAmount(-100, -50),
		Rate:      fx.MustNewRate(0, 9215),
	}
	store.On("Apply", mock.Anything, want).Return(portfolio.Entry{ID: 2, Kind: portfolio.KindBuy}, nil).Once()

	entry, err := s.Confirm(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), entry.ID)
	store.AssertExpectations(t)

	// A quote can only be confirmed once.
	_, err = s.Confirm(context.Background(), q.ID)
	assert.ErrorIs(t, err, ErrQuoteNotFound)
}

func TestConfirm_Expired(t *testing.T) {
	s, store, supplier, clock := newMockedService()
	store.On("Holding", mock.Anything, fx.USD).Return(fx.MustNewAmount(10000, 0), nil)
	supplier.On("Rates", mock.Anything, rates.Buy).Return(buyRates, nil)

	q, err := s.QuoteBuy(context.Background(), fx.GBP, "10")
	require.NoError(t, err)

	clock.advance(10 * time.Second)
	_, err = s.Confirm(context.Background(), q.ID)
	assert.ErrorIs(t, err, ErrQuoteExpired)
	store.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything)

	_, err = s.Confirm(context.Background(), q.ID)
	assert.ErrorIs(t, err, ErrQuoteNotFound)
}

func TestConfirm_FundsSpentMeanwhile(t *testing.T) {
	s, store, supplier, _ := newMockedService()
	store.On("Holding", mock.Anything, fx.USD).Return(fx.MustNewAmount(10000, 0), nil)
	supplier.On("Rates", mock.Anything, rates.Buy).Return(buyRates, nil)
	store.On("Apply", mock.Anything, mock.Anything).Return(portfolio.Entry{}, portfolio.ErrInsufficientFunds)

	q, err := s.QuoteBuy(context.Background(), fx.JPY, "10000")
	require.NoError(t, err)

	_, err = s.Confirm(context.Background(), q.ID)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestCancel(t *testing.T) {
	s, store, supplier, _ := newMockedService()
	store.On("Holding", mock.Anything, fx.USD).Return(fx.MustNewAmount(10000, 0), nil)
	supplier.On("Rates", mock.Anything, rates.Buy).Return(buyRates, nil)

	q, err := s.QuoteBuy(context.Background(), fx.CNY, "1")
	require.NoError(t, err)

	require.NoError(t, s.Cancel(q.ID))
	assert.ErrorIs(t, s.Cancel(q.ID), ErrQuoteNotFound)
	_, err = s.Confirm(context.Background(), q.ID)
	assert.ErrorIs(t, err, ErrQuoteNotFound)
}

func TestExpiredQuotesArePruned(t *testing.T) {
	s, store, supplier, clock := newMockedService()
	store.On("Holding", mock.Anything, fx.USD).Return(fx.MustNewAmount(10000, 0), nil)
	supplier.On("Rates", mock.Anything, rates.Buy).Return(buyRates, nil)

	for i := 0; i < 3; i++ {
		_, err := s.QuoteBuy(context.Background(), fx.EUR, "1")
		require.NoError(t, err)
	}
	clock.advance(time.Minute)
	_, err := s.QuoteBuy(context.Background(), fx.EUR, "1")
	require.NoError(t, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Len(t, s.quotes, 1)
}

func TestReset_DropsQuotes(t *testing.T) {
	s, store, supplier, _ := newMockedService()
	store.On("Holding", mock.Anything, fx.USD).Return(fx.MustNewAmount(10000, 0), nil)
	store.On("Reset", mock.Anything, mock.Anything).Return(nil)
	supplier.On("Rates", mock.Anything, rates.Buy).Return(buyRates, nil)

	q, err := s.QuoteBuy(context.Background(), fx.EUR, "1")
	require.NoError(t, err)
	require.NoError(t, s.Reset(context.Background()))

	_, err = s.Confirm(context.Background(), q.ID)
	assert.ErrorIs(t, err, ErrQuoteNotFound)
}

func TestRoundTripWithRealStore(t *testing.T) {
	ctx := context.Background()
	market := map[fx.Currency]decimal.Decimal{
		fx.EUR: decimal.MustParse("0.92155"),
		fx.GBP: decimal.MustParse("0.7923"),
		fx.JPY: decimal.MustParse("149.87654"),
		fx.CNY: decimal.MustParse("7.2345"),
	}
	supplier, err := rates.NewStatic(market, testConfig().FX)
	require.NoError(t, err)
	s := NewService(portfolio.NewMemory(), supplier, testConfig())

	fresh, err := s.Init(ctx)
	require.NoError(t, err)
	assert.True(t, fresh)

	buy, err := s.QuoteBuy(ctx, fx.EUR, "100.50")
	require.NoError(t, err)
	assert.Equal(t, "Buy EUR 92.61 for USD 100.50", buy.String())
	_, err = s.Confirm(ctx, buy.ID)
	require.NoError(t, err)

	sell, err := s.QuoteSell(ctx, fx.EUR, "92.61")
	require.NoError(t, err)
	assert.Equal(t, "Buy USD 100.48 for EUR 92.61", sell.String())
	_, err = s.Confirm(ctx, sell.ID)
	require.NoError(t, err)

	usd, err := s.Available(ctx, fx.USD)
	require.NoError(t, err)
	assert.Equal(t, "9999.98", usd.String())

	history, err := s.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "-100.50", history[1].DeltaBase.String())
	assert.Equal(t, "100.48", history[2].DeltaBase.String())

	v, err := s.Portfolio(ctx)
	require.NoError(t, err)
	assert.Equal(t, "9999.98", v.Value.String())
	assert.True(t, v.Return.IsZero(), v.Return.String())
}
