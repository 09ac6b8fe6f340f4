package portfolio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danyeu/fx"
)

func testOpening() Opening {
	return Opening{
		Base:  fx.USD,
		FX:    []fx.Currency{fx.EUR, fx.GBP, fx.JPY, fx.CNY},
		Start: fx.MustNewAmount(10000, 0),
	}
}

func buyEUR(spent, received fx.Amount) Trade {
	return Trade{
		Kind:      KindBuy,
		Currency:  fx.EUR,
		DeltaFX:   received,
		DeltaBase: spent.Neg(),
		Rate:      fx.MustNewRate(0, 9215),
	}
}

func sellEUR(spent, received fx.Amount) Trade {
	return Trade{
		Kind:      KindSell,
		Currency:  fx.EUR,
		DeltaFX:   spent.Neg(),
		DeltaBase: received,
		Rate:      fx.MustNewRate(0, 9216),
	}
}

// testStore runs the behaviour every Store must share.
func testStore(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("uninitialized", func(t *testing.T) {
		s := newStore(t)
		ok, err := s.Initialized(ctx)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = s.Holdings(ctx)
		assert.ErrorIs(t, err, ErrNotInitialized)
		_, err = s.Apply(ctx, buyEUR(fx.MustNewAmount(1, 0), fx.MustNewAmount(0, 92)))
		assert.ErrorIs(t, err, ErrNotInitialized)
	})

	t.Run("reset", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Reset(ctx, testOpening()))

		ok, err := s.Initialized(ctx)
		require.NoError(t, err)
		assert.True(t, ok)

		holdings, err := s.Holdings(ctx)
		require.NoError(t, err)
		assert.Equal(t, []Holding{
			{fx.USD, fx.MustNewAmount(10000, 0)},
			{fx.EUR, fx.Amount{}},
			{fx.GBP, fx.Amount{}},
			{fx.JPY, fx.Amount{}},
			{fx.CNY, fx.Amount{}},
		}, holdings)

		history, err := s.History(ctx)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, KindStart, history[0].Kind)
		assert.Equal(t, fx.USD, history[0].Currency)
		assert.Equal(t, "10000.00", history[0].DeltaBase.String())
		assert.Nil(t, history[0].Rate)
		assert.False(t, history[0].CreatedAt.IsZero())

		_, err = s.Holding(ctx, fx.CHF)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("buy then sell", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Reset(ctx, testOpening()))

		e, err := s.Apply(ctx, buyEUR(fx.MustNewAmount(100, 50), fx.MustNewAmount(92, 61)))
		require.NoError(t, err)
		assert.Equal(t, int64(2), e.ID)
		assert.Equal(t, "-100.50", e.DeltaBase.String())

		_, err = s.Apply(ctx, sellEUR(fx.MustNewAmount(92, 61), fx.MustNewAmount(100, 49)))
		require.NoError(t, err)

		usd, err := s.Holding(ctx, fx.USD)
		require.NoError(t, err)
		assert.Equal(t, "9999.99", usd.String())
		eur, err := s.Holding(ctx, fx.EUR)
		require.NoError(t, err)
		assert.True(t, eur.IsZero())

		history, err := s.History(ctx)
		require.NoError(t, err)
		require.Len(t, history, 3)
		assert.Equal(t, []Kind{KindStart, KindBuy, KindSell}, []Kind{history[0].Kind, history[1].Kind, history[2].Kind})
		assert.Equal(t, "-92.61", history[2].DeltaFX.String())
		assert.Equal(t, "100.49", history[2].DeltaBase.String())
		require.NotNil(t, history[2].Rate)
		assert.Equal(t, "0.9216", history[2].Rate.String())
	})

	t.Run("insufficient funds", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Reset(ctx, testOpening()))

		_, err := s.Apply(ctx, buyEUR(fx.MustNewAmount(10000, 1), fx.MustNewAmount(9215, 0)))
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		_, err = s.Apply(ctx, sellEUR(fx.MustNewAmount(0, 1), fx.MustNewAmount(0, 1)))
		assert.ErrorIs(t, err, ErrInsufficientFunds)

		usd, err := s.Holding(ctx, fx.USD)
		require.NoError(t, err)
		assert.Equal(t, "10000.00", usd.String())
		history, err := s.History(ctx)
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})

	t.Run("spend everything", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Reset(ctx, testOpening()))

		_, err := s.Apply(ctx, buyEUR(fx.MustNewAmount(10000, 0), fx.MustNewAmount(9215, 0)))
		require.NoError(t, err)
		usd, err := s.Holding(ctx, fx.USD)
		require.NoError(t, err)
		assert.True(t, usd.IsZero())
	})

	t.Run("reset wipes", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Reset(ctx, testOpening()))
		_, err := s.Apply(ctx, buyEUR(fx.MustNewAmount(1, 0), fx.MustNewAmount(0, 92)))
		require.NoError(t, err)

		require.NoError(t, s.Reset(ctx, testOpening()))
		history, err := s.History(ctx)
		require.NoError(t, err)
		assert.Len(t, history, 1)
		eur, err := s.Holding(ctx, fx.EUR)
		require.NoError(t, err)
		assert.True(t, eur.IsZero())
	})
}

func TestValidateTrade(t *testing.T) {
	one := fx.MustNewAmount(1, 0)
	rate := fx.MustNewRate(1, 0)
	tests := map[string]Trade{
		"against base":   {Kind: KindBuy, Currency: fx.USD, DeltaFX: one, DeltaBase: one.Neg(), Rate: rate},
		"missing rate":   {Kind: KindBuy, Currency: fx.EUR, DeltaFX: one, DeltaBase: one.Neg()},
		"buy signs":      {Kind: KindBuy, Currency: fx.EUR, DeltaFX: one.Neg(), DeltaBase: one, Rate: rate},
		"buy no spend":   {Kind: KindBuy, Currency: fx.EUR, DeltaFX: one, Rate: rate},
		"sell signs":     {Kind: KindSell, Currency: fx.EUR, DeltaFX: one, DeltaBase: one.Neg(), Rate: rate},
		"start as trade": {Kind: KindStart, Currency: fx.EUR, DeltaFX: one, Rate: rate},
	}
	for name, tr := range tests {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, validateTrade(tr, fx.USD), ErrInvalidTrade)
		})
	}

	// A tiny buy may round down to nothing received.
	assert.NoError(t, validateTrade(Trade{Kind: KindBuy, Currency: fx.EUR, DeltaBase: fx.MustNewAmount(0, 1).Neg(), Rate: rate}, fx.USD))
}

func TestValidateOpening(t *testing.T) {
	o := testOpening()
	o.Start = fx.Amount{}
	assert.ErrorIs(t, validateOpening(o), ErrInvalidTrade)

	o = testOpening()
	o.FX = append(o.FX, fx.USD)
	assert.ErrorIs(t, validateOpening(o), ErrInvalidTrade)
}

func TestSettle(t *testing.T) {
	fxNew, baseNew, err := settle(fx.MustNewAmount(0, 5), fx.MustNewAmount(1, 0), sellEUR(fx.MustNewAmount(0, 5), fx.MustNewAmount(0, 5)))
	require.NoError(t, err)
	assert.True(t, fxNew.IsZero())
	assert.Equal(t, "1.05", baseNew.String())

	_, _, err = settle(fx.MustNewAmount(0, 4), fx.MustNewAmount(1, 0), sellEUR(fx.MustNewAmount(0, 5), fx.MustNewAmount(0, 5)))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestKindValid(t *testing.T) {
	assert.True(t, KindStart.Valid())
	assert.True(t, KindBuy.Valid())
	assert.True(t, KindSell.Valid())
	assert.False(t, Kind("deposit").Valid())
}
