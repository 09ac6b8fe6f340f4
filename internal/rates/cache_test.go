package rates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/danyeu/fx"
)

func TestCache_Hit(t *testing.T) {
	client, rmock := redismock.NewClientMock()
	inner := new(mockSupplier)
	c := NewCache(inner, client, time.Minute, "")

	rmock.ExpectGet("fx:rates:buy").SetVal(`{"EUR":"0.9215","JPY":"149.8765"}`)

	got, err := c.Rates(context.Background(), Buy)
	require.NoError(t, err)
	assert.Equal(t, map[fx.Currency]fx.Rate{
		fx.EUR: fx.MustNewRate(0, 9215),
		fx.JPY: fx.MustNewRate(149, 8765),
	}, got)
	inner.AssertNotCalled(t, "Rates", mock.Anything, mock.Anything)
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestCache_MissStores(t *testing.T) {
	client, rmock := redismock.NewClientMock()
	quoted := map[fx.Currency]fx.Rate{
		fx.GBP: fx.MustNewRate(0, 7924),
		fx.EUR: fx.MustNewRate(0, 9216),
	}
	inner := new(mockSupplier)
	inner.On("Rates", mock.Anything, Sell).Return(quoted, nil).Once()
	c := NewCache(inner, client, 30*time.Second, "test:")

	rmock.ExpectGet("test:sell").RedisNil()
	rmock.ExpectSet("test:sell", `{"EUR":"0.9216","GBP":"0.7924"}`, 30*time.Second).SetVal("OK")

	got, err := c.Rates(context.Background(), Sell)
	require.NoError(t, err)
	assert.Equal(t, quoted, got)
	inner.AssertExpectations(t)
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestCache_RedisDown(t *testing.T) {
	client, rmock := redismock.NewClientMock()
	quoted := map[fx.Currency]fx.Rate{fx.CNY: fx.MustNewRate(7, 2345)}
	inner := new(mockSupplier)
	inner.On("Rates", mock.Anything, Buy).Return(quoted, nil).Once()
	c := NewCache(inner, client, time.Minute, "")

	rmock.ExpectGet("fx:rates:buy").SetErr(errors.New("dial tcp: connection refused"))
	rmock.ExpectSet("fx:rates:buy", `{"CNY":"7.2345"}`, time.Minute).SetErr(errors.New("dial tcp: connection refused"))

	got, err := c.Rates(context.Background(), Buy)
	require.NoError(t, err)
	assert.Equal(t, quoted, got)
	inner.AssertExpectations(t)
}

func TestCache_MalformedEntry(t *testing.T) {
	client, rmock := redismock.NewClientMock()
	quoted := map[fx.Currency]fx.Rate{fx.EUR: fx.MustNewRate(0, 9215)}
	inner := new(mockSupplier)
	inner.On("Rates", mock.Anything, Buy).Return(quoted, nil).Once()
	c := NewCache(inner, client, time.Minute, "")

	rmock.ExpectGet("fx:rates:buy").SetVal(`{"EUR":"-1"}`)
	rmock.ExpectSet("fx:rates:buy", `{"EUR":"0.9215"}`, time.Minute).SetVal("OK")

	got, err := c.Rates(context.Background(), Buy)
	require.NoError(t, err)
	assert.Equal(t, quoted, got)
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestCache_InnerError(t *testing.T) {
	client, rmock := redismock.NewClientMock()
	inner := new(mockSupplier)
	inner.On("Rates", mock.Anything, Buy).Return(nil, ErrUnavailable).Once()
	c := NewCache(inner, client, time.Minute, "")

	rmock.ExpectGet("fx:rates:buy").RedisNil()

	_, err := c.Rates(context.Background(), Buy)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestCache_Invalidate(t *testing.T) {
	client, rmock := redismock.NewClientMock()
	c := NewCache(new(mockSupplier), client, time.Minute, "")

	rmock.ExpectDel("fx:rates:buy", "fx:rates:sell").SetVal(2)
	require.NoError(t, c.Invalidate(context.Background()))
	assert.NoError(t, rmock.ExpectationsWereMet())
}
