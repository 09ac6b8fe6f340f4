package trader

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	quotesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fx_quotes_issued_total",
		Help: "Total number of quotes issued",
	}, []string{"kind", "currency"})

	quotesClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fx_quotes_closed_total",
		Help: "Total number of quotes closed by outcome (confirmed, cancelled, expired, failed)",
	}, []string{"kind", "outcome"})

	tradesExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fx_trades_executed_total",
		Help: "Total number of trades applied to the portfolio",
	}, []string{"kind", "currency"})

	portfolioResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fx_portfolio_resets_total",
		Help: "Total number of portfolio resets",
	})
)
