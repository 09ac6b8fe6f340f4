package rates

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

var (
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fx_rates_fetch_total",
		Help: "Total number of exchange rate fetches by source and result",
	}, []string{"source", "result"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fx_rates_fetch_duration_seconds",
		Help:    "Duration of exchange rate fetches",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	cacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fx_rates_cache_total",
		Help: "Exchange rate cache lookups by result (hit, miss, error)",
	}, []string{"side", "result"})

	breakerStateGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fx_rates_breaker_state",
		Help: "Current state of the rate supplier breaker (0=closed, 0.5=half-open, 1=open)",
	}, []string{"breaker"})

	breakerStateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fx_rates_breaker_state_changes_total",
		Help: "Total number of rate supplier breaker state transitions",
	}, []string{"breaker", "from", "to"})

	breakerRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fx_rates_breaker_rejected_total",
		Help: "Total number of rate requests rejected because the breaker was open",
	}, []string{"breaker"})
)

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 0.5
	case gobreaker.StateOpen:
		return 1
	default:
		return -1
	}
}

func recordBreakerStateChange(name string, from, to gobreaker.State) {
	breakerStateTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
	breakerStateGauge.WithLabelValues(name).Set(breakerStateValue(to))
}

func recordFetch(source string, err error, seconds float64) {
	result := "success"
	if err != nil {
		result = "error"
	}
	fetchTotal.WithLabelValues(source, result).Inc()
	fetchDuration.WithLabelValues(source).Observe(seconds)
}
