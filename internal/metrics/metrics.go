package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChecksRun counts completed alert check cycles (scheduled or manual).
	ChecksRun = promauto.NewCounter(prometheus.CounterOpts{
		Name: "momentum_check_cycles_total",
		Help: "Completed alert check cycles.",
	})

	// SignalsTriggered counts triggered crossover signals by type.
	SignalsTriggered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "momentum_signals_triggered_total",
		Help: "Triggered crossover signals by type (buy/sell).",
	}, []string{"type"})

	// MarketFetches counts market data lookups by outcome (hit/fetch/error).
	MarketFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "momentum_market_fetches_total",
		Help: "Market data lookups by outcome.",
	}, []string{"outcome"})

	// AnalyzeRequests counts analyze API requests served.
	AnalyzeRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "momentum_analyze_requests_total",
		Help: "Analyze API requests served.",
	})
)
