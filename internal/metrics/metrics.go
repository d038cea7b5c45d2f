package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScreenTicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metalshud_screen_ticks_total",
		Help: "Total number of refresh ticks applied, by screen kind",
	}, []string{"screen"})

	OracleFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metalshud_oracle_fetches_total",
		Help: "Total number of price source calls, by source and outcome",
	}, []string{"source", "outcome"})

	Fallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metalshud_oracle_fallbacks_total",
		Help: "Total number of fallback snapshots served, by reason",
	}, []string{"reason"})

	OracleLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "metalshud_oracle_latency_seconds",
		Help:    "Latency of price source calls",
		Buckets: []float64{0.05, 0.1, 0.2, 0.4, 0.6, 0.8, 1, 2, 5, 10},
	}, []string{"source"})

	ManualRefreshFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "metalshud_manual_refresh_failures_total",
		Help: "Total number of failed manual refreshes",
	})

	MountedScreens = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "metalshud_mounted_screens",
		Help: "Number of currently mounted screens, by kind",
	}, []string{"screen"})
)
