package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	priceLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciler_price_lookups_total",
			Help: "Price lookups by outcome (stable, cache_hit, feed, error)",
		},
		[]string{"outcome"},
	)

	blockLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciler_block_lookups_total",
			Help: "Timestamp to block lookups by outcome (memo, repository, explorer, miss, error)",
		},
		[]string{"outcome"},
	)

	logChunkRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconciler_log_chunk_retries_total",
			Help: "Log search chunks retried with a halved block span",
		},
	)

	logsCollectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconciler_transfer_logs_collected_total",
			Help: "Transfer logs decoded by the collector",
		},
	)

	protocolFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciler_protocol_failures_total",
			Help: "Soft failures recorded in balance summaries",
		},
		[]string{"protocol"},
	)

	netTransferDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reconciler_net_transfer_duration_seconds",
			Help:    "Time taken to compute a net-transfer result",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)
)
