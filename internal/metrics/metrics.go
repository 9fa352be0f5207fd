package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stampstats",
		Subsystem: "ingest",
		Name:      "events_total",
		Help:      "Decoded events persisted to the store, per contract.",
	}, []string{"contract"})
	ChunksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stampstats",
		Subsystem: "ingest",
		Name:      "chunks_processed_total",
		Help:      "Block-range chunks fetched, decoded, and committed.",
	}, []string{"contract"})
	ChunksSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stampstats",
		Subsystem: "ingest",
		Name:      "chunks_skipped_total",
		Help:      "Chunks skipped because a completion marker already existed.",
	}, []string{"contract"})
	LastIngestedBlock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "stampstats",
		Subsystem: "ingest",
		Name:      "last_block",
		Help:      "Upper bound of the last committed chunk, per contract.",
	}, []string{"contract"})
	RPCRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stampstats",
		Subsystem: "rpc",
		Name:      "retries_total",
		Help:      "RPC attempts repeated after a rate-limit response.",
	})
	BalanceCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stampstats",
		Subsystem: "balance_cache",
		Name:      "hits_total",
		Help:      "Balance reads served from a fresh cache entry.",
	})
	BalanceCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stampstats",
		Subsystem: "balance_cache",
		Name:      "misses_total",
		Help:      "Balance reads that required a live contract call.",
	})
)
