package masstrace

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tracesBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mztrace_traces_built_total",
		Help: "Mass traces built and added to a cache",
	})

	// Labels: "hit", "miss"
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mztrace_cache_lookups_total",
		Help: "Trace cache lookups by result",
	}, []string{"result"})

	// Labels: "single", "scored", "failed"
	extensionSteps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mztrace_extension_steps_total",
		Help: "Attempts to extend a trace by one scan, by outcome",
	}, []string{"outcome"})
)

// Resolved label values, the extension loop is hot
var (
	cacheHits      = cacheLookups.WithLabelValues("hit")
	cacheMisses    = cacheLookups.WithLabelValues("miss")
	extendedSingle = extensionSteps.WithLabelValues("single")
	extendedScored = extensionSteps.WithLabelValues("scored")
	extendFailed   = extensionSteps.WithLabelValues("failed")
)
