// Package metrics holds the Prometheus collectors shared by the index, query,
// aggregation and sync layers. Collectors register with the default registry
// and are exposed by the HTTP API on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mayla_specs"

var (
	IndexDocuments = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "index",
		Name:      "documents",
		Help:      "Number of specs in the committed index snapshot.",
	})

	IndexTerms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "index",
		Name:      "terms",
		Help:      "Number of distinct terms in the committed index snapshot.",
	})

	SearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "query",
		Name:      "search_duration_seconds",
		Help:      "Time spent ranking and snippeting one query.",
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
	})

	SearchResults = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "query",
		Name:      "results",
		Help:      "Number of results returned per query.",
		Buckets:   []float64{0, 1, 5, 10, 20, 50, 100, 200},
	})

	ContextDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "aggregate",
		Name:      "compute_duration_seconds",
		Help:      "Time spent computing the project context.",
		Buckets:   prometheus.DefBuckets,
	})

	ContextFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "aggregate",
		Name:      "failures_total",
		Help:      "Project context computations that failed.",
	})

	SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "runs_total",
		Help:      "Index synchronisation runs by kind and outcome.",
	}, []string{"kind", "outcome"})

	SyncChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "changes_total",
		Help:      "Specs added, updated or removed by synchronisation.",
	}, []string{"op"})
)
