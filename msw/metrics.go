package msw

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	innerIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "msw_inner_iterations",
		Help:    "Inner Newton iterations per well assembly",
		Buckets: prometheus.LinearBuckets(1, 1, 10),
	})
	convergenceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "msw_convergence_failures_total",
		Help: "Abnormal well residual entries by kind",
	}, []string{"kind"})
	assemblySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "msw_assembly_seconds",
		Help:    "Time spent assembling one multisegment well",
		Buckets: prometheus.DefBuckets,
	})
)
