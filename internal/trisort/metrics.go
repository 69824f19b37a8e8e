package trisort

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	trianglesSorted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trisort_triangles_sorted_total",
		Help: "Number of triangles processed by the inserter.",
	})

	bucketAssignments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trisort_bucket_assignments_total",
		Help: "Number of triangle references appended to buckets.",
	})

	treesMerged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trisort_trees_merged_total",
		Help: "Number of partial trees folded into a merger.",
	})

	shardLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trisort_shard_build_seconds",
		Help:    "Time to build one shard of a parallel build.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	})
)

func observeShard(start time.Time) {
	shardLatency.Observe(time.Since(start).Seconds())
}
