package course

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	treeLoadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "researchnest",
		Subsystem: "course",
		Name:      "tree_load_duration_seconds",
		Help:      "Duration of course tree loads, by result.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"result"})

	staleLoadsDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "researchnest",
		Subsystem: "course",
		Name:      "stale_loads_discarded_total",
		Help:      "Tree loads discarded because a newer load was applied first.",
	})

	progressUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "researchnest",
		Subsystem: "course",
		Name:      "progress_updates_total",
		Help:      "Subtask status updates, by new status and result.",
	}, []string{"status", "result"})

	enrollments = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "researchnest",
		Subsystem: "course",
		Name:      "enrollments_total",
		Help:      "Course enrollments created.",
	})
)

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func observeTreeLoad(start time.Time, err error) {
	treeLoadDuration.WithLabelValues(resultLabel(err)).Observe(time.Since(start).Seconds())
}
