package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CascadeOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "imagedrive_cascade_operations_total",
		Help: "Completed cascade operations by kind",
	}, []string{"operation"})

	DestroyFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "imagedrive_destroy_failures_total",
		Help: "Object store destroy calls that failed during purges",
	})

	SweepPurged = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "imagedrive_sweep_purged_total",
		Help: "Items purged by the trash retention sweeper",
	}, []string{"item_type"})

	SweepFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "imagedrive_sweep_failures_total",
		Help: "Items the trash retention sweeper failed to purge",
	})
)

func init() {
	prometheus.MustRegister(CascadeOperations)
	prometheus.MustRegister(DestroyFailures)
	prometheus.MustRegister(SweepPurged)
	prometheus.MustRegister(SweepFailures)
}
