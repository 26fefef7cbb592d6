package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels for discountApplications besides the failure kinds.
const (
	resultApplied = "applied"
	resultLegacy  = "legacy"
)

var (
	discountApplications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dtstore",
			Name:      "discount_applications_total",
			Help:      "Discount code applications by result",
		},
		[]string{"result"},
	)

	usageWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dtstore",
			Name:      "discount_usage_write_failures_total",
			Help:      "Usage increments that could not be recorded in the discount registry",
		},
	)
)
