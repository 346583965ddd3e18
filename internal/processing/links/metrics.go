package links

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Decisions are used as outcome labels directly; store failures add one more.
const outcomeStoreUnavailable = "store_unavailable"

var (
	resolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "linkhive",
			Name:      "link_resolutions_total",
			Help:      "Short link resolutions by outcome",
		},
		[]string{"outcome"},
	)

	clickAccountingFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "linkhive",
			Name:      "link_click_accounting_failures_total",
			Help:      "Click accounting writes that failed after an allowed resolution",
		},
	)
)
