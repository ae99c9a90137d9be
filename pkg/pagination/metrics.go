package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	feedPagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_feed_pages_total",
		Help: "Total feed page fetches by outcome",
	}, []string{"outcome"}) // "appended", "failed", "stale"

	feedRequestsIgnoredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_feed_requests_ignored_total",
		Help: "Total RequestMore calls ignored by the in-flight guard, by feed state",
	}, []string{"state"})
)
