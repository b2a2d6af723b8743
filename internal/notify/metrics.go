// ABOUTME: Prometheus metrics for delivery outcomes, exposed via /metrics.
package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// deliveriesTotal counts delivery attempts by channel kind and outcome
// (sent, retried, failed).
var deliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "digestd_deliveries_total",
	Help: "Digest delivery attempts by channel kind and outcome.",
}, []string{"kind", "outcome"})
