package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Checkins counts attendance check-ins by entry method (barcode, manual, self).
var Checkins = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "absensipro_checkins_total",
	Help: "Attendance check-ins recorded, by entry method.",
}, []string{"method"})

// BarcodesIssued counts barcode issuances.
var BarcodesIssued = promauto.NewCounter(prometheus.CounterOpts{
	Name: "absensipro_barcodes_issued_total",
	Help: "Barcodes issued by supervisors.",
})

// Decisions counts leave/overtime decisions by kind and outcome.
var Decisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "absensipro_decisions_total",
	Help: "Request decisions, by request kind and outcome.",
}, []string{"kind", "decision"})
