package attendance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var clockDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "attendance_clock_decisions_total",
	Help: "Clock-in/clock-out decisions by action, result and rejection reason.",
}, []string{"action", "result", "reason"})

func accept(action string) {
	clockDecisions.WithLabelValues(action, "accepted", "").Inc()
}

func reject(action, reason string) {
	clockDecisions.WithLabelValues(action, "rejected", reason).Inc()
}
