// Package metrics exposes the daemon's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveSessions tracks currently open client sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gridhost",
		Name:      "active_sessions",
		Help:      "Number of currently open client sessions.",
	})

	// SessionsOpened counts sessions opened since process start.
	SessionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gridhost",
		Name:      "sessions_opened_total",
		Help:      "Total client sessions opened.",
	})

	// SessionsReaped counts sessions closed by the idle reaper.
	SessionsReaped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gridhost",
		Name:      "sessions_reaped_total",
		Help:      "Total client sessions closed for inactivity.",
	})

	// ReadyBackends tracks compute backends currently accepting work.
	ReadyBackends = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gridhost",
		Name:      "ready_backends",
		Help:      "Number of compute backends ready for dispatch.",
	})

	// DispatchedTasks counts work items dispatched, per backend.
	DispatchedTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gridhost",
		Name:      "dispatched_tasks_total",
		Help:      "Total work items dispatched to compute backends.",
	}, []string{"backend"})

	// HTTPRequests counts service layer requests by route and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gridhost",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests handled by the service layer.",
	}, []string{"method", "path", "status"})
)
