// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PipelineRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrumbot_pipeline_requests_total",
			Help: "Total number of /fullpipeline/run calls by phase and outcome",
		},
		[]string{"phase", "outcome"},
	)

	PipelineRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "scrumbot_pipeline_request_duration_seconds",
			Help: "Duration of /fullpipeline/run calls in seconds",
		},
		[]string{"phase"},
	)

	FlowTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrumbot_flow_transitions_total",
			Help: "Standup intake state transitions",
		},
		[]string{"from", "to"},
	)

	FlowOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrumbot_flow_outcomes_total",
			Help: "Terminal standup intake outcomes (saved, cancelled)",
		},
		[]string{"outcome"},
	)

	FlowRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scrumbot_flow_requests_in_flight",
			Help: "Number of intake flows with a pending request",
		},
	)

	DashboardRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrumbot_dashboard_requests_total",
			Help: "Dashboard backend calls by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)
)
