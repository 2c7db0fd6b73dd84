// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stormstats_analyses_total",
			Help: "Total number of analyses requested",
		},
		[]string{"kind", "outcome"},
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stormstats_analysis_duration_seconds",
			Help:    "Time taken to compute an analysis",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	RainEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stormstats_rain_events_total",
			Help: "Total number of rain events reported",
		},
	)

	WidgetInits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stormstats_widget_inits_total",
			Help: "Total number of docs widget initializations",
		},
		[]string{"outcome"},
	)

	MCPToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stormstats_mcp_tool_calls_total",
			Help: "Total number of MCP tool calls",
		},
		[]string{"tool", "outcome"},
	)
)

// Outcome labels.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)
