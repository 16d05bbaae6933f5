// Package metrics holds the Prometheus collectors for the agent.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the process registry exposed at /metrics
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		RunTotal, DispatchCycles, ToolInvocations, ToolDuration, MoodTotal,
	)
}

// RunTotal counts finished runs by outcome kind ("ok" or an error kind)
var RunTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fortune_run_total",
		Help: "Finished agent runs by outcome",
	},
	[]string{"outcome"},
)

// DispatchCycles observes Deciding→Invoking cycles per run
var DispatchCycles = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "fortune_dispatch_cycles",
		Help:    "Tool cycles per dispatch loop execution",
		Buckets: []float64{0, 1, 2, 3, 4, 5, 8, 13},
	},
)

// ToolInvocations counts tool calls by tool and status
var ToolInvocations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fortune_tool_invocations_total",
		Help: "Tool invocations by tool and status",
	},
	[]string{"tool", "status"}, // ok | error | timeout | unknown | invalid
)

// ToolDuration observes tool latency in seconds
var ToolDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "fortune_tool_duration_seconds",
		Help:    "Tool invocation latency",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"tool"},
)

// MoodTotal counts classified moods
var MoodTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fortune_mood_total",
		Help: "Classified moods",
	},
	[]string{"mood"},
)

// Handler serves the registry in the Prometheus text format
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
