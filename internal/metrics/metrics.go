// Package metrics exposes Prometheus counters for the router's command
// execution and rule reconciliation activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

var (
	// CommandsTotal counts privileged commands issued to the OS.
	CommandsTotal = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: "vpnrouter",
		Name:      "commands_total",
		Help:      "Privileged OS commands executed.",
	})

	// CommandFailuresTotal counts commands that exited non-zero.
	CommandFailuresTotal = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: "vpnrouter",
		Name:      "command_failures_total",
		Help:      "Privileged OS commands that exited non-zero.",
	})

	// BypassRulesApplied counts bypass mark/forward rules installed.
	BypassRulesApplied = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: "vpnrouter",
		Name:      "bypass_rules_applied_total",
		Help:      "Bypass rules installed in the kernel.",
	})

	// BypassRulesRemoved counts bypass mark/forward rules removed.
	BypassRulesRemoved = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: "vpnrouter",
		Name:      "bypass_rules_removed_total",
		Help:      "Bypass rules removed from the kernel.",
	})

	// ApplySkippedTotal counts policy mutations whose kernel side effect
	// had to be skipped (unresolvable device or domain).
	ApplySkippedTotal = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: "vpnrouter",
		Name:      "apply_skipped_total",
		Help:      "Policy changes persisted without a kernel-state change.",
	})

	// TunnelSwitchesTotal counts successful profile activations.
	TunnelSwitchesTotal = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: "vpnrouter",
		Name:      "tunnel_switches_total",
		Help:      "Successful tunnel profile activations.",
	})
)

// Handler returns the HTTP handler serving the metrics registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
