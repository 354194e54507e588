// Package metrics exposes durusd's Prometheus instrumentation:
// connection, command, commit, conflict, and pack counters, registered
// against the default registry and served by internal/admin.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ConnectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "durusd_connections_total",
		Help: "Total TCP connections accepted.",
	})

	ConnectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "durusd_connections_active",
		Help: "Currently connected client sessions.",
	})

	CommandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "durusd_commands_total",
		Help: "Commands handled, by command byte.",
	}, []string{"command"})

	CommitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "durusd_commits_total",
		Help: "Successful commits across all databases.",
	})

	CommitConflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "durusd_commit_conflicts_total",
		Help: "Commits rejected with INVALID due to an engine conflict.",
	})

	ClientErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "durusd_client_errors_total",
		Help: "Sessions dropped for committing another session's unused OID.",
	})

	PacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "durusd_packs_total",
		Help: "Full blocking packs performed.",
	})

	DatabasesOpen = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "durusd_databases_open",
		Help: "Currently open databases.",
	})
)

func init() {
	prometheus.MustRegister(
		ConnectionsTotal,
		ConnectionsActive,
		CommandsTotal,
		CommitsTotal,
		CommitConflictsTotal,
		ClientErrorsTotal,
		PacksTotal,
		DatabasesOpen,
	)
}
