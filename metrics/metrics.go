package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AppsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sandbox_apps_created_total",
		Help: "Creation attempts by outcome (ready, terminated, failed).",
	}, []string{"outcome"})

	Edits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sandbox_app_edits_total",
		Help: "Edit attempts by outcome (ok, invalid_state, generation, delivery).",
	}, []string{"outcome"})

	HeartbeatAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sandbox_heartbeat_attempts_total",
		Help: "Heartbeat probes by result.",
	}, []string{"result"})

	Terminations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sandbox_terminations_total",
		Help: "Terminate calls by result.",
	}, []string{"result"})

	CleanupRemoved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sandbox_cleanup_removed_total",
		Help: "Catalogue entries dropped by reconciliation, by reason.",
	}, []string{"reason"})

	ConsistencyFaults = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sandbox_directory_consistency_faults_total",
		Help: "Catalogue entries without a readable data record.",
	})

	CatalogueSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sandbox_catalogue_apps",
		Help: "Apps in the catalogue after the last load.",
	})
)

func init() {
	prometheus.MustRegister(AppsCreated, Edits, HeartbeatAttempts, Terminations,
		CleanupRemoved, ConsistencyFaults, CatalogueSize)
}

// Handler exposition handler for /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
