package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus metrics. HTTP request metrics are
// recorded by the router middleware, not here.
type Metrics struct {
	// MatchedTransactions counts classified transactions by mode
	// (manual or auto).
	MatchedTransactions *prometheus.CounterVec

	RulesCreated prometheus.Counter
	RulePreviews prometheus.Counter

	DBConnections prometheus.Gauge

	// OutboxPublished counts events handed to the publisher, by event type.
	OutboxPublished *prometheus.CounterVec
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on a specific registry. Tests use this with
// a fresh registry to avoid duplicate registration.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		MatchedTransactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconcile_transactions_matched_total",
				Help: "Total number of transactions classified, by mode",
			},
			[]string{"mode"},
		),
		RulesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "reconcile_rules_created_total",
			Help: "Total number of matching rules created",
		}),
		RulePreviews: factory.NewCounter(prometheus.CounterOpts{
			Name: "reconcile_rule_previews_total",
			Help: "Total number of rule previews",
		}),
		DBConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "reconcile_db_connections",
			Help: "Current number of database connections",
		}),
		OutboxPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconcile_outbox_published_total",
				Help: "Total outbox events published, by event type",
			},
			[]string{"event_type"},
		),
	}
}
