package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

/************************************************
/**** MARK: DROP REASONS ****/
/************************************************/
const DROP_UNAUTHORIZED = "unauthorized"
const DROP_STORE_UNAVAILABLE = "store_unavailable"
const DROP_GROUP_INGEST_FAILED = "group_ingest_failed"
const DROP_RATE_LIMITED = "rate_limited"
const DROP_QUEUE_FULL = "queue_full"

// Metrics groups every counter the bot exposes. Each instance owns its registry,
// so tests can build as many as they want.
type Metrics struct {
	Registry *prometheus.Registry

	EventsDropped       *prometheus.CounterVec
	CommandsHandled     *prometheus.CounterVec
	SubscriptionsSwept  prometheus.Counter
	SweepFailures       prometheus.Counter
	SearchNotifications prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		EventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledgerbot",
			Name:      "events_dropped_total",
			Help:      "Inbound chat events dropped without a reply, by reason.",
		}, []string{"reason"}),
		CommandsHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledgerbot",
			Name:      "commands_handled_total",
			Help:      "Chat commands executed, by command name and outcome.",
		}, []string{"command", "outcome"}),
		SubscriptionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledgerbot",
			Name:      "subscriptions_expired_total",
			Help:      "Subscriptions moved to expired by the sweep.",
		}),
		SweepFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledgerbot",
			Name:      "sweep_failures_total",
			Help:      "Sweep runs that ended with an error.",
		}),
		SearchNotifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledgerbot",
			Name:      "search_notifications_total",
			Help:      "Active-search match notifications sent.",
		}),
	}
	m.Registry.MustRegister(
		m.EventsDropped,
		m.CommandsHandled,
		m.SubscriptionsSwept,
		m.SweepFailures,
		m.SearchNotifications,
		collectors.NewGoCollector(),
	)
	return m
}

// Dropped counts one silently dropped event.
func (m *Metrics) Dropped(reason string) {
	if m == nil {
		return
	}
	m.EventsDropped.WithLabelValues(reason).Inc()
}

// Command counts one executed command.
func (m *Metrics) Command(name, outcome string) {
	if m == nil {
		return
	}
	m.CommandsHandled.WithLabelValues(name, outcome).Inc()
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
