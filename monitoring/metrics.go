package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_store_operations_total",
			Help: "Total ticket store operations",
		},
		[]string{"operation", "status"},
	)

	storeOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ticket_store_operation_duration_seconds",
			Help:    "Duration of ticket store operations",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"operation"},
	)

	ticketsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_created_total",
			Help: "Tickets persisted after checkout",
		},
		[]string{"ticket_type", "initial_status"},
	)

	statusRepairs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_status_repairs_total",
			Help: "Stored upcoming tickets corrected to expired on read",
		},
		[]string{"status"},
	)

	schemaColumns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_schema_columns_total",
			Help: "Additive column migrations by outcome",
		},
		[]string{"column", "result"},
	)

	calendarEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_calendar_events_total",
			Help: "Calendar registrations by outcome",
		},
		[]string{"status"},
	)
)

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// TrackStoreOperation records the outcome and latency of a store call.
func TrackStoreOperation(operation string, start time.Time, err error) {
	storeOperations.WithLabelValues(operation, statusLabel(err)).Inc()
	storeOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func TrackTicketCreated(ticketType, initialStatus string) {
	ticketsCreated.WithLabelValues(ticketType, initialStatus).Inc()
}

func TrackStatusRepair(err error) {
	statusRepairs.WithLabelValues(statusLabel(err)).Inc()
}

// TrackSchemaColumn records whether a migration added a column or found it present.
func TrackSchemaColumn(column, result string) {
	schemaColumns.WithLabelValues(column, result).Inc()
}

func TrackCalendarEvent(status string) {
	calendarEvents.WithLabelValues(status).Inc()
}
