package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autoservice",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "autoservice",
			Name:      "bookings_created_total",
			Help:      "Successfully committed bookings.",
		},
	)

	bookingsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autoservice",
			Name:      "bookings_rejected_total",
			Help:      "Booking commits rejected by reason.",
		},
		[]string{"reason"},
	)

	notifyFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autoservice",
			Name:      "notification_failures_total",
			Help:      "Failed notification deliveries by channel.",
		},
		[]string{"channel"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingsCreated, bookingsRejected, notifyFailures)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncBookingCreated counts a committed booking.
func IncBookingCreated() {
	bookingsCreated.Inc()
}

// IncBookingRejected counts a rejected commit: duplicate, full, unavailable.
func IncBookingRejected(reason string) {
	bookingsRejected.WithLabelValues(reason).Inc()
}

// IncNotifyFailure counts a failed delivery for a channel.
func IncNotifyFailure(channel string) {
	notifyFailures.WithLabelValues(channel).Inc()
}
