// Package metrics exposes booking counters for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder counts meeting lifecycle events. A nil Recorder discards everything.
type Recorder struct {
	registry     *prometheus.Registry
	booked       *prometheus.CounterVec
	rejected     *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	notesSaved   prometheus.Counter
	httpRequests *prometheus.CounterVec
}

// NewRecorder registers the scheduler counters together with the Go and process collectors.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	r := &Recorder{
		registry: registry,
		booked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mentoring",
			Name:      "meetings_booked_total",
			Help:      "Meetings booked, by category.",
		}, []string{"category"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mentoring",
			Name:      "bookings_rejected_total",
			Help:      "Booking attempts rejected, by reason.",
		}, []string{"reason"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mentoring",
			Name:      "meeting_transitions_total",
			Help:      "Meeting status transitions, by target status.",
		}, []string{"status"}),
		notesSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mentoring",
			Name:      "notes_saved_total",
			Help:      "Meeting notes saved by mentors.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mentoring",
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method and status code.",
		}, []string{"method", "code"}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.booked, r.rejected, r.transitions, r.notesSaved, r.httpRequests,
	)
	return r
}

// MeetingBooked counts a successful booking.
func (r *Recorder) MeetingBooked(category string) {
	if r == nil {
		return
	}
	r.booked.WithLabelValues(category).Inc()
}

// BookingRejected counts a rejected booking attempt.
func (r *Recorder) BookingRejected(reason string) {
	if r == nil {
		return
	}
	r.rejected.WithLabelValues(reason).Inc()
}

// MeetingTransitioned counts a status change.
func (r *Recorder) MeetingTransitioned(status string) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(status).Inc()
}

// NotesSaved counts a notes write.
func (r *Recorder) NotesSaved() {
	if r == nil {
		return
	}
	r.notesSaved.Inc()
}

// InstrumentHandler counts requests served by next.
func (r *Recorder) InstrumentHandler(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return promhttp.InstrumentHandlerCounter(r.httpRequests, next)
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
