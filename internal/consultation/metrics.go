package consultation

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts lifecycle commands by outcome.
type Metrics struct {
	transitions *prometheus.CounterVec
	slotsServed prometheus.Histogram
}

// NewMetrics registers the lifecycle collectors on reg (default registerer when nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telemed",
			Subsystem: "consultation",
			Name:      "transitions_total",
			Help:      "Lifecycle commands by transition and outcome",
		}, []string{"transition", "outcome"}),
		slotsServed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "telemed",
			Subsystem: "consultation",
			Name:      "available_slots",
			Help:      "Number of free slots returned per availability query",
			Buckets:   []float64{0, 1, 2, 4, 8, 16},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitions, m.slotsServed)
	return m
}

// ObserveTransition records one command and its outcome label.
func (m *Metrics) ObserveTransition(transition string, err error) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(transition, outcome(err)).Inc()
}

// ObserveAvailability records how many slots a query returned.
func (m *Metrics) ObserveAvailability(n int) {
	if m == nil {
		return
	}
	m.slotsServed.Observe(float64(n))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrSlotUnavailable):
		return "slot_unavailable"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrMalformedTimeSlot):
		return "malformed_time_slot"
	default:
		return "error"
	}
}
