package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters for booking outcomes and sweeper runs.
// All methods are nil-safe so wiring is optional in tests and tools.
type BookingMetrics struct {
	bookingsTotal      *prometheus.CounterVec
	cancellationsTotal prometheus.Counter
	deletionsTotal     prometheus.Counter
	sweepRunsTotal     prometheus.Counter
	noShowsTotal       prometheus.Counter
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"result"}),
		cancellationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "cancellations_total",
			Help:      "Appointments cancelled",
		}),
		deletionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "deletions_total",
			Help:      "Appointments hard-deleted",
		}),
		sweepRunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "sweeper",
			Name:      "runs_total",
			Help:      "Lifecycle sweeper runs",
		}),
		noShowsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "sweeper",
			Name:      "no_shows_total",
			Help:      "Appointments rolled to no-show by the sweeper",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.cancellationsTotal, m.deletionsTotal, m.sweepRunsTotal, m.noShowsTotal)
	return m
}

func (m *BookingMetrics) ObserveBooking(result string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(result).Inc()
}

func (m *BookingMetrics) ObserveCancellation() {
	if m == nil {
		return
	}
	m.cancellationsTotal.Inc()
}

func (m *BookingMetrics) ObserveDeletion() {
	if m == nil {
		return
	}
	m.deletionsTotal.Inc()
}

func (m *BookingMetrics) ObserveSweep(marked int64) {
	if m == nil {
		return
	}
	m.sweepRunsTotal.Inc()
	m.noShowsTotal.Add(float64(marked))
}
