package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestBookingMetricsCounters(t *testing.T) {
	m := NewBookingMetrics(prometheus.NewRegistry())

	m.ObserveBooking("booked")
	m.ObserveBooking("booked")
	m.ObserveBooking("slot_unavailable")
	m.ObserveCancellation()
	m.ObserveDeletion()
	m.ObserveSweep(3)
	m.ObserveSweep(0)

	require.Equal(t, float64(2), testutil.ToFloat64(m.bookingsTotal.WithLabelValues("booked")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.bookingsTotal.WithLabelValues("slot_unavailable")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.cancellationsTotal))
	require.Equal(t, float64(1), testutil.ToFloat64(m.deletionsTotal))
	require.Equal(t, float64(2), testutil.ToFloat64(m.sweepRunsTotal))
	require.Equal(t, float64(3), testutil.ToFloat64(m.noShowsTotal))
}

func TestBookingMetricsNilSafe(t *testing.T) {
	var m *BookingMetrics

	// None of these may panic when metrics are not wired.
	m.ObserveBooking("booked")
	m.ObserveCancellation()
	m.ObserveDeletion()
	m.ObserveSweep(5)
}
