package otpmetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestIncFoliosPromotedCounts(t *testing.T) {
	m := New()
	m.IncFoliosPromoted("full")
	m.IncFoliosPromoted("full")
	m.IncFoliosPromoted("delta")

	require.Equal(t, float64(2), testutil.ToFloat64(m.FoliosPromoted.WithLabelValues("full")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.FoliosPromoted.WithLabelValues("delta")))
}

func TestNilMetricsMethodsAreNoOps(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.IncFoliosPromoted("full")
		m.IncSequenceErrors("transform")
		m.IncTransformDatagramsSent()
		m.SetPeersOnline("producer", 3)
	})
}
