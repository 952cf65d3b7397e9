package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserve(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRegistration("accepted")
	m.ObserveRegistration("accepted")
	m.ObserveRegistration("rejected_duplicate")
	m.ObserveAdmin(false)
	m.ObserveAdmin(true)
	m.ObserveAdmin(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Submissions.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("rejected_duplicate")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AdminDenied))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AdminAllowed))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRegistration("accepted")
		m.ObserveAdmin(true)
	})
}
