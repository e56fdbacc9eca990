package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSessionCounters(t *testing.T) {
	reg := NewRegistry()
	s := NewSession(reg)

	s.BytesRead.Add(42)
	s.FramesForwarded.WithLabelValues("MSPv1").Inc()
	s.FrameErrors.WithLabelValues("checksum-mismatch").Inc()
	s.SendErrors.Inc()

	assert.Equal(t, 42.0, testutil.ToFloat64(s.BytesRead))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.FramesForwarded.WithLabelValues("MSPv1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.FrameErrors.WithLabelValues("checksum-mismatch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.SendErrors))
}
