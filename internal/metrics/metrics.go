// Package metrics exposes the forwarding session counters over
// Prometheus for long-running deployments on the aircraft companion
// computer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry creates a registry with the standard process and Go
// runtime collectors registered.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the HTTP handler serving the registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Session holds the counters for one forwarding session.
type Session struct {
	BytesRead       prometheus.Counter
	FramesForwarded *prometheus.CounterVec // labels: version
	FrameErrors     *prometheus.CounterVec // labels: reason
	SendErrors      prometheus.Counter
}

// NewSession registers and returns the session counters.
func NewSession(reg *prometheus.Registry) *Session {
	s := &Session{
		BytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uart_bytes_read_total",
			Help: "Total bytes read from the telemetry byte source.",
		}),
		FramesForwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "msp_frames_forwarded_total",
			Help: "Validated MSP frames forwarded as UDP datagrams.",
		}, []string{"version"}),
		FrameErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "msp_frame_errors_total",
			Help: "Recoverable framing errors by reason.",
		}, []string{"reason"}),
		SendErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "udp_send_errors_total",
			Help: "Datagram sends that failed and were dropped.",
		}),
	}
	reg.MustRegister(s.BytesRead, s.FramesForwarded, s.FrameErrors, s.SendErrors)
	return s
}
