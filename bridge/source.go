package bridge

import (
	"io"
	"net"
	"strings"
	"time"

	"go.bug.st/serial"
)

const (
	tcpPrefix = "tcp:"

	defaultBaudRate = 115200
)

// Source yields raw bytes from the telemetry link. Read blocks for at
// most the configured bounded wait and returns (0, nil) when no data
// arrived in time; callers must treat that as "no data yet", not as
// an error, and must not reset any decoding state because of it.
type Source interface {
	io.ReadCloser
}

// OpenSource opens the byte source named by addr. A plain name is a
// serial device opened read-only at the given baud rate; an address
// prefixed with "tcp:" connects to a network tap carrying the same
// stream (SITL, bench rigs).
func OpenSource(addr string, baudRate int, readTimeout time.Duration) (Source, error) {
	if strings.HasPrefix(addr, tcpPrefix) {
		return openTCPSource(addr[len(tcpPrefix):], readTimeout)
	}
	return openSerialSource(addr, baudRate, readTimeout)
}

func openSerialSource(device string, baudRate int, readTimeout time.Duration) (Source, error) {
	if baudRate <= 0 {
		baudRate = defaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baudRate,
	}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, err
	}
	return port, nil
}

func openTCPSource(addr string, readTimeout time.Duration) (Source, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &tcpSource{conn: conn, readTimeout: readTimeout}, nil
}

// tcpSource adapts net.Conn deadline errors to the Source timeout
// convention used by serial ports: an empty read instead of an error.
type tcpSource struct {
	conn        net.Conn
	readTimeout time.Duration
}

func (s *tcpSource) Read(p []byte) (int, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
		return 0, err
	}
	n, err := s.conn.Read(p)
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return n, nil
	}
	return n, err
}

func (s *tcpSource) Close() error {
	return s.conn.Close()
}

// AvailablePorts returns the serial ports in the system that can be
// used as a telemetry source.
func AvailablePorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		if pe, ok := err.(*serial.PortError); ok {
			if pe.Code() == serial.ErrorEnumeratingPorts {
				// This happens on Windows when there are
				// no serial ports
				return nil, nil
			}
		}
		return nil, err
	}
	return ports, nil
}
