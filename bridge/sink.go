package bridge

import (
	"net"
)

// Sink delivers one datagram per validated frame. Send is fire and
// forget: a failed send drops that datagram and obliges no retry.
type Sink interface {
	Send(p []byte) error
	Close() error
}

// UDPSink writes each payload as a single datagram to a fixed
// destination, preserving frame boundaries across the hop.
type UDPSink struct {
	conn net.Conn
}

// NewUDPSink connects a sink to the destination addr ("host:port").
func NewUDPSink(addr string) (*UDPSink, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}
	return &UDPSink{conn: conn}, nil
}

func (s *UDPSink) Send(p []byte) error {
	_, err := s.conn.Write(p)
	return err
}

func (s *UDPSink) Close() error {
	return s.conn.Close()
}

// RemoteAddr returns the destination the sink is bound to.
func (s *UDPSink) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}
