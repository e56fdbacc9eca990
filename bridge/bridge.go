// Package bridge pumps a flight controller's MSP reply stream from a
// serial byte source onto UDP, one datagram per validated frame.
package bridge

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"mspfwd/internal/metrics"
	"mspfwd/msp"
)

const defaultChunkSize = 512

// Bridge is the forwarding pipeline: it reads chunks from a Source,
// feeds every byte through the MSP decoder and forwards each
// validated frame as one datagram through the Sink, in order,
// synchronously. Everything runs on the goroutine that calls Run.
type Bridge struct {
	// ChunkSize is the source read buffer size. Zero means
	// defaultChunkSize.
	ChunkSize int
	// LogInterval is how often a one-line session summary is
	// logged at info level. Zero disables the summary.
	LogInterval time.Duration
	// Metrics receives session counters when non-nil.
	Metrics *metrics.Session

	src  Source
	sink Sink
	dec  *msp.Decoder

	forwarded   uint64
	framingErrs uint64
	sendErrs    uint64
}

// New returns a bridge between src and sink with a fresh decoder.
func New(src Source, sink Sink) *Bridge {
	return &Bridge{
		src:  src,
		sink: sink,
		dec:  msp.NewDecoder(),
	}
}

// Decoder returns the bridge's decoder so its policy knobs can be
// adjusted before Run.
func (b *Bridge) Decoder() *msp.Decoder {
	return b.dec
}

// Run drives the pipeline until ctx is cancelled or the byte source
// fails. Framing errors and send errors are logged and counted but
// never stop the loop; only source I/O errors (and cancellation) end
// the session. Cancellation discards any partially decoded frame,
// which is safe since MSP has no multi-message transactions.
func (b *Bridge) Run(ctx context.Context) error {
	size := b.ChunkSize
	if size <= 0 {
		size = defaultChunkSize
	}
	buf := make([]byte, size)
	lastSummary := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n, err := b.src.Read(buf)
		if err != nil {
			return fmt.Errorf("reading byte source: %w", err)
		}
		if n > 0 {
			b.countBytes(n)
			b.feedChunk(buf[:n])
		}
		// n == 0 means the bounded wait expired with no data.
		// Decoder state is kept: a partial frame resumes on the
		// next chunk.
		if b.LogInterval > 0 && time.Since(lastSummary) >= b.LogInterval {
			log.Infof("session: %d frames forwarded, %d framing errors, %d send errors",
				b.forwarded, b.framingErrs, b.sendErrs)
			lastSummary = time.Now()
		}
	}
}

func (b *Bridge) feedChunk(chunk []byte) {
	traced := log.IsLevelEnabled(log.TraceLevel)
	for _, c := range chunk {
		if traced {
			log.Tracef("R << %03d = 0x%02x = %q", c, c, string([]byte{c}))
		}
		frame, err := b.dec.Feed(c)
		if err != nil {
			log.Warnf("framing: %v", err)
			b.framingErrs++
			b.countFrameError(err)
			continue
		}
		if frame != nil {
			b.forward(frame)
		}
	}
}

// forward re-encodes frame and hands it to the sink as a single
// datagram. A failed send drops only this frame; the next one is
// independent.
func (b *Bridge) forward(frame *msp.Frame) {
	data, err := frame.Bytes()
	if err != nil {
		// Decoder output always re-encodes; field limits were
		// enforced during decoding.
		log.Errorf("encoding %s frame %d: %v", frame.Version, frame.Cmd, err)
		return
	}
	if log.IsLevelEnabled(log.DebugLevel) {
		log.Debugf("%s:%d %c=> %s", frame.Version, frame.Cmd, frame.Direction, hex.EncodeToString(data))
	}
	if err := b.sink.Send(data); err != nil {
		log.Warnf("sending %d byte datagram: %v", len(data), err)
		b.sendErrs++
		if b.Metrics != nil {
			b.Metrics.SendErrors.Inc()
		}
		return
	}
	b.forwarded++
	if b.Metrics != nil {
		b.Metrics.FramesForwarded.WithLabelValues(frame.Version.String()).Inc()
	}
}

func (b *Bridge) countBytes(n int) {
	if b.Metrics != nil {
		b.Metrics.BytesRead.Add(float64(n))
	}
}

func (b *Bridge) countFrameError(err error) {
	if b.Metrics == nil {
		return
	}
	var fe *msp.FrameError
	if errors.As(err, &fe) {
		b.Metrics.FrameErrors.WithLabelValues(fe.Reason.String()).Inc()
	}
}
