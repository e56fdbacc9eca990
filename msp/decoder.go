package msp

import (
	"bytes"
	"fmt"
)

// ErrorReason classifies recoverable framing anomalies.
type ErrorReason int

const (
	ReasonBadVersion ErrorReason = iota + 1
	ReasonBadDirection
	ReasonOversizedPayload
	ReasonChecksumMismatch
)

func (r ErrorReason) String() string {
	switch r {
	case ReasonBadVersion:
		return "bad-version"
	case ReasonBadDirection:
		return "bad-direction"
	case ReasonOversizedPayload:
		return "oversized-payload"
	case ReasonChecksumMismatch:
		return "checksum-mismatch"
	}
	return fmt.Sprintf("unknown reason %d", int(r))
}

// FrameError reports a recoverable framing anomaly. The decoder has
// already reset itself and will resynchronize on the next start
// marker; a FrameError never requires terminating the session.
type FrameError struct {
	Reason ErrorReason
	Detail string
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

// DefaultMaxPayload is the largest declared payload size the decoder
// accepts before treating the length field as implausible. MSPv2
// allows up to 65535, but a corrupted length on a lossy link would
// leave the decoder waiting on bytes that never arrive.
const DefaultMaxPayload = 4096

type decoderState int

const (
	stateIdle decoderState = iota
	stateVersion
	stateDirection

	stateV1PayloadSize
	stateV1Command

	stateV2Flag
	stateV2CommandLow
	stateV2CommandHigh
	stateV2PayloadSizeLow
	stateV2PayloadSizeHigh

	statePayload
	stateChecksum
)

// Decoder delimits MSP frames out of an unstructured byte stream. It
// is a resumable state machine: feed bytes as they arrive, in chunks
// of any size, and decoding picks up exactly where the previous chunk
// left off. Outside of a frame the decoder scans for the next start
// marker and silently discards everything else, which is also how it
// recovers after corruption.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	// MaxPayload caps the declared payload size before the decoder
	// gives up on a frame. Zero means DefaultMaxPayload.
	MaxPayload int

	state       decoderState
	version     Version
	direction   byte
	flag        byte
	cmd         uint16
	payloadSize int
	payload     bytes.Buffer
	cs          checksum
}

// NewDecoder returns a decoder in its initial scanning state.
func NewDecoder() *Decoder {
	return &Decoder{MaxPayload: DefaultMaxPayload}
}

func (d *Decoder) reset() {
	d.state = stateIdle
	d.version = 0
	d.direction = 0
	d.flag = 0
	d.cmd = 0
	d.payloadSize = 0
	d.payload.Reset()
	d.cs = nil
}

// Feed advances the state machine by one byte. It returns a frame
// when b completes one, a *FrameError when b invalidates the frame in
// progress, and (nil, nil) otherwise. After a FrameError the decoder
// is already back in its scanning state; previously consumed bytes
// are not rescanned.
func (d *Decoder) Feed(b byte) (*Frame, error) {
	switch d.state {
	case stateIdle:
		if b == frameMarker {
			d.state = stateVersion
		}
	case stateVersion:
		switch b {
		case v1Marker:
			d.version = V1
		case v2Marker:
			d.version = V2
		default:
			d.reset()
			return nil, &FrameError{
				Reason: ReasonBadVersion,
				Detail: fmt.Sprintf("unknown version byte %q", string([]byte{b})),
			}
		}
		d.cs = newChecksum(d.version)
		d.state = stateDirection
	case stateDirection:
		if !validDirection(b) {
			d.reset()
			return nil, &FrameError{
				Reason: ReasonBadDirection,
				Detail: fmt.Sprintf("unknown direction byte %q", string([]byte{b})),
			}
		}
		d.direction = b
		if d.version == V1 {
			d.state = stateV1PayloadSize
		} else {
			d.state = stateV2Flag
		}

	case stateV1PayloadSize:
		d.cs.WriteByte(b)
		d.payloadSize = int(b)
		d.state = stateV1Command
	case stateV1Command:
		d.cs.WriteByte(b)
		d.cmd = uint16(b)
		return nil, d.beginPayload()

	case stateV2Flag:
		d.cs.WriteByte(b)
		d.flag = b
		d.state = stateV2CommandLow
	case stateV2CommandLow:
		d.cs.WriteByte(b)
		d.cmd = uint16(b)
		d.state = stateV2CommandHigh
	case stateV2CommandHigh:
		d.cs.WriteByte(b)
		d.cmd |= uint16(b) << 8
		d.state = stateV2PayloadSizeLow
	case stateV2PayloadSizeLow:
		d.cs.WriteByte(b)
		d.payloadSize = int(b)
		d.state = stateV2PayloadSizeHigh
	case stateV2PayloadSizeHigh:
		d.cs.WriteByte(b)
		d.payloadSize |= int(b) << 8
		return nil, d.beginPayload()

	case statePayload:
		// Payload bytes are counted, never scanned, so a stray
		// start marker inside a payload cannot cause a false
		// resync.
		d.cs.WriteByte(b)
		d.payload.WriteByte(b)
		if d.payload.Len() == d.payloadSize {
			d.state = stateChecksum
		}
	case stateChecksum:
		sum := d.cs.Sum8()
		if sum != b {
			d.reset()
			return nil, &FrameError{
				Reason: ReasonChecksumMismatch,
				Detail: fmt.Sprintf("received 0x%02x, computed 0x%02x", b, sum),
			}
		}
		frame := &Frame{
			Version:   d.version,
			Direction: d.direction,
			Flag:      d.flag,
			Cmd:       d.cmd,
			Payload:   append([]byte(nil), d.payload.Bytes()...),
		}
		d.reset()
		return frame, nil
	default:
		panic(fmt.Errorf("invalid decoder state %d", d.state))
	}
	return nil, nil
}

// beginPayload transitions out of the header once the payload size is
// known, rejecting implausible declared lengths.
func (d *Decoder) beginPayload() error {
	max := d.MaxPayload
	if max <= 0 {
		max = DefaultMaxPayload
	}
	if d.payloadSize > max {
		size := d.payloadSize
		d.reset()
		return &FrameError{
			Reason: ReasonOversizedPayload,
			Detail: fmt.Sprintf("declared %d bytes, limit %d", size, max),
		}
	}
	if d.payloadSize > 0 {
		d.state = statePayload
	} else {
		d.state = stateChecksum
	}
	return nil
}
