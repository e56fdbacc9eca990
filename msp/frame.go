// Package msp implements framing for the MultiWii Serial Protocol as
// spoken by Betaflight and INAV, covering both the V1 ("$M") and
// V2 ("$X") wire encodings. It provides a resumable streaming decoder
// and the canonical encoder for validated frames.
package msp

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Version identifies the MSP protocol revision of a frame.
type Version int

const (
	// V1 is the original encoding: 8-bit command, 8-bit payload
	// size, XOR checksum.
	V1 Version = 1
	// V2 is the extended encoding: flag byte, 16-bit function and
	// payload size, CRC-8 DVB-S2 checksum.
	V2 Version = 2
)

func (v Version) String() string {
	switch v {
	case V1:
		return "MSPv1"
	case V2:
		return "MSPv2"
	}
	return fmt.Sprintf("unknown MSP version %d", int(v))
}

const (
	frameMarker byte = '$'
	v1Marker    byte = 'M'
	v2Marker    byte = 'X'
)

// Frame direction markers, the third byte of every frame.
const (
	DirRequest byte = '<'
	DirReply   byte = '>'
	DirError   byte = '!'
)

func validDirection(c byte) bool {
	return c == DirRequest || c == DirReply || c == DirError
}

// Encoding limits fixed by the wire format.
const (
	MaxV1Command     = 0xff
	MaxV1PayloadSize = 0xff
	MaxV2PayloadSize = 0xffff
)

// Frame is a single delimited, checksum validated MSP message. The
// decoder only constructs a Frame once the trailing checksum has been
// verified.
type Frame struct {
	Version   Version
	Direction byte
	Flag      byte // V2 only, zero for V1 frames
	Cmd       uint16
	Payload   []byte
}

// Bytes returns the canonical wire encoding of the frame, including
// start marker, header, payload and checksum. Decoding the returned
// bytes yields an identical frame.
func (f *Frame) Bytes() ([]byte, error) {
	if !validDirection(f.Direction) {
		return nil, fmt.Errorf("invalid direction byte %q", string([]byte{f.Direction}))
	}
	switch f.Version {
	case V1:
		return f.encodeV1()
	case V2:
		return f.encodeV2()
	}
	return nil, fmt.Errorf("cannot encode %v frame", f.Version)
}

func (f *Frame) encodeV1() ([]byte, error) {
	if f.Cmd > MaxV1Command {
		return nil, fmt.Errorf("command %d out of range for MSPv1", f.Cmd)
	}
	if len(f.Payload) > MaxV1PayloadSize {
		return nil, fmt.Errorf("payload size %d out of range for MSPv1", len(f.Payload))
	}
	var buf bytes.Buffer
	buf.WriteByte(frameMarker)
	buf.WriteByte(v1Marker)
	buf.WriteByte(f.Direction)
	buf.WriteByte(byte(len(f.Payload)))
	buf.WriteByte(byte(f.Cmd))
	buf.Write(f.Payload)

	cs := newChecksum(V1)
	cs.WriteByte(byte(len(f.Payload)))
	cs.WriteByte(byte(f.Cmd))
	checksumWrite(cs, f.Payload)
	buf.WriteByte(cs.Sum8())
	return buf.Bytes(), nil
}

func (f *Frame) encodeV2() ([]byte, error) {
	if len(f.Payload) > MaxV2PayloadSize {
		return nil, fmt.Errorf("payload size %d out of range for MSPv2", len(f.Payload))
	}
	hdr := make([]byte, 5)
	hdr[0] = f.Flag
	binary.LittleEndian.PutUint16(hdr[1:], f.Cmd)
	binary.LittleEndian.PutUint16(hdr[3:], uint16(len(f.Payload)))

	var buf bytes.Buffer
	buf.WriteByte(frameMarker)
	buf.WriteByte(v2Marker)
	buf.WriteByte(f.Direction)
	buf.Write(hdr)
	buf.Write(f.Payload)

	cs := newChecksum(V2)
	checksumWrite(cs, hdr)
	checksumWrite(cs, f.Payload)
	buf.WriteByte(cs.Sum8())
	return buf.Bytes(), nil
}
