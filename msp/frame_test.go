package msp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRoundTrip(t *testing.T) {
	frames := []*Frame{
		{Version: V1, Direction: DirRequest, Cmd: 0x64},
		{Version: V1, Direction: DirReply, Cmd: 0xB6, Payload: []byte{0x03, 0x00, 0x01, 'R', 'S', 'S', 'I'}},
		{Version: V2, Direction: DirReply, Cmd: 0x64, Payload: nil},
		{Version: V2, Direction: DirError, Flag: 0x01, Cmd: 0x4242, Payload: bytes.Repeat([]byte{0xA5}, 300)},
	}

	for _, want := range frames {
		data, err := want.Bytes()
		require.NoError(t, err)

		decoded, errs := feedAll(NewDecoder(), data)
		require.Len(t, decoded, 1)
		require.Empty(t, errs)

		got := decoded[0]
		assert.Equal(t, want.Version, got.Version)
		assert.Equal(t, want.Direction, got.Direction)
		assert.Equal(t, want.Flag, got.Flag)
		assert.Equal(t, want.Cmd, got.Cmd)
		assert.Equal(t, len(want.Payload), len(got.Payload))
		assert.Equal(t, append([]byte(nil), want.Payload...), got.Payload)
	}
}

func TestEncodeV1Checksum(t *testing.T) {
	f := &Frame{Version: V1, Direction: DirRequest, Cmd: 0x64}
	data, err := f.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{'$', 'M', '<', 0x00, 0x64, 0x64}, data)
}

func TestEncodeRejectsInvalidFrames(t *testing.T) {
	cases := []struct {
		name  string
		frame *Frame
	}{
		{"no version", &Frame{Direction: DirReply}},
		{"bad direction", &Frame{Version: V1, Direction: 'x'}},
		{"v1 command too large", &Frame{Version: V1, Direction: DirReply, Cmd: 0x1234}},
		{"v1 payload too large", &Frame{Version: V1, Direction: DirReply, Cmd: 1, Payload: make([]byte, 256)}},
		{"v2 payload too large", &Frame{Version: V2, Direction: DirReply, Cmd: 1, Payload: make([]byte, 65536)}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := c.frame.Bytes()
			assert.Error(t, err)
		})
	}
}
