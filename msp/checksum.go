package msp

import (
	"github.com/go-daq/crc8"
)

var (
	// MSPv2 uses CRC-8 DVB-S2 (polynomial 0xD5, zero init).
	crc8DvbS2Table = crc8.MakeTable(0xD5)

	_ checksum = (*crc8DvbS2Checksum)(nil)
	_ checksum = (*xorChecksum)(nil)
)

type checksum interface {
	WriteByte(b byte) error
	Sum8() uint8
}

type crc8DvbS2Checksum struct {
	crc crc8.Hash8
}

func (c *crc8DvbS2Checksum) WriteByte(b byte) error {
	_, err := c.crc.Write([]byte{b})
	return err
}

func (c *crc8DvbS2Checksum) Sum8() uint8 {
	return c.crc.Sum8()
}

type xorChecksum struct {
	sum uint8
}

func (c *xorChecksum) WriteByte(b byte) error {
	c.sum ^= b
	return nil
}

func (c *xorChecksum) Sum8() uint8 {
	return c.sum
}

// newChecksum returns the checksum algorithm mandated by the given
// protocol version: XOR for V1, CRC-8 DVB-S2 for V2.
func newChecksum(v Version) checksum {
	if v == V2 {
		return &crc8DvbS2Checksum{crc: crc8.New(crc8DvbS2Table)}
	}
	return &xorChecksum{}
}

func checksumWrite(cs checksum, data []byte) error {
	for _, b := range data {
		if err := cs.WriteByte(b); err != nil {
			return err
		}
	}
	return nil
}
