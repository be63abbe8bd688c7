// Package crc CRC-32/MPEG-2 checksum, incremental digest and CRC16 link checksum
package crc

import (
	"github.com/forest33/edsp/business/entity"
)

const (
	// Poly32 CRC-32/MPEG-2 polynomial, MSB first
	Poly32 uint32 = 0x04C11DB7
	// Seed32 default seed
	Seed32 uint32 = 0xFFFFFFFF
)

var table32 = makeTable32(Poly32)

func makeTable32(poly uint32) *[256]uint32 {
	t := new([256]uint32)
	for i := 0; i < 256; i++ {
		c := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if c&0x80000000 != 0 {
				c = c<<1 ^ poly
			} else {
				c <<= 1
			}
		}
		t[i] = c
	}
	return t
}

// Update continues a CRC-32/MPEG-2 computation from crc over data
func Update(crc uint32, data []byte) uint32 {
	for _, b := range data {
		crc = crc<<8 ^ table32[byte(crc>>24)^b]
	}
	return crc
}

// Checksum32 CRC-32/MPEG-2 of data starting from seed.
// Checksum32(Checksum32(s, a), b) equals Checksum32(s, append(a, b...)).
func Checksum32(seed uint32, data []byte) uint32 {
	return Update(seed, data)
}

// Calc32 is Checksum32 with argument checks, matching CRC32Func
func Calc32(seed uint32, data []byte) (uint32, error) {
	if data == nil {
		return 0, entity.ErrBadPointer
	}
	if len(data) == 0 {
		return 0, entity.ErrBadParam
	}
	return Update(seed, data), nil
}
