// Package datapack fixed endianness serialization of integer fields into flat buffers
package datapack

import (
	"encoding/binary"

	"github.com/forest33/edsp/business/entity"
)

// Endian byte order of packed fields
type Endian uint8

const (
	LittleEndian Endian = iota
	BigEndian
)

func (e Endian) order() binary.ByteOrder {
	if e == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (e Endian) String() string {
	if e == BigEndian {
		return "big"
	}
	return "little"
}

// ParseEndian converts a configuration name to Endian
func ParseEndian(name string) Endian {
	if name == "big" || name == "be" {
		return BigEndian
	}
	return LittleEndian
}

// Packer appends fields to a caller owned buffer
type Packer struct {
	buf   []byte
	n     int
	order binary.ByteOrder
}

// NewPacker creates a Packer writing into buf
func NewPacker(buf []byte, e Endian) (*Packer, error) {
	if buf == nil {
		return nil, entity.ErrBadPointer
	}
	if len(buf) == 0 {
		return nil, entity.ErrBadParam
	}
	return &Packer{
		buf:   buf,
		order: e.order(),
	}, nil
}

// Reset starts a new pack
func (p *Packer) Reset() {
	p.n = 0
}

// Bytes returns the packed data, aliasing the buffer
func (p *Packer) Bytes() []byte {
	return p.buf[:p.n]
}

// Len number of packed bytes
func (p *Packer) Len() int {
	return p.n
}

// PutBytes appends raw bytes
func (p *Packer) PutBytes(b []byte) error {
	if b == nil {
		return entity.ErrBadPointer
	}
	if len(b) == 0 {
		return entity.ErrBadParam
	}
	dst, err := p.grow(len(b))
	if err != nil {
		return err
	}
	copy(dst, b)
	return nil
}

func (p *Packer) PutU8(v uint8) error {
	dst, err := p.grow(1)
	if err != nil {
		return err
	}
	dst[0] = v
	return nil
}

func (p *Packer) PutU16(v uint16) error {
	dst, err := p.grow(2)
	if err != nil {
		return err
	}
	p.order.PutUint16(dst, v)
	return nil
}

func (p *Packer) PutU32(v uint32) error {
	dst, err := p.grow(4)
	if err != nil {
		return err
	}
	p.order.PutUint32(dst, v)
	return nil
}

func (p *Packer) PutU64(v uint64) error {
	dst, err := p.grow(8)
	if err != nil {
		return err
	}
	p.order.PutUint64(dst, v)
	return nil
}

func (p *Packer) grow(n int) ([]byte, error) {
	if p.n < 0 || p.n > len(p.buf) {
		return nil, entity.ErrCorruptContext
	}
	if len(p.buf)-p.n < n {
		return nil, entity.ErrOutOfMemory
	}
	dst := p.buf[p.n : p.n+n]
	p.n += n
	return dst, nil
}
