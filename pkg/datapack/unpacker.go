package datapack

import (
	"encoding/binary"

	"github.com/forest33/edsp/business/entity"
)

// Unpacker reads fields back from packed data
type Unpacker struct {
	data  []byte
	n     int
	order binary.ByteOrder
}

// NewUnpacker creates an Unpacker over data
func NewUnpacker(data []byte, e Endian) (*Unpacker, error) {
	if data == nil {
		return nil, entity.ErrBadPointer
	}
	if len(data) == 0 {
		return nil, entity.ErrBadParam
	}
	return &Unpacker{
		data:  data,
		order: e.order(),
	}, nil
}

// Reset rewinds to the first field
func (u *Unpacker) Reset() {
	u.n = 0
}

// Remaining number of bytes not read yet
func (u *Unpacker) Remaining() int {
	return len(u.data) - u.n
}

// Bytes returns the next n bytes, aliasing the data
func (u *Unpacker) Bytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, entity.ErrBadParam
	}
	return u.take(n)
}

func (u *Unpacker) U8() (uint8, error) {
	b, err := u.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (u *Unpacker) U16() (uint16, error) {
	b, err := u.take(2)
	if err != nil {
		return 0, err
	}
	return u.order.Uint16(b), nil
}

func (u *Unpacker) U32() (uint32, error) {
	b, err := u.take(4)
	if err != nil {
		return 0, err
	}
	return u.order.Uint32(b), nil
}

func (u *Unpacker) U64() (uint64, error) {
	b, err := u.take(8)
	if err != nil {
		return 0, err
	}
	return u.order.Uint64(b), nil
}

func (u *Unpacker) take(n int) ([]byte, error) {
	if u.n < 0 || u.n > len(u.data) {
		return nil, entity.ErrCorruptContext
	}
	if len(u.data)-u.n < n {
		return nil, entity.ErrNoData
	}
	b := u.data[u.n : u.n+n]
	u.n += n
	return b, nil
}
