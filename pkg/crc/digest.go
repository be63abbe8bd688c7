package crc

import (
	"encoding/binary"
	"hash"
	"math"

	"github.com/pkg/errors"

	"github.com/forest33/edsp/business/entity"
)

const maxDigestCount = math.MaxUint32

// CRC32Func computes a CRC32 continuing from seed
type CRC32Func func(seed uint32, data []byte) (uint32, error)

// Digest accumulates a CRC32 over data delivered in several pieces.
// The CRC itself is computed by a callback so hardware engines can be plugged in.
type Digest struct {
	fn       CRC32Func
	seed     uint32
	crc      uint32
	digested uint32
}

// NewDigest creates a Digest with the default seed
func NewDigest(fn CRC32Func) (*Digest, error) {
	return NewSeededDigest(Seed32, fn)
}

// NewSeededDigest creates a Digest starting from seed
func NewSeededDigest(seed uint32, fn CRC32Func) (*Digest, error) {
	if fn == nil {
		return nil, entity.ErrBadPointer
	}
	return &Digest{
		fn:   fn,
		seed: seed,
		crc:  seed,
	}, nil
}

// Restart drops the accumulated value
func (d *Digest) Restart() {
	d.crc = d.seed
	d.digested = 0
}

// Digest adds data to the running CRC
func (d *Digest) Digest(data []byte) error {
	if data == nil {
		return entity.ErrBadPointer
	}
	if len(data) == 0 {
		return entity.ErrBadParam
	}
	if d.digested == maxDigestCount {
		return entity.ErrTooManyDigest
	}

	crc, err := d.fn(d.crc, data)
	if err != nil {
		return errors.Wrap(entity.ErrCallback, err.Error())
	}

	d.crc = crc
	d.digested++

	return nil
}

// Sum returns the CRC of everything digested since the last restart and
// restarts the Digest.
func (d *Digest) Sum() (uint32, error) {
	if d.digested == 0 {
		return 0, entity.ErrNoDigest
	}
	crc := d.crc
	d.Restart()
	return crc, nil
}

type hash32 struct {
	seed uint32
	crc  uint32
}

// NewHash32 hash.Hash32 computing CRC-32/MPEG-2 from seed
func NewHash32(seed uint32) hash.Hash32 {
	return &hash32{seed: seed, crc: seed}
}

func (h *hash32) Write(p []byte) (int, error) {
	h.crc = Update(h.crc, p)
	return len(p), nil
}

func (h *hash32) Sum(b []byte) []byte {
	return binary.BigEndian.AppendUint32(b, h.crc)
}

func (h *hash32) Reset() {
	h.crc = h.seed
}

func (h *hash32) Size() int {
	return 4
}

func (h *hash32) BlockSize() int {
	return 1
}

func (h *hash32) Sum32() uint32 {
	return h.crc
}
