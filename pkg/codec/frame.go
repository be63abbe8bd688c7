package codec

import (
	"github.com/pkg/errors"

	"github.com/forest33/edsp/business/entity"
	"github.com/forest33/edsp/pkg/compression"
	"github.com/forest33/edsp/pkg/crc"
	"github.com/forest33/edsp/pkg/datapack"
	"github.com/forest33/edsp/pkg/logger"
)

const (
	flagNoFlags = 0
	flagACK     = 1 << (iota - 1)
	flagChecksumCRC16
	flagCompressionLZ4
	flagCompressionLZO
	flagCompressionZSTD

	flagCompressionMask = flagCompressionLZ4 | flagCompressionLZO | flagCompressionZSTD
	flagKnownMask       = flagACK | flagChecksumCRC16 | flagCompressionMask
)

var (
	byteOrder = datapack.BigEndian
)

type FrameCodec struct {
	log *logger.Logger
	cfg *Config
	cmp *compression.Compressor
}

func NewFrameCodec(log *logger.Logger, cfg *Config) *FrameCodec {
	return &FrameCodec{
		log: log,
		cfg: cfg,
		cmp: compression.New(&compression.Config{PayloadSize: cfg.MaxPayloadSize}),
	}
}

// MaxRawSize largest Marshal output for the configured payload size
func (c *FrameCodec) MaxRawSize() int {
	return entity.FrameOverhead + c.cfg.MaxPayloadSize
}

func (c *FrameCodec) Marshal(f *entity.Frame) ([]byte, error) {
	if f == nil {
		return nil, entity.ErrBadPointer
	}
	if !f.Type.Valid() {
		return nil, entity.ErrUnknownFrameType
	}

	var (
		payload = f.Payload
		flags   uint8
	)

	if f.IsACK {
		flags |= flagACK
		payload = nil
	}
	if f.Checksum == entity.ChecksumCRC16 {
		flags |= flagChecksumCRC16
	}

	if len(payload) > c.cfg.MaxPayloadSize || len(payload) > entity.MaxFramePayloadSize {
		c.log.Error().
			Int("size", len(payload)).
			Int("max_size", c.cfg.MaxPayloadSize).
			Msg(entity.ErrFrameTooLarge.Error())
		return nil, entity.ErrFrameTooLarge
	}

	if !f.IsACK && f.CompressionType != entity.CompressionNone {
		var ok bool
		if payload, ok = c.cmp.Compress(f.CompressionType, f.CompressionLevel, payload); ok {
			flags |= compressionFlag(f.CompressionType)
		}
	}

	out := make([]byte, entity.FrameHeaderSize+len(payload)+f.Checksum.Size())
	p, err := datapack.NewPacker(out, byteOrder)
	if err != nil {
		return nil, err
	}

	if err := putAll(
		func() error { return p.PutU8(uint8(f.Type)) },
		func() error { return p.PutU8(flags) },
		func() error { return p.PutU32(f.ID) },
		func() error { return p.PutU16(uint16(len(payload))) },
	); err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if err := p.PutBytes(payload); err != nil {
			return nil, err
		}
	}

	body := p.Bytes()
	if f.Checksum == entity.ChecksumCRC16 {
		err = p.PutU16(crc.Checksum16(body))
	} else {
		err = p.PutU32(crc.Checksum32(crc.Seed32, body))
	}
	if err != nil {
		return nil, err
	}

	return p.Bytes(), nil
}

// Unmarshal decodes a raw frame. The payload is copied so data may be reused.
func (c *FrameCodec) Unmarshal(data []byte, f *entity.Frame) error {
	if f == nil || data == nil {
		return entity.ErrBadPointer
	}
	if len(data) < entity.FrameHeaderSize+entity.ChecksumCRC16.Size() {
		return entity.ErrWrongFrameHeader
	}

	u, err := datapack.NewUnpacker(data, byteOrder)
	if err != nil {
		return err
	}

	typ, _ := u.U8()
	flags, _ := u.U8()
	id, _ := u.U32()
	length, _ := u.U16()

	if flags&^flagKnownMask != 0 || !singleCompression(flags) {
		return entity.ErrWrongFrameHeader
	}

	checksum := entity.ChecksumCRC32
	if flags&flagChecksumCRC16 != 0 {
		checksum = entity.ChecksumCRC16
	}

	bodyLen := entity.FrameHeaderSize + int(length)
	if len(data) != bodyLen+checksum.Size() {
		return errors.Wrapf(entity.ErrWrongFrameLength, "header %d, frame %d", length, len(data))
	}
	if int(length) > c.cfg.MaxPayloadSize {
		return entity.ErrFrameTooLarge
	}

	if err := verifyChecksum(checksum, data[:bodyLen], data[bodyLen:]); err != nil {
		return err
	}

	f.Type = entity.FrameType(typ)
	if !f.Type.Valid() {
		return entity.ErrUnknownFrameType
	}

	f.ID = id
	f.IsACK = flags&flagACK != 0
	f.Checksum = checksum
	f.CompressionType = compressionType(flags)
	f.CompressionLevel = 0

	payload := data[entity.FrameHeaderSize:bodyLen]
	if f.CompressionType != entity.CompressionNone {
		if payload, err = c.cmp.Decompress(f.CompressionType, payload); err != nil {
			return errors.Wrap(err, "failed to decompress payload")
		}
		if len(payload) > c.cfg.MaxPayloadSize {
			return entity.ErrFrameTooLarge
		}
	}

	f.Payload = append(f.Payload[:0], payload...)

	return nil
}

func verifyChecksum(kind entity.ChecksumKind, body, trailer []byte) error {
	u, err := datapack.NewUnpacker(trailer, byteOrder)
	if err != nil {
		return err
	}

	if kind == entity.ChecksumCRC16 {
		want, err := u.U16()
		if err != nil {
			return err
		}
		if got := crc.Checksum16(body); got != want {
			return errors.Wrapf(entity.ErrChecksumMismatch, "got %04X, want %04X", got, want)
		}
		return nil
	}

	want, err := u.U32()
	if err != nil {
		return err
	}
	if got := crc.Checksum32(crc.Seed32, body); got != want {
		return errors.Wrapf(entity.ErrChecksumMismatch, "got %08X, want %08X", got, want)
	}

	return nil
}

func compressionFlag(t entity.CompressionType) uint8 {
	switch t {
	case entity.CompressionLZ4:
		return flagCompressionLZ4
	case entity.CompressionLZO:
		return flagCompressionLZO
	case entity.CompressionZSTD:
		return flagCompressionZSTD
	}
	return flagNoFlags
}

func compressionType(flags uint8) entity.CompressionType {
	switch {
	case flags&flagCompressionLZ4 != 0:
		return entity.CompressionLZ4
	case flags&flagCompressionLZO != 0:
		return entity.CompressionLZO
	case flags&flagCompressionZSTD != 0:
		return entity.CompressionZSTD
	}
	return entity.CompressionNone
}

func singleCompression(flags uint8) bool {
	c := flags & flagCompressionMask
	return c&(c-1) == 0
}

func putAll(steps ...func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
