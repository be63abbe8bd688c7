// Package compression payload compressors applied to frames before stuffing
package compression

import (
	"bytes"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
	"github.com/rasky/go-lzo"

	"github.com/forest33/edsp/business/entity"
)

const (
	defaultZSTDLevel = entity.CompressionLevel(zstd.SpeedDefault)
)

type Compressor struct {
	cfg         *Config
	zstdEncoder map[entity.CompressionLevel]*zstd.Encoder
	zstdDecoder *zstd.Decoder
}

type Config struct {
	PayloadSize int
}

func New(cfg *Config) *Compressor {
	zstdEncoder := make(map[entity.CompressionLevel]*zstd.Encoder, 4)
	zstdDecoder, _ := zstd.NewReader(nil)

	for l := zstd.SpeedFastest; l <= zstd.SpeedBestCompression; l++ {
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(l))
		zstdEncoder[entity.CompressionLevel(l)] = enc
	}

	return &Compressor{
		cfg:         cfg,
		zstdEncoder: zstdEncoder,
		zstdDecoder: zstdDecoder,
	}
}

// Compress returns the compressed payload and true, or the input unchanged
// and false when the algorithm does not make it smaller
func (c *Compressor) Compress(t entity.CompressionType, level entity.CompressionLevel, in []byte) ([]byte, bool) {
	switch t {
	case entity.CompressionLZ4:
		return c.CompressLZ4(in)
	case entity.CompressionLZO:
		return c.CompressLZO(in)
	case entity.CompressionZSTD:
		return c.CompressZSTD(in, level)
	}
	return in, false
}

func (c *Compressor) Decompress(t entity.CompressionType, in []byte) ([]byte, error) {
	switch t {
	case entity.CompressionNone:
		return in, nil
	case entity.CompressionLZ4:
		return c.DecompressLZ4(in)
	case entity.CompressionLZO:
		return c.DecompressLZO(in)
	case entity.CompressionZSTD:
		return c.DecompressZSTD(in)
	}
	return nil, errors.Wrapf(entity.ErrBadParam, "compression type %d", t)
}

func (c *Compressor) CompressLZ4(in []byte) ([]byte, bool) {
	if len(in) == 0 {
		return in, false
	}

	buf := make([]byte, lz4.CompressBlockBound(len(in)))

	n, err := lz4.CompressBlock(in, buf, nil)
	if err != nil || n == 0 || n >= len(in) {
		return in, false
	}

	return buf[:n], true
}

func (c *Compressor) DecompressLZ4(in []byte) ([]byte, error) {
	out := make([]byte, c.cfg.PayloadSize)

	n, err := lz4.UncompressBlock(in, out)
	if err != nil {
		return nil, errors.Wrap(err, "lz4")
	}

	return out[:n], nil
}

func (c *Compressor) CompressLZO(in []byte) ([]byte, bool) {
	if len(in) == 0 {
		return in, false
	}
	out := lzo.Compress1X(in)
	if len(out) >= len(in) {
		return in, false
	}
	return out, true
}

func (c *Compressor) DecompressLZO(in []byte) ([]byte, error) {
	out, err := lzo.Decompress1X(bytes.NewBuffer(in), len(in), c.cfg.PayloadSize)
	if err != nil {
		return nil, errors.Wrap(err, "lzo")
	}
	return out, nil
}

func (c *Compressor) CompressZSTD(in []byte, level entity.CompressionLevel) ([]byte, bool) {
	if len(in) == 0 {
		return in, false
	}
	if level < 1 || level > 4 {
		level = defaultZSTDLevel
	}
	out := c.zstdEncoder[level].EncodeAll(in, make([]byte, 0, len(in)))
	if len(out) >= len(in) {
		return in, false
	}
	return out, true
}

func (c *Compressor) DecompressZSTD(in []byte) ([]byte, error) {
	out, err := c.zstdDecoder.DecodeAll(in, make([]byte, 0, c.cfg.PayloadSize))
	if err != nil {
		return nil, errors.Wrap(err, "zstd")
	}
	if len(out) > c.cfg.PayloadSize {
		return nil, entity.ErrFrameTooLarge
	}
	return out, nil
}
