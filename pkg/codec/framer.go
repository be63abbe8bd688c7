package codec

import (
	"github.com/pkg/errors"

	"github.com/forest33/edsp/business/entity"
	"github.com/forest33/edsp/pkg/bytestuff"
)

// DecodedHandler receives every frame found in the stream. err is set for
// frames that were broken on the wire or failed to decode, f is nil then.
type DecodedHandler func(f *entity.Frame, err error)

// Framer couples a Codec with byte stuffing
type Framer struct {
	codec Codec
	opts  []bytestuff.Option
}

func NewFramer(c Codec, opts ...bytestuff.Option) *Framer {
	return &Framer{
		codec: c,
		opts:  opts,
	}
}

// Encode returns the stuffed wire bytes of f
func (fr *Framer) Encode(f *entity.Frame) ([]byte, error) {
	raw, err := fr.codec.Marshal(f)
	if err != nil {
		return nil, err
	}
	return bytestuff.Encode(raw, fr.opts...)
}

// NewStreamDecoder creates a decoder for one byte stream, raw frames up to maxRawSize bytes
func (fr *Framer) NewStreamDecoder(maxRawSize int) (*StreamDecoder, error) {
	un, err := bytestuff.NewUnstuffer(make([]byte, maxRawSize), fr.opts...)
	if err != nil {
		return nil, err
	}
	if err := un.NewFrame(); err != nil {
		return nil, err
	}
	return &StreamDecoder{
		codec: fr.codec,
		un:    un,
	}, nil
}

// StreamDecoder reassembles frames from arbitrary chunks of one stream
type StreamDecoder struct {
	codec Codec
	un    *bytestuff.Unstuffer
}

// Feed consumes the whole chunk, calling h for every frame terminated in it.
// A partial frame at the end of chunk is kept for the next call.
func (d *StreamDecoder) Feed(chunk []byte, h DecodedHandler) error {
	for len(chunk) > 0 {
		consumed, status, err := d.un.Feed(chunk)
		chunk = chunk[consumed:]

		switch status {
		case bytestuff.StatusComplete:
			h(d.decode())
		case bytestuff.StatusMalformed:
			if err != nil {
				h(nil, errors.Wrap(err, entity.ErrFrameMalformed.Error()))
			} else {
				h(nil, entity.ErrFrameMalformed)
			}
		default:
			if err != nil {
				return err
			}
			continue
		}

		if err := d.un.NewFrame(); err != nil {
			return err
		}
	}

	return nil
}

// InFrame reports whether a partial frame is pending
func (d *StreamDecoder) InFrame() bool {
	inFrame, err := d.un.InFrame()
	return err == nil && inFrame
}

// Reset drops a pending partial frame
func (d *StreamDecoder) Reset() error {
	return d.un.NewFrame()
}

func (d *StreamDecoder) decode() (*entity.Frame, error) {
	raw, err := d.un.Frame()
	if err != nil {
		return nil, err
	}
	f := &entity.Frame{}
	if err := d.codec.Unmarshal(raw, f); err != nil {
		return nil, err
	}
	return f, nil
}
