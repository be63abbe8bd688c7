package server

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forest33/edsp/business/entity"
	"github.com/forest33/edsp/pkg/bytestuff"
	"github.com/forest33/edsp/pkg/codec"
	"github.com/forest33/edsp/pkg/logger"
)

type bufWriter struct {
	bytes.Buffer
	closed bool
}

func (w *bufWriter) Write(data []byte) error {
	_, err := w.Buffer.Write(data)
	return err
}

func (w *bufWriter) Close() error {
	w.closed = true
	return nil
}

func newTestConfig() *Config {
	c := codec.NewFrameCodec(logger.NewDefault(), &codec.Config{MaxPayloadSize: 256})
	return &Config{
		Port:       1977,
		Framer:     codec.NewFramer(c),
		MaxRawSize: c.MaxRawSize(),
	}
}

func newTestSession(t *testing.T, cfg *Config, h *handlers) *session {
	dec, err := cfg.Framer.NewStreamDecoder(cfg.MaxRawSize)
	require.NoError(t, err)
	link := entity.NewLink("test", entity.ProtoTCP, "127.0.0.1:5000", &bufWriter{})
	return newSession(logger.NewDefault(), link, dec, h)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, newTestConfig().validate())

	cfg := newTestConfig()
	cfg.Framer = nil
	assert.Error(t, cfg.validate())

	cfg = newTestConfig()
	cfg.Port = 0
	assert.Error(t, cfg.validate())
}

func TestSessionFeed(t *testing.T) {
	cfg := newTestConfig()

	var (
		received []*entity.Frame
		failures []error
	)
	h := &handlers{
		receiver: func(f *entity.Frame, link *entity.Link) error {
			received = append(received, f)
			return nil
		},
		frameError: func(err error, link *entity.Link) {
			failures = append(failures, err)
		},
	}
	sess := newTestSession(t, cfg, h)

	frame1, err := cfg.Framer.Encode(&entity.Frame{Type: entity.FrameTypeData, ID: 1, Payload: []byte("one")})
	require.NoError(t, err)
	frame2, err := cfg.Framer.Encode(&entity.Frame{Type: entity.FrameTypeSamples, ID: 2, Payload: []byte{0xA2, 0xA2}})
	require.NoError(t, err)

	var wire []byte
	wire = append(wire, frame1...)
	wire = append(wire, bytestuff.DefaultSOF, bytestuff.DefaultEOF)
	wire = append(wire, frame2...)

	require.NoError(t, sess.feed(wire[:5]))
	require.NoError(t, sess.feed(wire[5:]))

	require.Len(t, received, 2)
	assert.Equal(t, []byte("one"), received[0].Payload)
	assert.Equal(t, []byte{0xA2, 0xA2}, received[1].Payload)
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0], entity.ErrFrameMalformed)

	stat := sess.link.Stat.Snapshot()
	assert.Equal(t, uint64(len(wire)), stat.IncomingBytes)
	assert.Equal(t, uint64(2), stat.IncomingFrames)
	assert.Equal(t, uint64(1), stat.MalformedFrames)
	assert.Zero(t, stat.ChecksumErrors)
}

func TestSessionChecksumError(t *testing.T) {
	cfg := newTestConfig()
	c := codec.NewFrameCodec(logger.NewDefault(), &codec.Config{MaxPayloadSize: 256})

	raw, err := c.Marshal(&entity.Frame{Type: entity.FrameTypeData, Payload: []byte("abc")})
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01
	wire, err := bytestuff.Encode(raw)
	require.NoError(t, err)

	sess := newTestSession(t, cfg, &handlers{})
	require.NoError(t, sess.feed(wire))

	stat := sess.link.Stat.Snapshot()
	assert.Equal(t, uint64(1), stat.ChecksumErrors)
	assert.Zero(t, stat.IncomingFrames)
}

func TestSessionReceiverErrors(t *testing.T) {
	cfg := newTestConfig()
	wire, err := cfg.Framer.Encode(&entity.Frame{Type: entity.FrameTypeData, Payload: []byte("x")})
	require.NoError(t, err)

	sess := newTestSession(t, cfg, &handlers{
		receiver: func(f *entity.Frame, link *entity.Link) error {
			return errors.New("busy")
		},
	})
	assert.NoError(t, sess.feed(wire))

	sess = newTestSession(t, cfg, &handlers{
		receiver: func(f *entity.Frame, link *entity.Link) error {
			return entity.ErrLinkClosed
		},
	})
	assert.ErrorIs(t, sess.feed(wire), entity.ErrLinkClosed)
}

func TestSend(t *testing.T) {
	cfg := newTestConfig()
	w := &bufWriter{}
	link := entity.NewLink("l", entity.ProtoTCP, "", w)

	require.NoError(t, send(cfg, &entity.Frame{Type: entity.FrameTypeData, ID: 7, Payload: []byte{0xA3}}, link))

	got := w.Bytes()
	require.NotEmpty(t, got)
	assert.Equal(t, bytestuff.DefaultSOF, got[0])
	assert.Equal(t, bytestuff.DefaultEOF, got[len(got)-1])
	assert.Equal(t, uint64(len(got)), link.Stat.OutgoingBytes.Load())
	assert.Equal(t, uint64(1), link.Stat.OutgoingFrames.Load())

	assert.ErrorIs(t, send(cfg, &entity.Frame{Type: entity.FrameTypeData}, nil), entity.ErrLinkNotExists)
	assert.ErrorIs(t, send(cfg, &entity.Frame{Type: 0}, link), entity.ErrUnknownFrameType)
}
