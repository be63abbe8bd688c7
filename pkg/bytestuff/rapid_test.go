package bytestuff_test

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/forest33/edsp/business/entity"
	"github.com/forest33/edsp/pkg/bytestuff"
)

var payloadGen = rapid.SliceOfN(
	rapid.OneOf(
		rapid.Byte(),
		rapid.SampledFrom([]byte{bytestuff.DefaultSOF, bytestuff.DefaultEOF, bytestuff.DefaultESC}),
	), 1, 300)

func stuff(t *rapid.T, payload []byte, chunkSize int) []byte {
	s, err := bytestuff.NewStuffer(make([]byte, len(payload)))
	if err != nil {
		t.Fatalf("new stuffer: %v", err)
	}
	if err := s.Load(payload); err != nil {
		t.Fatalf("load: %v", err)
	}

	var (
		out   []byte
		chunk = make([]byte, chunkSize)
	)
	for {
		n, err := s.Pull(chunk)
		out = append(out, chunk[:n]...)
		if errors.Is(err, entity.ErrFrameEnded) {
			return out
		}
		if err != nil {
			t.Fatalf("pull: %v", err)
		}
	}
}

func unstuff(t *rapid.T, stuffed []byte, capacity, chunkSize int) ([]byte, bytestuff.Status) {
	u, err := bytestuff.NewUnstuffer(make([]byte, capacity))
	if err != nil {
		t.Fatalf("new unstuffer: %v", err)
	}
	if err := u.NewFrame(); err != nil {
		t.Fatalf("new frame: %v", err)
	}

	for len(stuffed) > 0 {
		n := chunkSize
		if n > len(stuffed) {
			n = len(stuffed)
		}
		consumed, status, err := u.Feed(stuffed[:n])
		if err != nil {
			t.Fatalf("feed: %v", err)
		}
		if status != bytestuff.StatusNeedMore {
			frame, _ := u.Frame()
			return frame, status
		}
		stuffed = stuffed[consumed:]
	}

	status, err := u.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	return nil, status
}

func TestRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		payload := payloadGen.Draw(t, "payload").([]byte)
		stuffChunk := rapid.IntRange(1, 64).Draw(t, "stuffChunk").(int)
		unstuffChunk := rapid.IntRange(1, 64).Draw(t, "unstuffChunk").(int)

		stuffed := stuff(t, payload, stuffChunk)
		frame, status := unstuff(t, stuffed, len(payload), unstuffChunk)

		if status != bytestuff.StatusComplete {
			t.Fatalf("unexpected status %s", status)
		}
		if !bytes.Equal(payload, frame) {
			t.Fatalf("payload mismatch: %x != %x", payload, frame)
		}
	})
}

func TestEscapeMinimality(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		payload := payloadGen.Draw(t, "payload").([]byte)

		var reserved int
		for _, b := range payload {
			if bytestuff.DefaultTokens.IsReserved(b) {
				reserved++
			}
		}

		stuffed := stuff(t, payload, len(payload)*2+2)
		if len(stuffed) != len(payload)+2+reserved {
			t.Fatalf("stuffed length %d, expected %d", len(stuffed), len(payload)+2+reserved)
		}
		if stuffed[0] != bytestuff.DefaultSOF || stuffed[len(stuffed)-1] != bytestuff.DefaultEOF {
			t.Fatalf("missing delimiters")
		}
		for _, b := range stuffed[1 : len(stuffed)-1] {
			if b == bytestuff.DefaultSOF || b == bytestuff.DefaultEOF {
				t.Fatalf("delimiter inside the body: %x", stuffed)
			}
		}
	})
}

func TestChunkSizeIndependence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		payload := payloadGen.Draw(t, "payload").([]byte)
		stuffed := stuff(t, payload, 1)

		for _, size := range []int{1, 2, len(stuffed)} {
			frame, status := unstuff(t, stuffed, len(payload), size)
			if status != bytestuff.StatusComplete || !bytes.Equal(payload, frame) {
				t.Fatalf("chunk size %d: status %s frame %x", size, status, frame)
			}
		}
	})
}

func TestDoubleSOFIsMalformed(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		payload := payloadGen.Draw(t, "payload").([]byte)
		stuffed := stuff(t, payload, 16)
		cut := rapid.IntRange(1, len(stuffed)-1).Draw(t, "cut").(int)

		broken := append(append([]byte{}, stuffed[:cut]...), stuffed...)
		_, status := unstuff(t, broken, len(payload)*2, 7)
		if status != bytestuff.StatusMalformed {
			t.Fatalf("expected malformed, got %s", status)
		}
	})
}

func TestEncodeDecode(t *testing.T) {
	_, err := bytestuff.Encode(nil)
	assert.ErrorIs(t, err, entity.ErrBadPointer)
	_, err = bytestuff.Encode([]byte{})
	assert.ErrorIs(t, err, entity.ErrBadParam)

	_, err = bytestuff.Decode([]byte{bytestuff.DefaultSOF, 0x01})
	assert.ErrorIs(t, err, entity.ErrFrameIncomplete)
	_, err = bytestuff.Decode([]byte{bytestuff.DefaultSOF, bytestuff.DefaultSOF})
	assert.ErrorIs(t, err, entity.ErrFrameMalformed)

	stuffed, err := bytestuff.Encode([]byte("hello\xa1"))
	require.NoError(t, err)
	payload, err := bytestuff.Decode(stuffed)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello\xa1"), payload)
}

func TestWriterReader(t *testing.T) {
	var (
		wire   bytes.Buffer
		frames = [][]byte{
			{0x01},
			{bytestuff.DefaultSOF, bytestuff.DefaultEOF, bytestuff.DefaultESC},
			bytes.Repeat([]byte{0xA1, 0x00}, 700),
		}
	)

	w, err := bytestuff.NewWriter(&wire, 2048)
	require.NoError(t, err)

	for _, f := range frames {
		n, err := w.WriteFrame(f)
		require.NoError(t, err)
		assert.Equal(t, bytestuff.DefaultTokens.StuffedLen(f), n)
	}

	_, err = w.WriteFrame(make([]byte, 2049))
	assert.ErrorIs(t, err, entity.ErrBadParam)

	// noise between frames and a broken frame in the middle
	stream := append([]byte{0x00, 0x13}, wire.Bytes()[:3]...)
	stream = append(stream, bytestuff.DefaultSOF, 0x01, bytestuff.DefaultESC, 0x01, bytestuff.DefaultEOF)
	stream = append(stream, wire.Bytes()[3:]...)

	r, err := bytestuff.NewReader(iotest.HalfReader(bytes.NewReader(stream)), 2048)
	require.NoError(t, err)

	got, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, frames[0], got)

	_, err = r.ReadFrame()
	assert.ErrorIs(t, err, entity.ErrFrameMalformed)
	assert.EqualValues(t, 1, r.Malformed())

	for _, want := range frames[1:] {
		got, err := r.ReadFrame()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err = r.ReadFrame()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderUnexpectedEOF(t *testing.T) {
	r, err := bytestuff.NewReader(bytes.NewReader([]byte{bytestuff.DefaultSOF, 0x01}), 16)
	require.NoError(t, err)

	_, err = r.ReadFrame()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
