package bytestuff

import (
	"errors"
	"io"

	"github.com/forest33/edsp/business/entity"
)

const (
	defaultChunkSize = 512
)

// Encode returns the stuffed representation of payload
func Encode(payload []byte, opts ...Option) ([]byte, error) {
	if payload == nil {
		return nil, entity.ErrBadPointer
	}

	s, err := NewStuffer(payload, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.NewFrame(len(payload)); err != nil {
		return nil, err
	}

	out := make([]byte, s.Tokens().StuffedLen(payload))
	n, err := s.Pull(out)
	if !errors.Is(err, entity.ErrFrameEnded) {
		return nil, entity.ErrCorruptContext
	}

	return out[:n], nil
}

// Decode reconstructs the payload of a single stuffed frame
func Decode(stuffed []byte, opts ...Option) ([]byte, error) {
	if stuffed == nil {
		return nil, entity.ErrBadPointer
	}
	if len(stuffed) == 0 {
		return nil, entity.ErrBadParam
	}

	u, err := NewUnstuffer(make([]byte, len(stuffed)), opts...)
	if err != nil {
		return nil, err
	}
	if err := u.NewFrame(); err != nil {
		return nil, err
	}

	_, status, err := u.Feed(stuffed)
	if err != nil {
		return nil, err
	}

	switch status {
	case StatusComplete:
		return u.Frame()
	case StatusMalformed:
		return nil, entity.ErrFrameMalformed
	default:
		return nil, entity.ErrFrameIncomplete
	}
}

// Writer writes payloads as stuffed frames
type Writer struct {
	w     io.Writer
	st    *Stuffer
	chunk []byte
}

// NewWriter creates a Writer accepting payloads up to maxFrame bytes
func NewWriter(w io.Writer, maxFrame int, opts ...Option) (*Writer, error) {
	if w == nil {
		return nil, entity.ErrBadPointer
	}
	if maxFrame <= 0 {
		return nil, entity.ErrBadParam
	}

	st, err := NewStuffer(make([]byte, maxFrame), opts...)
	if err != nil {
		return nil, err
	}

	return &Writer{
		w:     w,
		st:    st,
		chunk: make([]byte, defaultChunkSize),
	}, nil
}

// WriteFrame stuffs p and writes it, returning the number of stuffed bytes written
func (w *Writer) WriteFrame(p []byte) (int, error) {
	if err := w.st.Load(p); err != nil {
		return 0, err
	}

	var written int
	for {
		n, err := w.st.Pull(w.chunk)
		if n > 0 {
			m, werr := w.w.Write(w.chunk[:n])
			written += m
			if werr != nil {
				return written, werr
			}
			if m < n {
				return written, io.ErrShortWrite
			}
		}
		if errors.Is(err, entity.ErrFrameEnded) {
			return written, nil
		}
		if err != nil {
			return written, err
		}
	}
}

// Reader reads stuffed frames from a byte stream
type Reader struct {
	r         io.Reader
	un        *Unstuffer
	buf       []byte
	start     int
	end       int
	err       error
	malformed uint64
}

// NewReader creates a Reader for payloads up to maxFrame bytes
func NewReader(r io.Reader, maxFrame int, opts ...Option) (*Reader, error) {
	if r == nil {
		return nil, entity.ErrBadPointer
	}
	if maxFrame <= 0 {
		return nil, entity.ErrBadParam
	}

	un, err := NewUnstuffer(make([]byte, maxFrame), opts...)
	if err != nil {
		return nil, err
	}

	return &Reader{
		r:   r,
		un:  un,
		buf: make([]byte, defaultChunkSize),
	}, nil
}

// ReadFrame returns the next frame payload.
// A broken frame is reported as entity.ErrFrameMalformed or entity.ErrOverflow,
// the next call continues with the following frame.
func (r *Reader) ReadFrame() ([]byte, error) {
	if err := r.un.NewFrame(); err != nil {
		return nil, err
	}

	for {
		if r.start == r.end {
			if r.err != nil {
				err := r.err
				r.err = nil
				if errors.Is(err, io.EOF) {
					inFrame, ierr := r.un.InFrame()
					if ierr != nil {
						return nil, ierr
					}
					if inFrame {
						return nil, io.ErrUnexpectedEOF
					}
				}
				return nil, err
			}
			n, err := r.r.Read(r.buf)
			r.start, r.end, r.err = 0, n, err
			continue
		}

		consumed, status, err := r.un.Feed(r.buf[r.start:r.end])
		r.start += consumed

		switch status {
		case StatusComplete:
			frame, err := r.un.Frame()
			if err != nil {
				return nil, err
			}
			out := make([]byte, len(frame))
			copy(out, frame)
			return out, nil
		case StatusMalformed:
			r.malformed++
			if err != nil {
				return nil, err
			}
			return nil, entity.ErrFrameMalformed
		}
		if err != nil {
			return nil, err
		}
	}
}

// Malformed number of broken frames seen so far
func (r *Reader) Malformed() uint64 {
	return r.malformed
}
