package bytestuff

import (
	"github.com/forest33/edsp/business/entity"
)

type stufferState uint8

const (
	stufferNeedSOF stufferState = iota
	stufferNeedRawData
	stufferNeedNegatedEscapedByte
	stufferNeedEOF
	stufferDone
)

// Stuffer incremental frame encoder.
// The raw payload is staged into the bound buffer, then stuffed output is
// pulled a chunk at a time. Not safe for concurrent use.
type Stuffer struct {
	opts     options
	buf      []byte
	capacity int
	frameLen int
	cursor   int
	state    stufferState
	isInit   bool
	armed    bool
}

// NewStuffer creates a Stuffer bound to buf
func NewStuffer(buf []byte, opts ...Option) (*Stuffer, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	s := &Stuffer{opts: o}
	if err := s.Init(buf); err != nil {
		return nil, err
	}

	return s, nil
}

// Init binds the Stuffer to buf, dropping any armed frame
func (s *Stuffer) Init(buf []byte) error {
	if s == nil || buf == nil {
		return entity.ErrBadPointer
	}
	if len(buf) == 0 {
		return entity.ErrBadParam
	}

	tokens := s.opts.tokens
	if tokens == (Tokens{}) {
		tokens = DefaultTokens
	}

	*s = Stuffer{
		opts:     options{tokens: tokens},
		buf:      buf,
		capacity: len(buf),
		isInit:   true,
	}

	return nil
}

// IsInit reports whether the Stuffer is bound to a buffer
func (s *Stuffer) IsInit() bool {
	return s != nil && s.isInit
}

// Tokens returns the reserved token set in use
func (s *Stuffer) Tokens() Tokens {
	return s.opts.tokens
}

// Staging returns the region where the raw payload must be written before NewFrame
func (s *Stuffer) Staging() ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.buf, nil
}

// NewFrame arms a frame of n raw bytes already present in the staging region
func (s *Stuffer) NewFrame(n int) error {
	if err := s.check(); err != nil {
		return err
	}
	if n <= 0 || n > s.capacity {
		return entity.ErrBadParam
	}

	s.frameLen = n
	s.cursor = 0
	s.state = stufferNeedSOF
	s.armed = true

	return nil
}

// Load copies payload into the staging region and arms it
func (s *Stuffer) Load(payload []byte) error {
	if err := s.check(); err != nil {
		return err
	}
	if payload == nil {
		return entity.ErrBadPointer
	}
	if len(payload) == 0 || len(payload) > s.capacity {
		return entity.ErrBadParam
	}

	copy(s.buf, payload)

	return s.NewFrame(len(payload))
}

// Restart rewinds the armed frame so it can be stuffed again
func (s *Stuffer) Restart() error {
	if err := s.check(); err != nil {
		return err
	}
	if !s.armed {
		return entity.ErrFrameNotArmed
	}

	s.cursor = 0
	s.state = stufferNeedSOF

	return nil
}

// Remaining returns how many stuffed bytes are still to be pulled
func (s *Stuffer) Remaining() (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	if !s.armed {
		return 0, entity.ErrFrameNotArmed
	}

	switch s.state {
	case stufferNeedSOF:
		return 1 + s.bodyLen(s.cursor) + 1, nil
	case stufferNeedRawData:
		return s.bodyLen(s.cursor) + 1, nil
	case stufferNeedNegatedEscapedByte:
		return 1 + s.bodyLen(s.cursor+1) + 1, nil
	case stufferNeedEOF:
		return 1, nil
	default:
		return 0, nil
	}
}

// Pull writes the next stuffed bytes into dst.
// It returns len(dst) and a nil error when dst was filled and the frame goes on,
// and entity.ErrFrameEnded together with the bytes written once the frame is over.
func (s *Stuffer) Pull(dst []byte) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	if dst == nil {
		return 0, entity.ErrBadPointer
	}
	if len(dst) == 0 {
		return 0, entity.ErrBadParam
	}
	if !s.armed {
		return 0, entity.ErrFrameNotArmed
	}

	var n int
	for n < len(dst) && s.state != stufferDone {
		switch s.state {
		case stufferNeedSOF:
			dst[n] = s.opts.tokens.SOF
			s.state = stufferNeedRawData
		case stufferNeedRawData:
			b := s.buf[s.cursor]
			if s.opts.tokens.IsReserved(b) {
				dst[n] = s.opts.tokens.ESC
				s.state = stufferNeedNegatedEscapedByte
			} else {
				dst[n] = b
				s.advance()
			}
		case stufferNeedNegatedEscapedByte:
			dst[n] = ^s.buf[s.cursor]
			s.advance()
		case stufferNeedEOF:
			dst[n] = s.opts.tokens.EOF
			s.state = stufferDone
		}
		n++
	}

	if s.state == stufferDone {
		return n, entity.ErrFrameEnded
	}

	return n, nil
}

func (s *Stuffer) advance() {
	s.cursor++
	if s.cursor < s.frameLen {
		s.state = stufferNeedRawData
	} else {
		s.state = stufferNeedEOF
	}
}

func (s *Stuffer) bodyLen(from int) int {
	var n int
	for _, b := range s.buf[from:s.frameLen] {
		if s.opts.tokens.IsReserved(b) {
			n += 2
		} else {
			n++
		}
	}
	return n
}

func (s *Stuffer) check() error {
	if s == nil {
		return entity.ErrBadPointer
	}
	if !s.isInit {
		return entity.ErrNotInitialized
	}
	if s.buf == nil || s.capacity == 0 || len(s.buf) != s.capacity {
		return entity.ErrCorruptContext
	}
	if s.frameLen < 0 || s.frameLen > s.capacity || s.cursor < 0 || s.cursor > s.frameLen || s.state > stufferDone {
		return entity.ErrCorruptContext
	}

	if !s.armed {
		if s.frameLen != 0 || s.cursor != 0 || s.state != stufferNeedSOF {
			return entity.ErrCorruptContext
		}
		return nil
	}

	if s.frameLen == 0 {
		return entity.ErrCorruptContext
	}

	switch s.state {
	case stufferNeedSOF:
		if s.cursor != 0 {
			return entity.ErrCorruptContext
		}
	case stufferNeedRawData:
		if s.cursor >= s.frameLen {
			return entity.ErrCorruptContext
		}
	case stufferNeedNegatedEscapedByte:
		if s.cursor >= s.frameLen || !s.opts.tokens.IsReserved(s.buf[s.cursor]) {
			return entity.ErrCorruptContext
		}
	case stufferNeedEOF, stufferDone:
		if s.cursor != s.frameLen {
			return entity.ErrCorruptContext
		}
	}

	return nil
}
