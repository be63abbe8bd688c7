package bytestuff

import (
	"github.com/forest33/edsp/business/entity"
)

type unstufferState uint8

const (
	unstufferNeedSOF unstufferState = iota
	unstufferNeedRawData
	unstufferNeedNegatedByte
	unstufferComplete
	unstufferFailed
)

// Status result of feeding stuffed bytes
type Status uint8

const (
	StatusNeedMore Status = iota
	StatusComplete
	StatusMalformed
)

func (s Status) String() string {
	switch s {
	case StatusNeedMore:
		return "need-more"
	case StatusComplete:
		return "complete"
	case StatusMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Unstuffer incremental frame decoder.
// Bytes received before SOF are discarded unless WithStrictStart is used.
// Not safe for concurrent use.
type Unstuffer struct {
	opts     options
	buf      []byte
	capacity int
	count    int
	state    unstufferState
	isInit   bool
	armed    bool
	overflow bool
}

// NewUnstuffer creates an Unstuffer writing reconstructed payloads into buf
func NewUnstuffer(buf []byte, opts ...Option) (*Unstuffer, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	u := &Unstuffer{opts: o}
	if err := u.Init(buf); err != nil {
		return nil, err
	}

	return u, nil
}

// Init binds the Unstuffer to buf, dropping any armed frame
func (u *Unstuffer) Init(buf []byte) error {
	if u == nil || buf == nil {
		return entity.ErrBadPointer
	}
	if len(buf) == 0 {
		return entity.ErrBadParam
	}

	o := u.opts
	if o.tokens == (Tokens{}) {
		o.tokens = DefaultTokens
	}

	*u = Unstuffer{
		opts:     o,
		buf:      buf,
		capacity: len(buf),
		isInit:   true,
	}

	return nil
}

// IsInit reports whether the Unstuffer is bound to a buffer
func (u *Unstuffer) IsInit() bool {
	return u != nil && u.isInit
}

// Tokens returns the reserved token set in use
func (u *Unstuffer) Tokens() Tokens {
	return u.opts.tokens
}

// NewFrame arms the Unstuffer for the next frame, abandoning the current one
func (u *Unstuffer) NewFrame() error {
	if err := u.check(); err != nil {
		return err
	}

	u.count = 0
	u.state = unstufferNeedSOF
	u.overflow = false
	u.armed = true

	return nil
}

// Feed consumes stuffed bytes from chunk.
// Consumption stops right after EOF, so chunk[consumed:] belongs to the next
// frame. A SOF that breaks the current frame is not consumed, re-arming and
// feeding chunk[consumed:] resumes from it. Running out of room reports
// StatusMalformed together with entity.ErrOverflow.
// consumed counts stuffed input bytes; the number of reconstructed bytes
// available so far is reported by Len.
func (u *Unstuffer) Feed(chunk []byte) (consumed int, status Status, err error) {
	if err := u.check(); err != nil {
		return 0, StatusNeedMore, err
	}
	if chunk == nil {
		return 0, StatusNeedMore, entity.ErrBadPointer
	}
	if len(chunk) == 0 {
		return 0, StatusNeedMore, entity.ErrBadParam
	}
	if !u.armed {
		return 0, StatusNeedMore, entity.ErrFrameNotArmed
	}

	switch u.state {
	case unstufferComplete:
		return 0, StatusComplete, nil
	case unstufferFailed:
		if u.overflow {
			return 0, StatusMalformed, entity.ErrOverflow
		}
		return 0, StatusMalformed, nil
	}

	t := u.opts.tokens
	for i, b := range chunk {
		switch u.state {
		case unstufferNeedSOF:
			if b == t.SOF {
				u.count = 0
				u.state = unstufferNeedRawData
			} else if u.opts.strictStart {
				u.state = unstufferFailed
				return i + 1, StatusMalformed, nil
			}
		case unstufferNeedRawData:
			switch b {
			case t.EOF:
				if u.count == 0 {
					u.state = unstufferFailed
					return i + 1, StatusMalformed, nil
				}
				u.state = unstufferComplete
				return i + 1, StatusComplete, nil
			case t.ESC:
				u.state = unstufferNeedNegatedByte
			case t.SOF:
				u.state = unstufferFailed
				return i, StatusMalformed, nil
			default:
				if !u.put(b) {
					return i + 1, StatusMalformed, entity.ErrOverflow
				}
			}
		case unstufferNeedNegatedByte:
			if b == t.SOF {
				u.state = unstufferFailed
				return i, StatusMalformed, nil
			}
			if !t.IsReserved(^b) {
				u.state = unstufferFailed
				return i + 1, StatusMalformed, nil
			}
			if !u.put(^b) {
				return i + 1, StatusMalformed, entity.ErrOverflow
			}
			u.state = unstufferNeedRawData
		}
	}

	return len(chunk), StatusNeedMore, nil
}

// Len returns the number of reconstructed bytes so far
func (u *Unstuffer) Len() (int, error) {
	if err := u.check(); err != nil {
		return 0, err
	}
	if !u.armed {
		return 0, entity.ErrFrameNotArmed
	}
	return u.count, nil
}

// Frame returns the reconstructed payload of a complete frame.
// The slice aliases the bound buffer and is valid until the next NewFrame.
func (u *Unstuffer) Frame() ([]byte, error) {
	if err := u.check(); err != nil {
		return nil, err
	}
	if !u.armed {
		return nil, entity.ErrFrameNotArmed
	}
	if u.state != unstufferComplete {
		return nil, entity.ErrFrameIncomplete
	}
	return u.buf[:u.count], nil
}

// Status returns the status of the armed frame
func (u *Unstuffer) Status() (Status, error) {
	if err := u.check(); err != nil {
		return StatusNeedMore, err
	}
	switch u.state {
	case unstufferComplete:
		return StatusComplete, nil
	case unstufferFailed:
		return StatusMalformed, nil
	default:
		return StatusNeedMore, nil
	}
}

// InFrame reports whether a SOF was seen and the frame is not terminated yet
func (u *Unstuffer) InFrame() (bool, error) {
	if err := u.check(); err != nil {
		return false, err
	}
	return u.state == unstufferNeedRawData || u.state == unstufferNeedNegatedByte, nil
}

func (u *Unstuffer) put(b byte) bool {
	if u.count >= u.capacity {
		u.state = unstufferFailed
		u.overflow = true
		return false
	}
	u.buf[u.count] = b
	u.count++
	return true
}

func (u *Unstuffer) check() error {
	if u == nil {
		return entity.ErrBadPointer
	}
	if !u.isInit {
		return entity.ErrNotInitialized
	}
	if u.buf == nil || u.capacity == 0 || len(u.buf) != u.capacity {
		return entity.ErrCorruptContext
	}
	if u.count < 0 || u.count > u.capacity || u.state > unstufferFailed {
		return entity.ErrCorruptContext
	}
	if u.overflow && u.state != unstufferFailed {
		return entity.ErrCorruptContext
	}
	if (!u.armed || u.state == unstufferNeedSOF) && u.count != 0 {
		return entity.ErrCorruptContext
	}
	if !u.armed && u.state != unstufferNeedSOF {
		return entity.ErrCorruptContext
	}
	return nil
}
