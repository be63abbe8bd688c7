// Package bytestuff incremental byte stuffing and unstuffing of frames
//
// A stuffed frame is SOF, body, EOF. Every reserved byte inside the body is
// replaced by the pair ESC, ^byte so delimiters never appear literally in the
// payload part of the stream.
package bytestuff

import (
	"github.com/forest33/edsp/business/entity"
)

const (
	DefaultSOF byte = 0xA1
	DefaultEOF byte = 0xA2
	DefaultESC byte = 0xA3
)

// Tokens reserved byte values of a link
type Tokens struct {
	SOF byte `yaml:"sof"`
	EOF byte `yaml:"eof"`
	ESC byte `yaml:"esc"`
}

// DefaultTokens reference token set
var DefaultTokens = Tokens{
	SOF: DefaultSOF,
	EOF: DefaultEOF,
	ESC: DefaultESC,
}

// IsReserved reports whether b must be escaped inside a frame body
func (t Tokens) IsReserved(b byte) bool {
	return b == t.SOF || b == t.EOF || b == t.ESC
}

// Validate checks that the tokens are distinct and that escaping a reserved
// byte never yields another reserved byte.
func (t Tokens) Validate() error {
	if t.SOF == t.EOF || t.SOF == t.ESC || t.EOF == t.ESC {
		return entity.ErrInvalidTokens
	}
	for _, b := range [...]byte{t.SOF, t.EOF, t.ESC} {
		if t.IsReserved(^b) {
			return entity.ErrInvalidTokens
		}
	}
	return nil
}

// StuffedLen length of the stuffed representation of payload
func (t Tokens) StuffedLen(payload []byte) int {
	n := len(payload) + 2
	for _, b := range payload {
		if t.IsReserved(b) {
			n++
		}
	}
	return n
}

// MaxStuffedLen worst case stuffed length of an n bytes payload
func MaxStuffedLen(n int) int {
	return 2*n + 2
}

// Option configures a Stuffer or Unstuffer
type Option func(*options)

type options struct {
	tokens      Tokens
	strictStart bool
}

// WithTokens overrides the reserved token set
func WithTokens(t Tokens) Option {
	return func(o *options) {
		o.tokens = t
	}
}

// WithStrictStart makes the Unstuffer reject any byte received before SOF
// instead of discarding it.
func WithStrictStart() Option {
	return func(o *options) {
		o.strictStart = true
	}
}

func applyOptions(opts []Option) (options, error) {
	o := options{tokens: DefaultTokens}
	for _, f := range opts {
		f(&o)
	}
	if err := o.tokens.Validate(); err != nil {
		return o, err
	}
	return o, nil
}
