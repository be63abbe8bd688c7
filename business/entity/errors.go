package entity

import (
	"errors"
	"io"
	"net"
)

var (
	ErrBadPointer       = errors.New("bad pointer")
	ErrBadParam         = errors.New("bad parameter")
	ErrNotInitialized   = errors.New("context is not initialized")
	ErrFrameNotArmed    = errors.New("frame is not armed")
	ErrCorruptContext   = errors.New("corrupted context")
	ErrFrameEnded       = errors.New("frame ended")
	ErrFrameMalformed   = errors.New("malformed frame")
	ErrFrameIncomplete  = errors.New("frame is not complete")
	ErrOverflow         = errors.New("overflow")
	ErrOutOfMemory      = errors.New("out of memory")
	ErrNoData           = errors.New("not enough data")
	ErrNeedMoreValues   = errors.New("need more values")
	ErrTooManyDigest    = errors.New("too many digest operations")
	ErrNoDigest         = errors.New("no digest done")
	ErrCallback         = errors.New("crc callback reported an error")
	ErrInvalidTokens    = errors.New("invalid reserved tokens")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrWrongFrameHeader = errors.New("wrong frame header")
	ErrWrongFrameLength = errors.New("wrong frame length")
	ErrUnknownFrameType = errors.New("unknown frame type")
	ErrFrameTooLarge    = errors.New("frame too large")
	ErrLinkNotExists    = errors.New("link not exists")
	ErrLinkClosed       = errors.New("link closed")
	ErrValidation       = errors.New("validation error")
)

func IsErrorInterruptingNetwork(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Timeout() || errors.Is(opErr, net.ErrClosed)
	}
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}
