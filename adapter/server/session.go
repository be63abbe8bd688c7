package server

import (
	"errors"

	"github.com/forest33/edsp/business/entity"
	"github.com/forest33/edsp/pkg/codec"
	"github.com/forest33/edsp/pkg/logger"
)

// handlers callbacks installed by the use case
type handlers struct {
	receiver   entity.FrameHandler
	frameError entity.FrameErrorHandler
	connect    entity.ConnectHandler
	disconnect entity.DisconnectHandler
}

// session decoding state of one connection
type session struct {
	log  *logger.Logger
	link *entity.Link
	dec  *codec.StreamDecoder
	h    *handlers
}

func newSession(log *logger.Logger, link *entity.Link, dec *codec.StreamDecoder, h *handlers) *session {
	return &session{
		log:  log,
		link: link,
		dec:  dec,
		h:    h,
	}
}

// feed hands every complete frame in data to the receiver.
// A non-nil error means the connection must be closed.
func (s *session) feed(data []byte) error {
	s.link.Stat.IncomingBytes.Add(uint64(len(data)))

	var closeErr error
	err := s.dec.Feed(data, func(f *entity.Frame, err error) {
		if closeErr != nil {
			return
		}
		if err != nil {
			s.frameFailed(err)
			return
		}

		s.link.Stat.IncomingFrames.Add(1)

		if s.h.receiver == nil {
			return
		}
		if err := s.h.receiver(f, s.link); err != nil {
			if errors.Is(err, entity.ErrLinkClosed) {
				closeErr = err
				return
			}
			s.log.Error().Err(err).
				Str("link", s.link.ID).
				Uint32("frame_id", f.ID).
				Str("type", f.Type.String()).
				Msg("failed to handle frame")
		}
	})
	if err != nil {
		s.log.Error().Err(err).Str("link", s.link.ID).Msg("stream decoder failed")
		return err
	}

	return closeErr
}

func (s *session) frameFailed(err error) {
	if errors.Is(err, entity.ErrChecksumMismatch) {
		s.link.Stat.ChecksumErrors.Add(1)
	} else {
		s.link.Stat.MalformedFrames.Add(1)
	}

	s.log.Debug().Err(err).Str("link", s.link.ID).Msg("frame dropped")

	if s.h.frameError != nil {
		s.h.frameError(err, s.link)
	}
}
