package server

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/gnet/v2"

	"github.com/forest33/edsp/business/entity"
	"github.com/forest33/edsp/pkg/logger"
	"github.com/forest33/edsp/pkg/structs"
)

const (
	stopTimeout = 5 * time.Second
)

// TCP gnet based LinkServer, one stream decoder per connection
type TCP struct {
	log  *logger.Logger
	cfg  *Config
	h    handlers
	addr string
}

type engine struct {
	gnet.BuiltinEventEngine
	srv *TCP
}

func NewTCP(log *logger.Logger, cfg *Config) (*TCP, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &TCP{
		log:  log.Layer("srv"),
		cfg:  cfg,
		addr: fmt.Sprintf("tcp://%s:%d", structs.If(cfg.Host != "", cfg.Host, "0.0.0.0"), cfg.Port),
	}, nil
}

// Run serves until ctx is done
func (s *TCP) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := gnet.Stop(sctx, s.addr); err != nil {
			s.log.Error().Err(err).Msg("failed to stop server")
		}
	}()

	opts := []gnet.Option{
		gnet.WithMulticore(s.cfg.Multicore),
		gnet.WithReuseAddr(true),
		gnet.WithReusePort(true),
		gnet.WithLogger(s.log.Layer("gnet")),
	}
	if s.cfg.ReadBufferSize > 0 {
		opts = append(opts, gnet.WithSocketRecvBuffer(s.cfg.ReadBufferSize))
	}
	if s.cfg.WriteBufferSize > 0 {
		opts = append(opts, gnet.WithSocketSendBuffer(s.cfg.WriteBufferSize))
	}
	if s.cfg.KeepaliveTimeout > 0 {
		opts = append(opts, gnet.WithTCPKeepAlive(time.Duration(s.cfg.KeepaliveTimeout)*time.Second))
	}

	return gnet.Run(&engine{srv: s}, s.addr, opts...)
}

func (s *TCP) Send(f *entity.Frame, link *entity.Link) error {
	return send(s.cfg, f, link)
}

func send(cfg *Config, f *entity.Frame, link *entity.Link) error {
	if link == nil || link.Writer == nil {
		return entity.ErrLinkNotExists
	}

	data, err := cfg.Framer.Encode(f)
	if err != nil {
		return err
	}
	if err := link.Writer.Write(data); err != nil {
		return err
	}

	link.Stat.OutgoingBytes.Add(uint64(len(data)))
	link.Stat.OutgoingFrames.Add(1)

	return nil
}

func (s *TCP) SetReceiverHandler(f entity.FrameHandler) {
	s.h.receiver = f
}

func (s *TCP) SetErrorHandler(f entity.FrameErrorHandler) {
	s.h.frameError = f
}

func (s *TCP) SetConnectHandler(f entity.ConnectHandler) {
	s.h.connect = f
}

func (s *TCP) SetDisconnectHandler(f entity.DisconnectHandler) {
	s.h.disconnect = f
}

func (e *engine) OnBoot(_ gnet.Engine) gnet.Action {
	e.srv.log.Info().Str("addr", e.srv.addr).Msg("server started")
	return gnet.None
}

func (e *engine) OnShutdown(_ gnet.Engine) {
	e.srv.log.Info().Str("addr", e.srv.addr).Msg("server stopped")
}

func (e *engine) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	s := e.srv

	dec, err := s.cfg.Framer.NewStreamDecoder(s.cfg.MaxRawSize)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create stream decoder")
		return nil, gnet.Close
	}

	link := entity.NewLink(uuid.New().String(), entity.ProtoTCP, c.RemoteAddr().String(), &connWriter{conn: c})
	c.SetContext(newSession(s.log, link, dec, &s.h))

	s.log.Info().
		Str("addr", link.Addr).
		Str("link", link.ID).
		Msg("connection accepted")

	if s.h.connect != nil {
		s.h.connect(link)
	}

	return nil, gnet.None
}

func (e *engine) OnTraffic(c gnet.Conn) gnet.Action {
	sess, ok := c.Context().(*session)
	if !ok {
		return gnet.Close
	}

	n := c.InboundBuffered()
	if n == 0 {
		return gnet.None
	}

	data, err := c.Peek(n)
	if err != nil {
		if entity.IsErrorInterruptingNetwork(err) {
			return gnet.Close
		}
		e.srv.log.Error().Err(err).Msg("failed to read from socket")
		return gnet.None
	}

	ferr := sess.feed(data)

	if _, err := c.Discard(n); err != nil {
		e.srv.log.Error().Err(err).Msg("failed to discard buffer")
	}

	if ferr != nil {
		return gnet.Close
	}

	return gnet.None
}

func (e *engine) OnClose(c gnet.Conn, err error) gnet.Action {
	sess, ok := c.Context().(*session)
	if !ok {
		return gnet.None
	}

	e.srv.log.Debug().Str("addr", sess.link.Addr).Str("link", sess.link.ID).Msg("connection closed")

	if e.srv.h.disconnect != nil {
		e.srv.h.disconnect(sess.link, err)
	}

	return gnet.None
}

// connWriter LinkWriter over a gnet connection
type connWriter struct {
	conn gnet.Conn
}

func (w *connWriter) Write(data []byte) error {
	return w.conn.AsyncWrite(data, nil)
}

func (w *connWriter) Close() error {
	return w.conn.Close()
}
