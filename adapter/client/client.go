// Package client framed TCP client of the bridge
package client

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pkg/errors"

	"github.com/forest33/edsp/business/entity"
	"github.com/forest33/edsp/pkg/codec"
	"github.com/forest33/edsp/pkg/logger"
)

const (
	readBufferSize = 4096
)

var (
	ErrAckTimeout = errors.New("acknowledgement timeout")
)

type Config struct {
	Host              string
	Port              uint16
	Framer            *codec.Framer
	MaxRawSize        int
	ReadBufferSize    int
	WriteBufferSize   int
	KeepaliveInterval time.Duration
	MaxTimeout        time.Duration
	BackoffFactor     float64
	Retries           int
}

func (c *Config) validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Host, validation.Required),
		validation.Field(&c.Port, validation.Required),
		validation.Field(&c.Framer, validation.Required),
		validation.Field(&c.MaxRawSize, validation.Required, validation.Min(1)),
		validation.Field(&c.Retries, validation.Min(0)),
	)
}

type Client struct {
	log      *logger.Logger
	cfg      *Config
	conn     net.Conn
	rto      *rtoEstimator
	nextID   atomic.Uint32
	wmu      sync.Mutex
	waiters  sync.Map
	receiver entity.FrameHandler
	link     *entity.Link
	done     chan struct{}
}

// Dial connects to the bridge and starts the receive loop
func Dial(ctx context.Context, log *logger.Logger, cfg *Config, receiver entity.FrameHandler) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	d := &net.Dialer{KeepAlive: cfg.KeepaliveInterval}
	cn, err := d.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect")
	}

	return newClient(log, cfg, cn, receiver)
}

func newClient(log *logger.Logger, cfg *Config, cn net.Conn, receiver entity.FrameHandler) (*Client, error) {
	if tcp, ok := cn.(*net.TCPConn); ok {
		if cfg.ReadBufferSize > 0 {
			if err := tcp.SetReadBuffer(cfg.ReadBufferSize); err != nil {
				_ = cn.Close()
				return nil, err
			}
		}
		if cfg.WriteBufferSize > 0 {
			if err := tcp.SetWriteBuffer(cfg.WriteBufferSize); err != nil {
				_ = cn.Close()
				return nil, err
			}
		}
	}

	dec, err := cfg.Framer.NewStreamDecoder(cfg.MaxRawSize)
	if err != nil {
		_ = cn.Close()
		return nil, err
	}

	c := &Client{
		log:      log.Layer("cli"),
		cfg:      cfg,
		conn:     cn,
		rto:      newRTOEstimator(cfg.MaxTimeout),
		receiver: receiver,
		done:     make(chan struct{}),
	}
	c.link = entity.NewLink(cn.LocalAddr().String(), entity.ProtoTCP, cn.RemoteAddr().String(), c)

	c.log.Info().
		Str("local", cn.LocalAddr().String()).
		Str("remote", cn.RemoteAddr().String()).
		Msg("connection established")

	go c.receive(dec)

	return c, nil
}

// Link statistics of the connection
func (c *Client) Link() *entity.Link {
	return c.link
}

// Send writes the frame without waiting for the acknowledgement
func (c *Client) Send(f *entity.Frame) error {
	if f.ID == 0 && !f.IsACK {
		f.ID = c.nextID.Add(1)
	}

	data, err := c.cfg.Framer.Encode(f)
	if err != nil {
		c.log.Error().Err(err).Msg("failed to encode frame")
		return err
	}

	if err := c.Write(data); err != nil {
		return err
	}

	c.link.Stat.OutgoingBytes.Add(uint64(len(data)))
	c.link.Stat.OutgoingFrames.Add(1)

	return nil
}

// SendSync writes the frame and retransmits it until acknowledged
func (c *Client) SendSync(ctx context.Context, f *entity.Frame) error {
	if f.ID == 0 {
		f.ID = c.nextID.Add(1)
	}

	ackCh := make(chan struct{}, 1)
	c.waiters.Store(f.ID, ackCh)
	defer c.waiters.Delete(f.ID)

	rto := c.rto.get()

	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		start := time.Now()
		if err := c.Send(f); err != nil {
			return err
		}

		timer := time.NewTimer(c.rto.backoff(rto, c.cfg.BackoffFactor, attempt))
		select {
		case <-ackCh:
			timer.Stop()
			if attempt == 0 {
				rtt := time.Since(start)
				srtt, rttvar, newRTO := c.rto.update(rtt)
				c.log.Debug().
					Uint32("id", f.ID).
					Int64("rtt", int64(rtt)).
					Float64("srtt", srtt).
					Float64("rttvar", rttvar).
					Float64("rto", newRTO.Seconds()).
					Msg("frame acknowledged")
			}
			return nil
		case <-timer.C:
			c.log.Debug().
				Uint32("id", f.ID).
				Int("attempt", attempt+1).
				Msg("acknowledgement timeout")
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-c.done:
			timer.Stop()
			return entity.ErrLinkClosed
		}
	}

	return errors.Wrapf(ErrAckTimeout, "frame %d", f.ID)
}

// Write implements entity.LinkWriter
func (c *Client) Write(data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	for sent := 0; sent < len(data); {
		n, err := c.conn.Write(data[sent:])
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		sent += n
	}

	return nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Done is closed when the receive loop ends
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) receive(dec *codec.StreamDecoder) {
	defer func() {
		close(c.done)
		c.log.Info().
			Str("remote", c.conn.RemoteAddr().String()).
			Msg("connection finished")
	}()

	buf := make([]byte, readBufferSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.link.Stat.IncomingBytes.Add(uint64(n))
			if ferr := dec.Feed(buf[:n], c.handle); ferr != nil {
				c.log.Error().Err(ferr).Msg("stream decoder failed")
				return
			}
		}
		if err != nil {
			if !entity.IsErrorInterruptingNetwork(err) {
				c.log.Error().Err(err).Msg("failed to read from socket")
			}
			return
		}
	}
}

func (c *Client) handle(f *entity.Frame, err error) {
	if err != nil {
		if errors.Is(err, entity.ErrChecksumMismatch) {
			c.link.Stat.ChecksumErrors.Add(1)
		} else {
			c.link.Stat.MalformedFrames.Add(1)
		}
		c.log.Debug().Err(err).Msg("frame dropped")
		return
	}

	c.link.Stat.IncomingFrames.Add(1)

	if f.IsACK {
		if ch, ok := c.waiters.Load(f.ID); ok {
			select {
			case ch.(chan struct{}) <- struct{}{}:
			default:
			}
		}
		return
	}

	if c.receiver == nil {
		return
	}
	if err := c.receiver(f, c.link); err != nil {
		c.log.Error().Err(err).Uint32("frame_id", f.ID).Msg("failed to handle frame")
	}
}
