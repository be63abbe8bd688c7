package server

import (
	"context"
	"io"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.bug.st/serial"

	"github.com/forest33/edsp/business/entity"
	"github.com/forest33/edsp/pkg/logger"
)

const (
	serialReadBufferSize = 1024
)

var (
	parities = map[string]serial.Parity{
		"none":  serial.NoParity,
		"odd":   serial.OddParity,
		"even":  serial.EvenParity,
		"mark":  serial.MarkParity,
		"space": serial.SpaceParity,
	}
	stopBits = map[string]serial.StopBits{
		"1":   serial.OneStopBit,
		"1.5": serial.OnePointFiveStopBits,
		"2":   serial.TwoStopBits,
	}
)

type SerialConfig struct {
	Port        string
	BaudRate    int
	DataBits    int
	Parity      string
	StopBits    string
	ReadTimeout int
}

func (c *SerialConfig) validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required),
		validation.Field(&c.BaudRate, validation.Required),
		validation.Field(&c.Parity, validation.In("none", "odd", "even", "mark", "space")),
		validation.Field(&c.StopBits, validation.In("1", "1.5", "2")),
	)
}

func (c *SerialConfig) mode() *serial.Mode {
	return &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
		Parity:   parities[c.Parity],
		StopBits: stopBits[c.StopBits],
	}
}

// Port the subset of serial.Port used by the link
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

type PortOpener func(name string, mode *serial.Mode) (Port, error)

func openSerial(name string, mode *serial.Mode) (Port, error) {
	return serial.Open(name, mode)
}

// Serial LinkServer over a single UART
type Serial struct {
	log    *logger.Logger
	cfg    *Config
	serial *SerialConfig
	open   PortOpener
	h      handlers
}

func NewSerial(log *logger.Logger, cfg *Config, serialCfg *SerialConfig) (*Serial, error) {
	return NewSerialWithOpener(log, cfg, serialCfg, openSerial)
}

func NewSerialWithOpener(log *logger.Logger, cfg *Config, serialCfg *SerialConfig, open PortOpener) (*Serial, error) {
	if err := validation.ValidateStruct(cfg,
		validation.Field(&cfg.Framer, validation.Required),
		validation.Field(&cfg.MaxRawSize, validation.Required, validation.Min(1)),
	); err != nil {
		return nil, err
	}
	if err := serialCfg.validate(); err != nil {
		return nil, err
	}

	return &Serial{
		log:    log.Layer("serial"),
		cfg:    cfg,
		serial: serialCfg,
		open:   open,
	}, nil
}

// Run opens the port and reads frames until ctx is done or the port fails
func (s *Serial) Run(ctx context.Context) error {
	port, err := s.open(s.serial.Port, s.serial.mode())
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", s.serial.Port)
	}
	if s.serial.ReadTimeout > 0 {
		if err := port.SetReadTimeout(time.Duration(s.serial.ReadTimeout) * time.Millisecond); err != nil {
			_ = port.Close()
			return errors.Wrap(err, "failed to set read timeout")
		}
	}

	dec, err := s.cfg.Framer.NewStreamDecoder(s.cfg.MaxRawSize)
	if err != nil {
		_ = port.Close()
		return err
	}

	w := &portWriter{port: port}
	link := entity.NewLink(uuid.New().String(), entity.ProtoSerial, s.serial.Port, w)
	sess := newSession(s.log, link, dec, &s.h)

	s.log.Info().
		Str("port", s.serial.Port).
		Int("baud_rate", s.serial.BaudRate).
		Str("link", link.ID).
		Msg("serial port opened")

	if s.h.connect != nil {
		s.h.connect(link)
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = w.Close()
		case <-stop:
		}
	}()

	err = s.readLoop(ctx, port, sess)

	_ = w.Close()
	if s.h.disconnect != nil {
		s.h.disconnect(link, err)
	}
	s.log.Info().Str("port", s.serial.Port).Msg("serial port closed")

	return err
}

func (s *Serial) readLoop(ctx context.Context, port Port, sess *session) error {
	buf := make([]byte, serialReadBufferSize)
	for {
		n, err := port.Read(buf)
		if n > 0 {
			if ferr := sess.feed(buf[:n]); ferr != nil {
				return ferr
			}
		}
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return errors.Wrap(err, "failed to read from serial port")
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (s *Serial) Send(f *entity.Frame, link *entity.Link) error {
	return send(s.cfg, f, link)
}

func (s *Serial) SetReceiverHandler(f entity.FrameHandler) {
	s.h.receiver = f
}

func (s *Serial) SetErrorHandler(f entity.FrameErrorHandler) {
	s.h.frameError = f
}

func (s *Serial) SetConnectHandler(f entity.ConnectHandler) {
	s.h.connect = f
}

func (s *Serial) SetDisconnectHandler(f entity.DisconnectHandler) {
	s.h.disconnect = f
}

// portWriter serializes writes from concurrent senders
type portWriter struct {
	mu     sync.Mutex
	port   Port
	closed bool
}

func (w *portWriter) Write(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return entity.ErrLinkClosed
	}

	for sent := 0; sent < len(data); {
		n, err := w.port.Write(data[sent:])
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

func (w *portWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	return w.port.Close()
}
