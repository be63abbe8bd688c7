// Package logger wrapper for zerolog
package logger

import (
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Config logger settings
type Config struct {
	Level             string
	TimeFieldFormat   string
	PrettyPrint       bool
	RedirectStdLogger bool
	DisableSampling   bool
	ErrorStack        bool
	ShowCaller        bool
	FileName          string
	// Output replaces stdout and stderr when set
	Output io.Writer
}

var defaultConfig = Config{
	Level:           "debug",
	TimeFieldFormat: time.RFC3339,
	PrettyPrint:     true,
	DisableSampling: true,
}

// sinks destinations of the info and error streams
type sinks struct {
	out  io.Writer
	err  io.Writer
	file io.Writer
	tty  bool
}

func (s sinks) writer(w io.Writer) io.Writer {
	if s.tty {
		w = zerolog.ConsoleWriter{Out: w}
	}
	if s.file == nil {
		return w
	}
	return zerolog.MultiLevelWriter(w, s.file)
}

// Logger leveled logger writing info and debug events to the out stream
// and warnings and errors to the err stream
type Logger struct {
	info  zerolog.Logger
	alert zerolog.Logger
}

// NewDefault creates Logger writing pretty debug output to the console
func NewDefault() *Logger {
	return New(defaultConfig)
}

// New creates a new Logger
func New(cfg Config) *Logger {
	zerolog.SetGlobalLevel(getZerologLevel(cfg.Level))
	zerolog.DisableSampling(cfg.DisableSampling)
	zerolog.TimeFieldFormat = cfg.TimeFieldFormat
	if cfg.ErrorStack {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	}

	s := sinks{out: os.Stdout, err: os.Stderr, tty: cfg.PrettyPrint}
	if cfg.Output != nil {
		s.out, s.err = cfg.Output, cfg.Output
	}
	if cfg.FileName != "" {
		f, err := os.Create(expandFileName(cfg.FileName, time.Now()))
		if err != nil {
			log.Fatalf("failed to create log file: %v", err)
		}
		s.file = f
	}

	info := zerolog.New(s.writer(s.out)).With().Timestamp()
	alert := zerolog.New(s.writer(s.err)).With().Timestamp()
	if cfg.ShowCaller {
		info, alert = info.Caller(), alert.Caller()
	}

	l := &Logger{info: info.Logger(), alert: alert.Logger()}
	if cfg.RedirectStdLogger {
		log.SetFlags(0)
		log.SetOutput(l.info)
	}

	return l
}

// Debug starts a new message with debug level
func (l *Logger) Debug() *zerolog.Event {
	return l.info.Debug()
}

// Info starts a new message with info level
func (l *Logger) Info() *zerolog.Event {
	return l.info.Info()
}

// Warn starts a new message with warn level
func (l *Logger) Warn() *zerolog.Event {
	return l.alert.Warn()
}

// Error starts a new message with error level
func (l *Logger) Error() *zerolog.Event {
	return l.alert.Error()
}

// With creates a child context sharing the logger's fields
func (l *Logger) With() zerolog.Context {
	return l.info.With()
}

// Layer child logger tagged with the application layer name
func (l *Logger) Layer(name string) *Logger {
	return &Logger{
		info:  l.info.With().Str("layer", name).Logger(),
		alert: l.alert.With().Str("layer", name).Logger(),
	}
}

// SetLevel changes the global level, used on config reload
func (l *Logger) SetLevel(lvl string) error {
	level := getZerologLevel(lvl)
	if level == zerolog.NoLevel {
		return errors.Errorf("unknown log level %q", lvl)
	}
	zerolog.SetGlobalLevel(level)
	return nil
}

// Printf logs at debug level, matches the log.Printf signature
func (l *Logger) Printf(format string, v ...interface{}) {
	l.info.Debug().Msgf(format, v...)
}

// Debugf, Infof, Warnf, Errorf and Fatalf let Logger serve as a gnet logger

func (l *Logger) Debugf(format string, v ...interface{}) {
	l.info.Debug().Msgf(format, v...)
}

func (l *Logger) Infof(format string, v ...interface{}) {
	l.info.Info().Msgf(format, v...)
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.alert.Warn().Msgf(format, v...)
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.alert.Error().Msgf(format, v...)
}

// Fatalf logs with fatal level and exits
func (l *Logger) Fatalf(format string, v ...interface{}) {
	l.alert.Fatal().Msgf(format, v...)
}

func getZerologLevel(lvl string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(lvl))
	if err != nil || lvl == "" {
		return zerolog.NoLevel
	}
	return level
}

var fileNameVerbs = []string{
	"%d", "2",
	"%D", "02",
	"%m", "1",
	"%M", "01",
	"%y", "06",
	"%Y", "2006",
	"%H", "15",
	"%N", "04",
	"%S", "05",
}

// expandFileName replaces date verbs of pattern with parts of t
func expandFileName(pattern string, t time.Time) string {
	pairs := make([]string, len(fileNameVerbs))
	for i := 0; i < len(fileNameVerbs); i += 2 {
		pairs[i] = fileNameVerbs[i]
		pairs[i+1] = t.Format(fileNameVerbs[i+1])
	}
	return strings.NewReplacer(pairs...).Replace(pattern)
}
