// Package main edsp bridge main package
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	rest "github.com/forest33/edsp/adapter/http"
	"github.com/forest33/edsp/adapter/server"
	"github.com/forest33/edsp/business/entity"
	"github.com/forest33/edsp/business/usecase"
	"github.com/forest33/edsp/pkg/automaxprocs"
	"github.com/forest33/edsp/pkg/bytestuff"
	"github.com/forest33/edsp/pkg/codec"
	"github.com/forest33/edsp/pkg/config"
	"github.com/forest33/edsp/pkg/logger"
	"github.com/forest33/edsp/pkg/profiler"
)

var (
	cfg        = &entity.BridgeConfig{}
	cfgHandler *config.Config
	zlog       *logger.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	undoProcs  func()

	linkServers   []entity.LinkServer
	bridgeUseCase *usecase.BridgeUseCase
)

func init() {
	var err error
	cfgHandler, err = config.New(entity.DefaultBridgeConfigFileName, "", cfg)
	if err != nil {
		log.Fatalf("failed to parse config file: %v", err)
	}

	zlog = logger.New(logger.Config{
		Level:             cfg.Logger.Level,
		TimeFieldFormat:   cfg.Logger.TimeFieldFormat,
		PrettyPrint:       *cfg.Logger.PrettyPrint,
		DisableSampling:   *cfg.Logger.DisableSampling,
		RedirectStdLogger: *cfg.Logger.RedirectStdLogger,
		ErrorStack:        *cfg.Logger.ErrorStack,
		ShowCaller:        *cfg.Logger.ShowCaller,
		FileName:          cfg.Logger.FileName,
	})
	cfgHandler.SetLogger(zlog)

	undoProcs = automaxprocs.Init(zlog, cfg.Runtime.GoMaxProcs)

	ctx, cancel = context.WithCancel(context.Background())
}

func main() {
	defer shutdown()

	if len(os.Args[1:]) > 0 {
		parseCommandLine()
		return
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		zlog.Fatalf("invalid configuration: %v", err)
	}

	initAdapters()
	initUseCases()

	if *cfg.Profiler.Enabled {
		profiler.Start(ctx, &profiler.Config{
			Host: cfg.Profiler.Host,
			Port: cfg.Profiler.Port,
		}, zlog)
	}

	if err := bridgeUseCase.Start(); err != nil {
		zlog.Fatalf("failed to start bridge: %v", err)
	}

	initRestServer()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info().Msg("shutting down")
	cancel()
	bridgeUseCase.Wait()
}

// newFramer frame codec of the configured link
func newFramer() (*codec.Framer, int) {
	tokens := bytestuff.Tokens{SOF: cfg.Link.SOF, EOF: cfg.Link.EOF, ESC: cfg.Link.ESC}
	if err := tokens.Validate(); err != nil {
		zlog.Fatalf("invalid link tokens: %v", err)
	}

	opts := []bytestuff.Option{bytestuff.WithTokens(tokens)}
	if *cfg.Link.StrictStart {
		opts = append(opts, bytestuff.WithStrictStart())
	}

	c := codec.NewFrameCodec(zlog, &codec.Config{
		MaxPayloadSize: cfg.Link.MaxFrameSize - entity.FrameOverhead,
	})

	return codec.NewFramer(c, opts...), c.MaxRawSize()
}

func initAdapters() {
	framer, maxRawSize := newFramer()

	if *cfg.Network.Enabled {
		tcp, err := server.NewTCP(zlog, &server.Config{
			Host:             cfg.Network.Host,
			Port:             cfg.Network.Port,
			Framer:           framer,
			MaxRawSize:       maxRawSize,
			Multicore:        *cfg.Network.Multicore,
			ReadBufferSize:   cfg.Network.ReadBufferSize,
			WriteBufferSize:  cfg.Network.WriteBufferSize,
			KeepaliveTimeout: cfg.Network.KeepaliveTimeout,
		})
		if err != nil {
			zlog.Fatalf("failed to create TCP server: %v", err)
		}
		linkServers = append(linkServers, tcp)
	}

	if *cfg.Serial.Enabled {
		uart, err := server.NewSerial(zlog, &server.Config{
			Framer:     framer,
			MaxRawSize: maxRawSize,
		}, &server.SerialConfig{
			Port:        cfg.Serial.Port,
			BaudRate:    cfg.Serial.BaudRate,
			DataBits:    cfg.Serial.DataBits,
			Parity:      cfg.Serial.Parity,
			StopBits:    cfg.Serial.StopBits,
			ReadTimeout: cfg.Serial.ReadTimeout,
		})
		if err != nil {
			zlog.Fatalf("failed to create serial link: %v", err)
		}
		linkServers = append(linkServers, uart)
	}
}

func initUseCases() {
	var err error

	bridgeUseCase, err = usecase.NewBridgeUseCase(ctx, zlog, cfg, cfgHandler, linkServers...)
	if err != nil {
		zlog.Fatalf("failed to create bridge: %v", err)
	}
}

func initRestServer() {
	if !*cfg.Rest.Enabled {
		return
	}
	rest.New(&rest.Config{
		Host: cfg.Rest.Host,
		Port: cfg.Rest.Port,
	}, zlog, bridgeUseCase).Start(ctx)
}

func shutdown() {
	cancel()
	cfgHandler.Close()
	undoProcs()
	// let servers flush their shutdown logs
	time.Sleep(100 * time.Millisecond)
}
