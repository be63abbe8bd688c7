package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/forest33/edsp/adapter/client"
	"github.com/forest33/edsp/business/entity"
	"github.com/forest33/edsp/pkg/bytestuff"
	"github.com/forest33/edsp/pkg/crc"
	"github.com/forest33/edsp/pkg/structs"
)

const (
	commandInit    = "init"
	commandStuff   = "stuff"
	commandUnstuff = "unstuff"
	commandCRC     = "crc"
	commandSend    = "send"
	commandHelp    = "help"
)

type commandData struct {
	input   string
	hexIO   bool
	host    string
	port    uint
	payload string
	typ     string
	timeout time.Duration
	retries int
	sync    bool
}

func parseCommandLine() {
	var (
		err     error
		fs      *flag.FlagSet
		data    = &commandData{}
		command = os.Args[1]
	)

	commandHandlers := map[string]func(*commandData){
		commandInit:    handlerInit,
		commandStuff:   handlerStuff,
		commandUnstuff: handlerUnstuff,
		commandCRC:     handlerCRC,
		commandSend:    handlerSend,
	}

	switch command {
	case commandInit:
		fs = flag.NewFlagSet(commandInit, flag.ExitOnError)
	case commandStuff, commandUnstuff, commandCRC:
		fs = flag.NewFlagSet(command, flag.ExitOnError)
		fs.StringVar(&data.input, "in", "-", "input file, - for stdin")
		fs.BoolVar(&data.hexIO, "hex", false, "read and write hex strings instead of binary")
	case commandSend:
		fs = flag.NewFlagSet(commandSend, flag.ExitOnError)
		fs.StringVar(&data.host, "host", "127.0.0.1", "bridge hostname or IP address")
		fs.UintVar(&data.port, "port", uint(cfg.Network.Port), "bridge port")
		fs.StringVar(&data.payload, "payload", "", "frame payload as hex string")
		fs.StringVar(&data.typ, "type", "data", "frame type (data, samples, keepalive)")
		fs.DurationVar(&data.timeout, "timeout", 5*time.Second, "overall timeout")
		fs.IntVar(&data.retries, "retries", 3, "retransmissions before giving up")
		fs.BoolVar(&data.sync, "ack", true, "wait for the acknowledgement")
	case commandHelp:
		printHelp()
		os.Exit(0)
	default:
		fmt.Printf("Unknown command %s\n", os.Args[1])
		printHelp()
		os.Exit(1)
	}
	if err = fs.Parse(os.Args[2:]); err != nil {
		zlog.Fatalf("%v", err)
	}

	commandHandlers[command](data)
}

func handlerInit(_ *commandData) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		zlog.Fatalf("invalid configuration: %v", err)
	}

	cfgHandler.Update(cfg)
	if err := cfgHandler.Save(); err != nil {
		zlog.Fatalf("failed to save configuration: %v", err)
	}

	zlog.Info().Str("path", cfgHandler.GetPath()).Msg("initialization successfully complete")
}

func handlerStuff(data *commandData) {
	in := readInput(data)
	maxFrame := structs.If(len(in) > 0, len(in), 1)

	w, err := bytestuff.NewWriter(outputWriter(data), maxFrame, linkOptions()...)
	if err != nil {
		zlog.Fatalf("failed to create writer: %v", err)
	}
	if _, err := w.WriteFrame(in); err != nil {
		zlog.Fatalf("failed to stuff input: %v", err)
	}
	finishOutput(data)
}

func handlerUnstuff(data *commandData) {
	in := readInput(data)
	maxFrame := structs.If(len(in) > 0, len(in), 1)

	r, err := bytestuff.NewReader(bytes.NewReader(in), maxFrame, linkOptions()...)
	if err != nil {
		zlog.Fatalf("failed to create reader: %v", err)
	}

	out := outputWriter(data)
	for {
		frame, err := r.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, entity.ErrFrameMalformed) || errors.Is(err, entity.ErrOverflow) {
			zlog.Warn().Err(err).Msg("malformed frame skipped")
			continue
		}
		if err != nil {
			zlog.Fatalf("failed to unstuff input: %v", err)
		}
		if _, err := out.Write(frame); err != nil {
			zlog.Fatalf("failed to write output: %v", err)
		}
		finishOutput(data)
	}

	if r.Malformed() > 0 {
		zlog.Warn().Uint64("malformed", r.Malformed()).Msg("input contained malformed frames")
	}
}

func handlerCRC(data *commandData) {
	in := readInput(data)

	crc32, err := crc.Calc32(crc.Seed32, in)
	if err != nil {
		zlog.Fatalf("failed to calculate CRC-32: %v", err)
	}

	fmt.Printf("crc32/mpeg-2\t%08X\n", crc32)
	fmt.Printf("crc16/mcrf4xx\t%04X\n", crc.Checksum16(in))
}

func handlerSend(data *commandData) {
	payload, err := hex.DecodeString(strings.TrimSpace(data.payload))
	if err != nil {
		zlog.Fatalf("payload is not a hex string: %v", err)
	}

	typ, ok := map[string]entity.FrameType{
		entity.FrameTypeData.String():      entity.FrameTypeData,
		entity.FrameTypeSamples.String():   entity.FrameTypeSamples,
		entity.FrameTypeKeepalive.String(): entity.FrameTypeKeepalive,
	}[data.typ]
	if !ok {
		zlog.Fatalf("unknown frame type %s", data.typ)
	}

	framer, maxRawSize := newFramer()

	sctx, scancel := context.WithTimeout(ctx, data.timeout)
	defer scancel()

	cli, err := client.Dial(sctx, zlog, &client.Config{
		Host:          data.host,
		Port:          uint16(data.port),
		Framer:        framer,
		MaxRawSize:    maxRawSize,
		MaxTimeout:    data.timeout,
		BackoffFactor: 2,
		Retries:       data.retries,
	}, nil)
	if err != nil {
		zlog.Fatalf("failed to connect: %v", err)
	}
	defer func() { _ = cli.Close() }()

	f := &entity.Frame{
		Type:             typ,
		Payload:          payload,
		CompressionType:  entity.GetCompressionType(cfg.Codec.Compression),
		CompressionLevel: entity.CompressionLevel(cfg.Codec.CompressionLevel),
		Checksum:         entity.GetChecksumKind(cfg.Codec.Checksum),
	}

	if data.sync && f.IsSendACK() {
		err = cli.SendSync(sctx, f)
	} else {
		err = cli.Send(f)
	}
	if err != nil {
		zlog.Fatalf("failed to send frame: %v", err)
	}

	zlog.Info().
		Uint32("id", f.ID).
		Str("type", f.Type.String()).
		Int("payload", len(payload)).
		Msg("frame sent")
}

func linkOptions() []bytestuff.Option {
	opts := []bytestuff.Option{bytestuff.WithTokens(bytestuff.Tokens{SOF: cfg.Link.SOF, EOF: cfg.Link.EOF, ESC: cfg.Link.ESC})}
	if *cfg.Link.StrictStart {
		opts = append(opts, bytestuff.WithStrictStart())
	}
	return opts
}

func readInput(data *commandData) []byte {
	var (
		in  []byte
		err error
	)
	if data.input == "-" {
		in, err = io.ReadAll(bufio.NewReader(os.Stdin))
	} else {
		in, err = os.ReadFile(data.input)
	}
	if err != nil {
		zlog.Fatalf("failed to read input: %v", err)
	}

	if !data.hexIO {
		return in
	}

	in, err = hex.DecodeString(strings.Join(strings.Fields(string(in)), ""))
	if err != nil {
		zlog.Fatalf("input is not a hex string: %v", err)
	}
	return in
}

func outputWriter(data *commandData) io.Writer {
	if data.hexIO {
		return hex.NewEncoder(os.Stdout)
	}
	return os.Stdout
}

func finishOutput(data *commandData) {
	if data.hexIO {
		fmt.Println()
	}
}

func printHelp() {
	fmt.Printf("Usage: ./bridge command args\n")
	fmt.Printf(" init	- write the default configuration\n")
	fmt.Printf(" stuff	- stuff the input into one frame\n")
	fmt.Printf(" unstuff	- extract the frames of a stuffed input\n")
	fmt.Printf(" crc	- print CRC-32/MPEG-2 and CRC-16 of the input\n")
	fmt.Printf(" send	- encode a frame and send it to a bridge\n")
	fmt.Printf(" help	- show this help\n")
	fmt.Printf("Get help for a specific command: ./bridge command -h\n")
	fmt.Printf("Without a command the bridge is started\n")
}
