// Package usecase provides business logic.
package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/forest33/edsp/business/entity"
	"github.com/forest33/edsp/pkg/logger"
)

type configHandler interface {
	AddObserver(func(interface{})) error
}

// BridgeUseCase relays frames between TCP links and the serial link and
// filters sample frames
type BridgeUseCase struct {
	ctx        context.Context
	log        *logger.Logger
	cfg        *entity.BridgeConfig
	cfgHandler configHandler
	servers    []entity.LinkServer
	links      map[string]*bridgeLink
	closed     entity.Statistic
	linkMux    sync.RWMutex
	samples    *sampleProcessor
	outFrame   entity.Frame
	startedAt  int64
	statReset  chan time.Duration
	wg         sync.WaitGroup
}

type bridgeLink struct {
	link *entity.Link
	srv  entity.LinkServer
	stat entity.Statistic
	prev entity.Statistic
}

// NewBridgeUseCase creates a new BridgeUseCase
func NewBridgeUseCase(ctx context.Context, log *logger.Logger, cfg *entity.BridgeConfig, cfgHandler configHandler, servers ...entity.LinkServer) (*BridgeUseCase, error) {
	if len(servers) == 0 {
		return nil, errors.Wrap(entity.ErrBadParam, "no link servers")
	}

	samples, err := newSampleProcessor(cfg.Samples)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create sample processor")
	}

	return &BridgeUseCase{
		ctx:        ctx,
		log:        log.Layer("ucbridge"),
		cfg:        cfg,
		cfgHandler: cfgHandler,
		servers:    servers,
		links:      make(map[string]*bridgeLink),
		samples:    samples,
		outFrame: entity.Frame{
			CompressionType:  entity.GetCompressionType(cfg.Codec.Compression),
			CompressionLevel: entity.CompressionLevel(cfg.Codec.CompressionLevel),
			Checksum:         entity.GetChecksumKind(cfg.Codec.Checksum),
		},
		statReset: make(chan time.Duration, 1),
	}, nil
}

// Start wires the link servers and runs them until the context is done
func (uc *BridgeUseCase) Start() error {
	if uc.cfgHandler != nil {
		if err := uc.cfgHandler.AddObserver(uc.onConfigChanged); err != nil {
			uc.log.Error().Err(err).Msg("failed to create config file observer")
			return err
		}
	}

	uc.startedAt = time.Now().Unix()
	uc.linkStat()

	for _, srv := range uc.servers {
		srv := srv
		srv.SetConnectHandler(func(link *entity.Link) { uc.connect(link, srv) })
		srv.SetDisconnectHandler(uc.disconnect)
		srv.SetReceiverHandler(uc.receiver)
		srv.SetErrorHandler(uc.frameError)

		uc.wg.Add(1)
		go func() {
			defer uc.wg.Done()
			if err := srv.Run(uc.ctx); err != nil {
				uc.log.Error().Err(err).Msg("link server stopped")
			}
		}()
	}

	uc.log.Info().
		Str("node_id", uc.cfg.Node.ID).
		Int("servers", len(uc.servers)).
		Str("compression", uc.outFrame.CompressionType.String()).
		Str("checksum", uc.outFrame.Checksum.String()).
		Bool("ack", *uc.cfg.Codec.Ack).
		Msg("bridge started")

	return nil
}

// Wait blocks until every link server returned
func (uc *BridgeUseCase) Wait() {
	uc.wg.Wait()
}

func (uc *BridgeUseCase) receiver(f *entity.Frame, link *entity.Link) error {
	if f.IsACK {
		uc.log.Debug().Uint32("id", f.ID).Str("link", link.ID).Msg("acknowledgement received")
		return nil
	}

	bl, ok := uc.getLink(link.ID)
	if !ok {
		return entity.ErrLinkNotExists
	}

	if *uc.cfg.Codec.Ack && f.IsSendACK() {
		if err := bl.srv.Send(f.Ack(), link); err != nil {
			return errors.Wrap(err, "failed to send acknowledgement")
		}
	}

	switch f.Type {
	case entity.FrameTypeKeepalive:
		return nil
	case entity.FrameTypeSamples:
		if uc.samples.enabled() {
			if err := uc.samples.push(f.Payload, time.Now()); err != nil {
				uc.log.Error().Err(err).Str("link", link.ID).Uint32("id", f.ID).Msg("failed to process samples")
			}
		}
	}

	uc.forward(f, link)

	return nil
}

// forward relays frames from the serial link to every TCP link and from TCP links to the serial link
func (uc *BridgeUseCase) forward(f *entity.Frame, from *entity.Link) {
	out := uc.outFrame
	out.ID = f.ID
	out.Type = f.Type
	out.Payload = f.Payload

	for _, bl := range uc.forwardTargets(from) {
		if err := bl.srv.Send(&out, bl.link); err != nil {
			uc.log.Error().Err(err).
				Str("from", from.ID).
				Str("to", bl.link.ID).
				Uint32("id", f.ID).
				Msg("failed to forward frame")
		}
	}
}

func (uc *BridgeUseCase) forwardTargets(from *entity.Link) []*bridgeLink {
	uc.linkMux.RLock()
	defer uc.linkMux.RUnlock()

	targets := make([]*bridgeLink, 0, len(uc.links))
	for id, bl := range uc.links {
		if id == from.ID {
			continue
		}
		if from.Proto == entity.ProtoSerial || bl.link.Proto == entity.ProtoSerial {
			targets = append(targets, bl)
		}
	}

	return targets
}

func (uc *BridgeUseCase) frameError(err error, link *entity.Link) {
	uc.log.Debug().Err(err).Str("link", link.ID).Str("proto", link.Proto.String()).Msg("frame error")
}

func (uc *BridgeUseCase) onConfigChanged(data interface{}) {
	cfg, ok := data.(*entity.BridgeConfig)
	if !ok {
		return
	}

	if err := uc.log.SetLevel(cfg.Logger.Level); err != nil {
		uc.log.Error().Err(err).Str("level", cfg.Logger.Level).Msg("failed to change log level")
	}

	select {
	case uc.statReset <- time.Duration(cfg.Statistic.Interval) * time.Millisecond:
	default:
	}

	uc.log.Info().Msg("configuration reloaded")
}
