package usecase

import (
	"sort"
	"time"

	"github.com/forest33/edsp/business/entity"
	"github.com/forest33/edsp/pkg/structs"
)

func (uc *BridgeUseCase) connect(link *entity.Link, srv entity.LinkServer) {
	uc.linkMux.Lock()
	uc.links[link.ID] = &bridgeLink{
		link: link,
		srv:  srv,
	}
	uc.linkMux.Unlock()

	uc.log.Info().
		Str("link", link.ID).
		Str("proto", link.Proto.String()).
		Str("addr", link.Addr).
		Msg("link registered")
}

func (uc *BridgeUseCase) disconnect(link *entity.Link, err error) {
	uc.linkMux.Lock()
	if _, ok := uc.links[link.ID]; ok {
		addCounters(&uc.closed, link.Stat.Snapshot())
		delete(uc.links, link.ID)
	}
	uc.linkMux.Unlock()

	ev := uc.log.Info()
	if err != nil {
		ev = uc.log.Warn().Err(err)
	}
	ev.Str("link", link.ID).Str("proto", link.Proto.String()).Msg("link removed")
}

func (uc *BridgeUseCase) getLink(id string) (*bridgeLink, bool) {
	uc.linkMux.RLock()
	defer uc.linkMux.RUnlock()
	bl, ok := uc.links[id]
	return bl, ok
}

// GetState snapshot of links, totals and recent samples
func (uc *BridgeUseCase) GetState() *entity.BridgeState {
	uc.linkMux.RLock()
	links := make([]*entity.LinkState, 0, len(uc.links))
	total := uc.closed
	for _, bl := range uc.links {
		ls := bl.state()
		addCounters(&total, bl.link.Stat.Snapshot())
		addRates(&total, &ls.Statistic)
		links = append(links, ls)
	}
	uc.linkMux.RUnlock()

	sort.Slice(links, func(i, j int) bool {
		if links[i].CreatedAt != links[j].CreatedAt {
			return links[i].CreatedAt < links[j].CreatedAt
		}
		return links[i].ID < links[j].ID
	})

	return &entity.BridgeState{
		NodeID:    uc.cfg.Node.ID,
		StartedAt: uc.startedAt,
		Links:     links,
		Total:     total,
		Samples:   uc.samples.history(),
	}
}

func (uc *BridgeUseCase) GetLink(id string) (*entity.LinkState, error) {
	uc.linkMux.RLock()
	defer uc.linkMux.RUnlock()

	bl, ok := uc.links[id]
	if !ok {
		return nil, entity.ErrLinkNotExists
	}

	return bl.state(), nil
}

// state must be called with linkMux held
func (bl *bridgeLink) state() *entity.LinkState {
	stat := bl.link.Stat.Snapshot()
	addRates(&stat, &bl.stat)

	return &entity.LinkState{
		ID:        bl.link.ID,
		Proto:     bl.link.Proto.String(),
		Addr:      bl.link.Addr,
		CreatedAt: bl.link.CreatedAt,
		Statistic: stat,
	}
}

func (uc *BridgeUseCase) linkStat() {
	interval := time.Duration(structs.If(uc.cfg.Statistic.Interval > 0, uc.cfg.Statistic.Interval, 1000)) * time.Millisecond
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case d := <-uc.statReset:
				if d <= 0 || d == interval {
					continue
				}
				interval = d
				ticker.Reset(interval)
				uc.log.Info().Dur("interval", interval).Msg("statistic interval changed")
			case <-ticker.C:
				uc.updateRates(interval.Seconds())
			case <-uc.ctx.Done():
				return
			}
		}
	}()
}

func (uc *BridgeUseCase) updateRates(seconds float64) {
	uc.linkMux.Lock()
	defer uc.linkMux.Unlock()

	for _, bl := range uc.links {
		cur := bl.link.Stat.Snapshot()
		bl.stat.IncomingRateBytes = float64(cur.IncomingBytes-bl.prev.IncomingBytes) / seconds
		bl.stat.OutgoingRateBytes = float64(cur.OutgoingBytes-bl.prev.OutgoingBytes) / seconds
		bl.stat.IncomingRateFrames = float64(cur.IncomingFrames-bl.prev.IncomingFrames) / seconds
		bl.stat.OutgoingRateFrames = float64(cur.OutgoingFrames-bl.prev.OutgoingFrames) / seconds
		bl.prev = cur
	}
}

func addCounters(dst *entity.Statistic, s entity.Statistic) {
	dst.IncomingBytes += s.IncomingBytes
	dst.OutgoingBytes += s.OutgoingBytes
	dst.IncomingFrames += s.IncomingFrames
	dst.OutgoingFrames += s.OutgoingFrames
	dst.MalformedFrames += s.MalformedFrames
	dst.ChecksumErrors += s.ChecksumErrors
}

func addRates(dst, s *entity.Statistic) {
	dst.IncomingRateBytes += s.IncomingRateBytes
	dst.OutgoingRateBytes += s.OutgoingRateBytes
	dst.IncomingRateFrames += s.IncomingRateFrames
	dst.OutgoingRateFrames += s.OutgoingRateFrames
}
