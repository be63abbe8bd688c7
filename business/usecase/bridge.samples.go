package usecase

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/forest33/edsp/business/entity"
	"github.com/forest33/edsp/pkg/datapack"
	"github.com/forest33/edsp/pkg/filter"
	"github.com/forest33/edsp/pkg/structs"
)

// sampleProcessor decodes sample records and runs one filter chain per field
type sampleProcessor struct {
	mu       sync.Mutex
	schema   datapack.Schema
	endian   datapack.Endian
	channels map[string]*sampleChannel
	size     int
}

type sampleChannel struct {
	chain   filter.Chain
	history []*entity.Sample
	next    int
}

func newSampleProcessor(cfg *entity.SamplesConfig) (*sampleProcessor, error) {
	p := &sampleProcessor{}
	if cfg == nil || len(cfg.Fields) == 0 {
		return p, nil
	}

	p.schema = structs.Map(cfg.Fields, func(f *entity.SampleField) datapack.Field {
		return datapack.Field{Name: f.Name, Kind: datapack.FieldKind(f.Kind)}
	})
	if err := p.schema.Validate(); err != nil {
		return nil, err
	}

	p.endian = datapack.ParseEndian(cfg.Endian)
	p.size = cfg.HistorySize
	p.channels = make(map[string]*sampleChannel, len(p.schema))

	for _, f := range p.schema {
		chain, err := newFilterChain(cfg)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", f.Name)
		}
		p.channels[f.Name] = &sampleChannel{chain: chain}
	}

	return p, nil
}

func newFilterChain(cfg *entity.SamplesConfig) (filter.Chain, error) {
	chain := make(filter.Chain, 0, len(cfg.Filters))
	for _, fc := range cfg.Filters {
		f, err := filter.New(filter.Config{
			Kind:          fc.Kind,
			Window:        fc.Window,
			CutoffMilliHz: fc.CutoffMilliHz,
			SampleMillis:  structs.If(fc.SampleMillis != 0, fc.SampleMillis, cfg.SampleMillis),
		})
		if err != nil {
			return nil, errors.Wrapf(err, "filter %q", fc.Kind)
		}
		chain = append(chain, f)
	}
	return chain, nil
}

func (p *sampleProcessor) enabled() bool {
	return len(p.schema) != 0
}

// push processes every record of payload, a payload holds one or more whole records
func (p *sampleProcessor) push(payload []byte, now time.Time) error {
	recSize := p.schema.Size()
	if len(payload) == 0 || len(payload)%recSize != 0 {
		return errors.Wrapf(entity.ErrWrongFrameLength, "%d bytes, record size %d", len(payload), recSize)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for off := 0; off < len(payload); off += recSize {
		values, err := p.schema.Unpack(payload[off:off+recSize], p.endian)
		if err != nil {
			return err
		}
		for name, v := range values {
			if err := p.channels[name].push(v, now.UnixMilli(), p.size); err != nil {
				return errors.Wrapf(err, "field %s", name)
			}
		}
	}

	return nil
}

func (c *sampleChannel) push(v, ts int64, size int) error {
	s := &entity.Sample{Time: ts, Raw: v}

	out, err := c.chain.Push(v)
	switch {
	case err == nil:
		s.Filtered = out
		s.Ready = true
	case errors.Is(err, entity.ErrNeedMoreValues):
	default:
		c.chain.Reset()
		return err
	}

	if size <= 0 {
		return nil
	}
	if len(c.history) < size {
		c.history = append(c.history, s)
		return nil
	}
	c.history[c.next] = s
	c.next = (c.next + 1) % size

	return nil
}

// history copies of the retained samples per field, oldest first
func (p *sampleProcessor) history() map[string][]*entity.Sample {
	if !p.enabled() {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string][]*entity.Sample, len(p.channels))
	for name, c := range p.channels {
		h := make([]*entity.Sample, 0, len(c.history))
		h = append(h, c.history[c.next:]...)
		h = append(h, c.history[:c.next]...)
		out[name] = structs.Map(h, func(s *entity.Sample) *entity.Sample {
			cp := *s
			return &cp
		})
	}

	return out
}
