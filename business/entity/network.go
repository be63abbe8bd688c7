package entity

import (
	"sync/atomic"
	"time"
)

const (
	ProtoTCP Protocol = iota + 1
	ProtoSerial
)

type Protocol uint8

func (p Protocol) String() string {
	switch p {
	case ProtoTCP:
		return "tcp"
	case ProtoSerial:
		return "serial"
	default:
		return "unknown"
	}
}

type FrameHandler func(*Frame, *Link) error
type FrameErrorHandler func(error, *Link)
type ConnectHandler func(*Link)
type DisconnectHandler func(*Link, error)

// LinkWriter raw byte sink of a link
type LinkWriter interface {
	Write(data []byte) error
	Close() error
}

// Link one framed byte stream, a TCP connection or a serial port
type Link struct {
	ID        string
	Proto     Protocol
	Addr      string
	CreatedAt int64
	Writer    LinkWriter
	Stat      LinkCounters
}

func NewLink(id string, proto Protocol, addr string, w LinkWriter) *Link {
	return &Link{
		ID:        id,
		Proto:     proto,
		Addr:      addr,
		CreatedAt: time.Now().Unix(),
		Writer:    w,
	}
}

func (l *Link) Close() error {
	if l.Writer == nil {
		return ErrLinkClosed
	}
	return l.Writer.Close()
}

// LinkCounters raw counters updated from the I/O goroutines
type LinkCounters struct {
	IncomingBytes   atomic.Uint64
	OutgoingBytes   atomic.Uint64
	IncomingFrames  atomic.Uint64
	OutgoingFrames  atomic.Uint64
	MalformedFrames atomic.Uint64
	ChecksumErrors  atomic.Uint64
}

// Snapshot copies the counters into a Statistic without rates
func (c *LinkCounters) Snapshot() Statistic {
	return Statistic{
		IncomingBytes:   c.IncomingBytes.Load(),
		OutgoingBytes:   c.OutgoingBytes.Load(),
		IncomingFrames:  c.IncomingFrames.Load(),
		OutgoingFrames:  c.OutgoingFrames.Load(),
		MalformedFrames: c.MalformedFrames.Load(),
		ChecksumErrors:  c.ChecksumErrors.Load(),
	}
}

type Statistic struct {
	IncomingBytes      uint64  `json:"incoming_bytes"`
	OutgoingBytes      uint64  `json:"outgoing_bytes"`
	IncomingFrames     uint64  `json:"incoming_frames"`
	OutgoingFrames     uint64  `json:"outgoing_frames"`
	MalformedFrames    uint64  `json:"malformed_frames"`
	ChecksumErrors     uint64  `json:"checksum_errors"`
	IncomingRateBytes  float64 `json:"incoming_rate_bytes"`
	OutgoingRateBytes  float64 `json:"outgoing_rate_bytes"`
	IncomingRateFrames float64 `json:"incoming_rate_frames"`
	OutgoingRateFrames float64 `json:"outgoing_rate_frames"`
}

// LinkState link description exposed over REST
type LinkState struct {
	ID        string    `json:"id"`
	Proto     string    `json:"proto"`
	Addr      string    `json:"addr"`
	CreatedAt int64     `json:"created_at"`
	Statistic Statistic `json:"statistic"`
}

// Sample filtered value of one sample field
type Sample struct {
	Time     int64 `json:"time"`
	Raw      int64 `json:"raw"`
	Filtered int64 `json:"filtered"`
	Ready    bool  `json:"ready"`
}

// BridgeState snapshot of the whole bridge
type BridgeState struct {
	NodeID    string               `json:"node_id"`
	StartedAt int64                `json:"started_at"`
	Links     []*LinkState         `json:"links"`
	Total     Statistic            `json:"total"`
	Samples   map[string][]*Sample `json:"samples,omitempty"`
}
