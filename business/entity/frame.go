package entity

import (
	"math"
)

const (
	FrameHeaderSize     = 8
	MaxFramePayloadSize = math.MaxUint16
	// FrameOverhead header plus the widest checksum trailer
	FrameOverhead = FrameHeaderSize + 4
)

const (
	FrameTypeData FrameType = iota + 1
	FrameTypeSamples
	FrameTypeKeepalive
)

var frameTypes = map[FrameType]string{
	FrameTypeData:      "data",
	FrameTypeSamples:   "samples",
	FrameTypeKeepalive: "keepalive",
}

// FrameType kind of payload carried by a frame
type FrameType uint8

func (t FrameType) String() string {
	if name, ok := frameTypes[t]; ok {
		return name
	}
	return "unknown"
}

// Valid checks if the given FrameType is a known type
func (t FrameType) Valid() bool {
	_, ok := frameTypes[t]
	return ok
}

const (
	CompressionNone CompressionType = iota
	CompressionLZ4
	CompressionLZO
	CompressionZSTD
)

type CompressionType uint8

func GetCompressionType(name string) CompressionType {
	switch name {
	case CompressionNameLZ4:
		return CompressionLZ4
	case CompressionNameLZO:
		return CompressionLZO
	case CompressionNameZSTD:
		return CompressionZSTD
	default:
		return CompressionNone
	}
}

func (c CompressionType) String() string {
	switch c {
	case CompressionLZ4:
		return CompressionNameLZ4
	case CompressionLZO:
		return CompressionNameLZO
	case CompressionZSTD:
		return CompressionNameZSTD
	default:
		return CompressionNameNone
	}
}

type CompressionLevel uint8

const (
	ChecksumCRC32 ChecksumKind = iota
	ChecksumCRC16
)

// ChecksumKind trailer appended to every encoded frame
type ChecksumKind uint8

func GetChecksumKind(name string) ChecksumKind {
	if name == ChecksumNameCRC16 {
		return ChecksumCRC16
	}
	return ChecksumCRC32
}

// Size trailer width in bytes
func (k ChecksumKind) Size() int {
	if k == ChecksumCRC16 {
		return 2
	}
	return 4
}

func (k ChecksumKind) String() string {
	if k == ChecksumCRC16 {
		return ChecksumNameCRC16
	}
	return ChecksumNameCRC32
}

// Frame decoded link frame
type Frame struct {
	ID               uint32
	Type             FrameType
	IsACK            bool
	CompressionType  CompressionType
	CompressionLevel CompressionLevel
	Checksum         ChecksumKind
	Payload          []byte
}

// IsSendACK reports whether the receiver must acknowledge the frame
func (f *Frame) IsSendACK() bool {
	return f.Type != FrameTypeKeepalive && !f.IsACK
}

// Ack builds the acknowledgement of the frame
func (f *Frame) Ack() *Frame {
	return &Frame{
		ID:       f.ID,
		Type:     f.Type,
		IsACK:    true,
		Checksum: f.Checksum,
	}
}

func (f *Frame) Reset() {
	f.ID = 0
	f.Type = 0
	f.IsACK = false
	f.CompressionType = 0
	f.CompressionLevel = 0
	f.Checksum = 0
	f.Payload = f.Payload[:0]
}
