// Package codec frame layout carried inside stuffed link frames.
//
//	type u8 | flags u8 | id u32 | length u16 | payload | checksum
//
// Header fields are big endian. The checksum covers header and payload and is
// either CRC-32/MPEG-2 (4 bytes) or CRC-16/MCRF4XX (2 bytes).
package codec

import (
	"github.com/forest33/edsp/business/entity"
)

type Decoder interface {
	Unmarshal(data []byte, f *entity.Frame) error
}

type Encoder interface {
	Marshal(f *entity.Frame) ([]byte, error)
}

type Codec interface {
	Decoder
	Encoder
}

type Config struct {
	MaxPayloadSize int
}
