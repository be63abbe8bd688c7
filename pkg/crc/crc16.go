package crc

import (
	"github.com/sigurn/crc16"
)

var table16 = crc16.MakeTable(crc16.CRC16_MCRF4XX)

// Checksum16 CRC-16/MCRF4XX of data, used as the short link trailer
func Checksum16(data []byte) uint16 {
	return crc16.Checksum(data, table16)
}

// Update16 continues a CRC-16/MCRF4XX computation.
// Start from Init16 and finish with Complete16.
func Update16(crc uint16, data []byte) uint16 {
	return crc16.Update(crc, data, table16)
}

// Init16 initial value of an incremental CRC-16/MCRF4XX
func Init16() uint16 {
	return crc16.Init(table16)
}

// Complete16 final value of an incremental CRC-16/MCRF4XX
func Complete16(crc uint16) uint16 {
	return crc16.Complete(crc, table16)
}
