// Package server framed links over gnet TCP connections and serial ports
package server

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/forest33/edsp/pkg/codec"
)

type Config struct {
	Host             string
	Port             uint16
	Framer           *codec.Framer
	MaxRawSize       int
	Multicore        bool
	ReadBufferSize   int
	WriteBufferSize  int
	KeepaliveTimeout int
}

func (c *Config) validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required),
		validation.Field(&c.Framer, validation.Required),
		validation.Field(&c.MaxRawSize, validation.Required, validation.Min(1)),
	)
}
