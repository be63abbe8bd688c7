// Package entity provides entities for business logic.
package entity

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"

	"github.com/forest33/edsp/pkg/structs"
)

const (
	CompressionNameNone = "none"
	CompressionNameLZ4  = "lz4"
	CompressionNameLZO  = "lzo"
	CompressionNameZSTD = "zstd"

	ChecksumNameCRC32 = "crc32"
	ChecksumNameCRC16 = "crc16"

	EndianNameLittle = "little"
	EndianNameBig    = "big"

	DefaultBridgeConfigFileName = "edsp-bridge.yaml"
)

// BridgeConfig bridge configuration
type BridgeConfig struct {
	Node      *NodeConfig      `yaml:"Node"`
	Logger    *LoggerConfig    `yaml:"Logger"`
	Runtime   *RuntimeConfig   `yaml:"Runtime"`
	Link      *LinkConfig      `yaml:"Link"`
	Network   *NetworkConfig   `yaml:"Network"`
	Serial    *SerialConfig    `yaml:"Serial"`
	Codec     *CodecConfig     `yaml:"Codec"`
	Samples   *SamplesConfig   `yaml:"Samples"`
	Profiler  *ProfilerConfig  `yaml:"Profiler"`
	Rest      *RestConfig      `yaml:"Rest"`
	Statistic *StatisticConfig `yaml:"Statistic"`
}

// NodeConfig identity of this bridge
type NodeConfig struct {
	ID string `yaml:"id,omitempty" default:""`
}

// LoggerConfig logger settings
type LoggerConfig struct {
	Level             string `yaml:"level" default:"info"`
	TimeFieldFormat   string `yaml:"timeFieldFormat" default:"2006-01-02T15:04:05.000000"`
	PrettyPrint       *bool  `yaml:"prettyPrint" default:"false"`
	DisableSampling   *bool  `yaml:"disableSampling" default:"true"`
	RedirectStdLogger *bool  `yaml:"redirectStdLogger" default:"true"`
	ErrorStack        *bool  `yaml:"errorStack" default:"true"`
	ShowCaller        *bool  `yaml:"showCaller" default:"false"`
	FileName          string `yaml:"fileName,omitempty" default:""`
}

// RuntimeConfig runtime settings
type RuntimeConfig struct {
	GoMaxProcs int `yaml:"goMaxProcs" default:"0"`
}

// LinkConfig framing settings shared by all links
type LinkConfig struct {
	SOF          uint8 `yaml:"sof" default:"161"`
	EOF          uint8 `yaml:"eof" default:"162"`
	ESC          uint8 `yaml:"esc" default:"163"`
	MaxFrameSize int   `yaml:"maxFrameSize" default:"4096"`
	StrictStart  *bool `yaml:"strictStart" default:"false"`
}

// NetworkConfig TCP listener configuration
type NetworkConfig struct {
	Enabled          *bool  `yaml:"enabled" default:"true"`
	Host             string `yaml:"host,omitempty" default:""`
	Port             uint16 `yaml:"port" default:"1977"`
	Multicore        *bool  `yaml:"multicore" default:"true"`
	ReadBufferSize   int    `yaml:"readBufferSize" default:"131071"`
	WriteBufferSize  int    `yaml:"writeBufferSize" default:"131071"`
	KeepaliveTimeout int    `yaml:"keepaliveTimeout" default:"60"`
}

// SerialConfig UART link configuration
type SerialConfig struct {
	Enabled     *bool  `yaml:"enabled" default:"false"`
	Port        string `yaml:"port,omitempty" default:""`
	BaudRate    int    `yaml:"baudRate" default:"115200"`
	DataBits    int    `yaml:"dataBits" default:"8"`
	Parity      string `yaml:"parity" default:"none"`
	StopBits    string `yaml:"stopBits" default:"1"`
	ReadTimeout int    `yaml:"readTimeout" default:"100"`
}

// CodecConfig frame codec configuration
type CodecConfig struct {
	Compression      string `yaml:"compression" default:"none"`
	CompressionLevel int    `yaml:"compressionLevel,omitempty" default:"0"`
	Checksum         string `yaml:"checksum" default:"crc32"`
	Ack              *bool  `yaml:"ack" default:"true"`
}

// SamplesConfig layout of sample frames and the filters applied to them
type SamplesConfig struct {
	Endian       string          `yaml:"endian" default:"little"`
	SampleMillis uint32          `yaml:"sampleMillis" default:"10"`
	Fields       []*SampleField  `yaml:"fields"`
	Filters      []*FilterConfig `yaml:"filters"`
	HistorySize  int             `yaml:"historySize" default:"256"`
}

// SampleField named integer field of a sample record
type SampleField struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
}

// FilterConfig one stage of a filter pipeline
type FilterConfig struct {
	Kind          string `yaml:"kind"`
	Window        int    `yaml:"window,omitempty" default:"0"`
	CutoffMilliHz uint32 `yaml:"cutoffMilliHz,omitempty" default:"0"`
	SampleMillis  uint32 `yaml:"sampleMillis,omitempty" default:"0"`
}

// ProfilerConfig pprof configuration
type ProfilerConfig struct {
	Enabled *bool  `yaml:"enabled" default:"false"`
	Host    string `yaml:"host" default:"localhost"`
	Port    int    `yaml:"port" default:"8888"`
}

type StatisticConfig struct {
	Interval int `yaml:"interval" default:"1000"`
}

// RestConfig REST server configuration
type RestConfig struct {
	Enabled *bool  `yaml:"enabled" default:"false"`
	Host    string `yaml:"host" default:""`
	Port    int    `yaml:"port" default:"8877"`
}

func (c *BridgeConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Link, validation.Required),
		validation.Field(&c.Network, validation.Required),
		validation.Field(&c.Serial, validation.Required),
		validation.Field(&c.Codec, validation.Required),
		validation.Field(&c.Samples),
		validation.Field(&c.Rest),
		validation.Field(&c.Statistic),
	); err != nil {
		return errors.Join(ErrValidation, err)
	}
	if !*c.Network.Enabled && !*c.Serial.Enabled {
		return errors.Join(ErrValidation, errors.New("neither network nor serial link is enabled"))
	}
	return nil
}

// Normalize fills generated values
func (c *BridgeConfig) Normalize() {
	c.Node.ID = structs.If(c.Node.ID == "", uuid.New().String(), c.Node.ID)
}

func (c *LinkConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxFrameSize, validation.Required, validation.Min(FrameOverhead+1), validation.Max(MaxFramePayloadSize+FrameOverhead)),
		validation.Field(&c.EOF, validation.NotIn(c.SOF)),
		validation.Field(&c.ESC, validation.NotIn(c.SOF, c.EOF)),
	)
}

func (c *NetworkConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Host, is.Host),
		validation.Field(&c.Port, validation.Required),
	)
}

func (c *SerialConfig) Validate() error {
	enabled := c.Enabled != nil && *c.Enabled
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.When(enabled, validation.Required)),
		validation.Field(&c.BaudRate, validation.Required, validation.Min(50)),
		validation.Field(&c.DataBits, validation.In(5, 6, 7, 8)),
		validation.Field(&c.Parity, validation.In("none", "odd", "even", "mark", "space")),
		validation.Field(&c.StopBits, validation.In("1", "1.5", "2")),
		validation.Field(&c.ReadTimeout, validation.Min(0)),
	)
}

func (c *CodecConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Compression, validation.In(CompressionNameNone, CompressionNameLZ4, CompressionNameLZO, CompressionNameZSTD)),
		validation.Field(&c.CompressionLevel, validation.Min(0), validation.Max(4)),
		validation.Field(&c.Checksum, validation.In(ChecksumNameCRC32, ChecksumNameCRC16)),
	)
}

func (c *SamplesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Endian, validation.In(EndianNameLittle, EndianNameBig)),
		validation.Field(&c.SampleMillis, validation.Required),
		validation.Field(&c.Fields),
		validation.Field(&c.Filters),
		validation.Field(&c.HistorySize, validation.Min(0)),
	)
}

func (c *SampleField) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.Kind, validation.Required, validation.In("u8", "u16", "u32", "u64", "i8", "i16", "i32", "i64")),
	)
}

func (c *FilterConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Kind, validation.Required),
		validation.Field(&c.Window, validation.Min(0)),
	)
}

func (c *RestConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Min(1), validation.Max(65535)),
	)
}

func (c *StatisticConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Interval, validation.Required, validation.Min(10)),
	)
}
