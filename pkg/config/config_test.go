package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forest33/edsp/business/entity"
)

const testConfig = `
Link:
  sof: 126
  eof: 127
  esc: 125
Network:
  port: 2000
Samples:
  fields:
    - name: temperature
      kind: i16
  filters:
    - kind: movmean
      window: 4
`

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), entity.DefaultBridgeConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))
	t.Setenv(envPath, path)
	return path
}

func TestParseDefaults(t *testing.T) {
	cfg := &entity.BridgeConfig{}
	require.NoError(t, Parse(cfg))

	assert.Equal(t, uint8(0xA1), cfg.Link.SOF)
	assert.Equal(t, uint8(0xA2), cfg.Link.EOF)
	assert.Equal(t, uint8(0xA3), cfg.Link.ESC)
	assert.Equal(t, 4096, cfg.Link.MaxFrameSize)
	assert.False(t, *cfg.Link.StrictStart)
	assert.Equal(t, uint16(1977), cfg.Network.Port)
	assert.True(t, *cfg.Network.Enabled)
	assert.False(t, *cfg.Serial.Enabled)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, entity.ChecksumNameCRC32, cfg.Codec.Checksum)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, 1000, cfg.Statistic.Interval)

	assert.NoError(t, cfg.Validate())

	n := 0
	assert.Error(t, Parse(&n))
}

func TestParseSliceDefaults(t *testing.T) {
	type target struct {
		Names []string `default:"a, b"`
		Kept  []string `default:"x"`
		Count int      `default:"3"`
		Set   int      `default:"5"`
	}

	tg := &target{Kept: []string{"y"}, Set: 7}
	require.NoError(t, Parse(tg))
	assert.Equal(t, []string{"a", "b"}, tg.Names)
	assert.Equal(t, []string{"y"}, tg.Kept)
	assert.Equal(t, 3, tg.Count)
	assert.Equal(t, 7, tg.Set)

	type bad struct {
		Port uint8 `default:"300"`
	}
	assert.Error(t, Parse(&bad{}))
}

func TestNew(t *testing.T) {
	writeConfig(t, testConfig)

	cfg := &entity.BridgeConfig{}
	c, err := New("unused.yaml", "", cfg)
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.Equal(t, uint8(126), cfg.Link.SOF)
	assert.Equal(t, 4096, cfg.Link.MaxFrameSize)
	assert.Equal(t, uint16(2000), cfg.Network.Port)
	require.Len(t, cfg.Samples.Fields, 1)
	assert.Equal(t, "i16", cfg.Samples.Fields[0].Kind)
	require.Len(t, cfg.Samples.Filters, 1)
	assert.Equal(t, 4, cfg.Samples.Filters[0].Window)
	assert.Zero(t, cfg.Samples.Filters[0].CutoffMilliHz)
	assert.NoError(t, cfg.Validate())
}

func TestNewMissingFile(t *testing.T) {
	t.Setenv(envPath, filepath.Join(t.TempDir(), "absent.yaml"))

	cfg := &entity.BridgeConfig{}
	_, err := New("unused.yaml", "", cfg)
	require.NoError(t, err)
	assert.Equal(t, uint16(1977), cfg.Network.Port)
}

func TestRequiredParameter(t *testing.T) {
	writeConfig(t, "Samples:\n  filters:\n    - window: 3\n")

	_, err := New("unused.yaml", "", &entity.BridgeConfig{})
	assert.Error(t, err)

	writeConfig(t, "Link:\n  sof: [1, 2]\n")
	_, err = New("unused.yaml", "", &entity.BridgeConfig{})
	assert.Error(t, err)
}

func TestSave(t *testing.T) {
	path := writeConfig(t, testConfig)

	cfg := &entity.BridgeConfig{}
	c, err := New("unused.yaml", "", cfg)
	require.NoError(t, err)
	assert.Equal(t, path, c.GetPath())

	cfg.Codec.Checksum = entity.ChecksumNameCRC16
	require.NoError(t, c.Save())

	reloaded := &entity.BridgeConfig{}
	_, err = New("unused.yaml", "", reloaded)
	require.NoError(t, err)
	assert.Equal(t, entity.ChecksumNameCRC16, reloaded.Codec.Checksum)
	assert.Equal(t, uint8(126), reloaded.Link.SOF)
}

func TestObserver(t *testing.T) {
	if testing.Short() {
		t.Skip("polls the file system")
	}

	path := writeConfig(t, testConfig)

	cfg := &entity.BridgeConfig{}
	c, err := New("unused.yaml", "", cfg)
	require.NoError(t, err)
	defer c.Close()

	changed := make(chan string, 1)
	require.NoError(t, c.AddObserver(func(data interface{}) {
		select {
		case changed <- data.(*entity.BridgeConfig).Logger.Level:
		default:
		}
	}))

	time.Sleep(1500 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(testConfig+"Logger:\n  level: debug\n"), 0600))

	select {
	case level := <-changed:
		assert.Equal(t, "debug", level)
	case <-time.After(10 * time.Second):
		t.Fatal("config change was not observed")
	}
}
