// Package config YAML configuration with struct tag defaults and hot reload
package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/radovskyb/watcher"
	"gopkg.in/yaml.v3"

	"github.com/forest33/edsp/pkg/logger"
	"github.com/forest33/edsp/pkg/structs"
)

const (
	tagDefault = "default"
	envPath    = "EDSP_CONFIG"

	watchInterval = time.Second
)

type Config struct {
	path      string
	data      interface{}
	log       *logger.Logger
	mu        sync.Mutex
	watcher   *watcher.Watcher
	observers []func(interface{})
}

type validatable interface {
	Validate() error
}

// New loads configFileName from configFileDir, the executable directory or
// the path in EDSP_CONFIG. A missing file yields the defaults.
func New(configFileName, configFileDir string, cfg interface{}) (*Config, error) {
	path, err := resolvePath(configFileName, configFileDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal %s", path)
	}

	if err := Parse(cfg); err != nil {
		return nil, err
	}

	return &Config{
		path:      path,
		data:      cfg,
		observers: make([]func(interface{}), 0, 1),
		log:       logger.NewDefault(),
	}, nil
}

func resolvePath(name, dir string) (string, error) {
	if path, ok := os.LookupEnv(envPath); ok {
		return path, nil
	}
	if dir != "" {
		return filepath.Join(dir, name), nil
	}
	ex, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(ex), name), nil
}

// SetLogger replaces the bootstrap logger once the configured one exists
func (c *Config) SetLogger(log *logger.Logger) {
	c.log = log
}

func (c *Config) Update(data interface{}) {
	c.mu.Lock()
	c.data = data
	c.mu.Unlock()
}

// Save writes the current configuration back to its file
func (c *Config) Save() error {
	c.mu.Lock()
	buf, err := yaml.Marshal(c.data)
	c.mu.Unlock()
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := os.WriteFile(c.path, buf, 0664); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}

func (c *Config) GetPath() string {
	return c.path
}

// AddObserver registers f to be called with the reloaded configuration.
// The first observer starts watching the file.
func (c *Config) AddObserver(f func(interface{})) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.observers) == 0 {
		if err := c.startWatcher(); err != nil {
			return err
		}
	}
	c.observers = append(c.observers, f)
	return nil
}

// Close stops watching the file
func (c *Config) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watcher != nil {
		c.watcher.Close()
		c.watcher = nil
	}
}

func (c *Config) startWatcher() error {
	w := watcher.New()
	w.SetMaxEvents(1)
	w.FilterOps(watcher.Write)
	if err := w.Add(c.path); err != nil {
		return errors.Wrapf(err, "failed to watch %s", c.path)
	}
	c.watcher = w

	go func() {
		if err := w.Start(watchInterval); err != nil {
			c.log.Error().Err(err).Msg("failed to start watching config file")
		}
	}()

	go func() {
		for {
			select {
			case <-w.Event:
				c.log.Info().Str("path", c.path).Msg("config file changed")
				if err := c.reload(); err != nil {
					c.log.Error().Err(err).Msg("failed to reload config file")
				}
			case err := <-w.Error:
				c.log.Error().Err(err).Msg("error on watching config file")
			case <-w.Closed:
				return
			}
		}
	}()

	return nil
}

func (c *Config) reload() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if err = yaml.Unmarshal(data, c.data); err == nil {
		err = Parse(c.data)
	}
	if v, ok := c.data.(validatable); ok && err == nil {
		err = v.Validate()
	}
	cfg := c.data
	observers := append([]func(interface{}){}, c.observers...)
	c.mu.Unlock()

	if err != nil {
		return err
	}

	for i := range observers {
		observers[i](cfg)
	}

	return nil
}

// Parse fills zero fields of the struct pointed to by target from their
// default tags. Nested struct pointers are allocated, *bool options are always
// set, and a zero scalar without a default is reported as missing.
func Parse(target interface{}) error {
	v := reflect.Indirect(reflect.ValueOf(target))
	if v.Kind() != reflect.Struct {
		return errors.Errorf("config target must point to a struct, got %s", v.Kind())
	}
	return applyDefaults(v)
}

func applyDefaults(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf, fv := t.Field(i), v.Field(i)
		def, hasDefault := sf.Tag.Lookup(tagDefault)

		switch {
		case sf.Type == boolPtrType:
			if fv.IsNil() {
				fv.Set(reflect.ValueOf(structs.Ref(parseBool(def))))
			}
		case sf.Type.Kind() == reflect.Ptr:
			if fv.IsNil() {
				fv.Set(reflect.New(sf.Type.Elem()))
			}
			if sf.Type.Elem().Kind() == reflect.Struct {
				if err := applyDefaults(fv.Elem()); err != nil {
					return err
				}
			}
		case sf.Type.Kind() == reflect.Slice:
			if err := sliceDefaults(fv, def); err != nil {
				return errors.Wrapf(err, "%s.%s", t.Name(), sf.Name)
			}
		case !fv.IsZero():
		case hasDefault:
			if err := setScalar(fv, def); err != nil {
				return errors.Wrapf(err, "%s.%s", t.Name(), sf.Name)
			}
		case sf.Type.Kind() != reflect.Bool:
			return errors.Errorf("required configuration parameter is not specified - %s.%s", t.Name(), sf.Name)
		}
	}
	return nil
}

var boolPtrType = reflect.TypeOf((*bool)(nil))

// sliceDefaults splits a comma separated default into an empty slice of
// strings, or applies defaults to every struct element already present
func sliceDefaults(fv reflect.Value, def string) error {
	if fv.Len() == 0 {
		if def == "" || fv.Type().Elem().Kind() != reflect.String {
			return nil
		}
		parts := strings.Split(def, ",")
		sl := reflect.MakeSlice(fv.Type(), len(parts), len(parts))
		for i := range parts {
			sl.Index(i).SetString(strings.TrimSpace(parts[i]))
		}
		fv.Set(sl)
		return nil
	}

	for i := 0; i < fv.Len(); i++ {
		el := reflect.Indirect(fv.Index(i))
		if el.Kind() != reflect.Struct {
			continue
		}
		if err := applyDefaults(el); err != nil {
			return err
		}
	}
	return nil
}

func setScalar(fv reflect.Value, value string) error {
	bits := int(fv.Type().Size() * 8)
	switch fv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, bits)
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, bits)
		if err != nil {
			return err
		}
		fv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(value, bits)
		if err != nil {
			return err
		}
		fv.SetFloat(n)
	case reflect.String:
		fv.SetString(value)
	case reflect.Bool:
		fv.SetBool(parseBool(value))
	default:
		return errors.Errorf("unsupported kind %s", fv.Kind())
	}
	return nil
}

func parseBool(s string) bool {
	return strings.EqualFold(s, "true")
}
