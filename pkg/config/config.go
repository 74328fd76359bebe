package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"

	"github.com/autobrr/freeleech/pkg/expression"
	"github.com/autobrr/freeleech/pkg/filter"
)

const (
	EnvPrefix     = "FREELEECH_"
	CacheFileName = "cache.json"
)

var (
	ErrConfigMissing   = errors.New("config file not found")
	ErrConfigMalformed = errors.New("config is malformed")
)

// candidate names tried when no explicit config file is given
var configFileNames = []string{"config.yaml", "config.yml", "config.json"}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"minseeders":  filter.Unbounded,
		"maxseeders":  filter.Unbounded,
		"minleechers": filter.Unbounded,
		"maxleechers": filter.Unbounded,
		"minsize":     filter.Unbounded,
		"maxsize":     filter.Unbounded,
		"cache.type":  "file",
		"metrics.job": "freeleech",
	}
}

// Resolve returns the config file to load. An empty name picks the first
// existing candidate in dir.
func Resolve(dir, name string) string {
	if name != "" {
		if filepath.IsAbs(name) {
			return name
		}
		return filepath.Join(dir, name)
	}

	for _, n := range configFileNames {
		p := filepath.Join(dir, n)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Join(dir, configFileNames[0])
}

// Load reads path, overlays FREELEECH_ environment variables and validates
// the result. Non numeric bounds are rejected rather than treated as
// unbounded.
func Load(path string) (*Configuration, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigMissing, path)
		}
		return nil, fmt.Errorf("stat config: %w", err)
	}

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	parser := koanf.Parser(yaml.Parser())
	if strings.EqualFold(filepath.Ext(path), ".json") {
		parser = json.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigMalformed, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if err := checkWholeCounts(k); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigMalformed, err)
	}

	var cfg Configuration
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigMalformed, err)
	}

	if strings.EqualFold(cfg.Cache.Type, "file") && cfg.Cache.Path == "" {
		cfg.Cache.Path = filepath.Join(filepath.Dir(path), CacheFileName)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigMalformed, err)
	}

	return &cfg, nil
}

// countKeys holds the bounds that must be whole numbers. The decoder would
// truncate 5.5 to 5 silently.
var countKeys = []string{"minseeders", "maxseeders", "minleechers", "maxleechers"}

func checkWholeCounts(k *koanf.Koanf) error {
	for _, key := range countKeys {
		var v float64
		switch raw := k.Get(key).(type) {
		case float64:
			v = raw
		case float32:
			v = float64(raw)
		default:
			// ints are fine, strings are parsed strictly by the decoder
			continue
		}
		if v != math.Trunc(v) {
			return fmt.Errorf("%s must be a whole number, got %v", key, v)
		}
	}
	return nil
}

// envKey maps FREELEECH_CLIENT__HOST to client.host.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func (c *Configuration) Validate() error {
	if c.APIUser == "" || c.APIKey == "" {
		if c.Username == "" || c.Password == "" {
			return errors.New("username and password (or api_user and api_key) must be set")
		}
	}

	bounds := []struct {
		name  string
		value float64
	}{
		{"minseeders", float64(c.MinSeeders)},
		{"maxseeders", float64(c.MaxSeeders)},
		{"minleechers", float64(c.MinLeechers)},
		{"maxleechers", float64(c.MaxLeechers)},
		{"minsize", c.MinSize},
		{"maxsize", c.MaxSize},
	}
	for _, b := range bounds {
		if b.value != float64(filter.Unbounded) && !(b.value >= 0) {
			return fmt.Errorf("%s must be -1 or a non-negative number, got %v", b.name, b.value)
		}
	}

	if _, err := c.Rules(); err != nil {
		return err
	}

	switch strings.ToLower(c.Client.Type) {
	case "", "qbittorrent", "qbit", "deluge":
	default:
		return fmt.Errorf("client.type %q is not supported", c.Client.Type)
	}
	if c.Client.Enabled() && c.Client.Host == "" {
		return errors.New("client.host must be set")
	}

	switch strings.ToLower(c.Cache.Type) {
	case "", "file":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return errors.New("cache.redis_addr must be set for the redis cache")
		}
	default:
		return fmt.Errorf("cache.type %q is not supported", c.Cache.Type)
	}

	return nil
}

// Rules compiles the configured expressions.
func (c *Configuration) Rules() ([]expression.CompiledExpression, error) {
	return expression.Compile(c.Expressions)
}

// GetDefaultConfigDirectory prefers a config file next to the executable and
// falls back to the user config directory.
func GetDefaultConfigDirectory(app string, filename string) string {
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		if _, err := os.Stat(filepath.Join(dir, filename)); err == nil {
			return dir
		}
	}

	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, app)
	}

	return "."
}
