package config

import (
	"github.com/autobrr/freeleech/pkg/filter"
	"github.com/autobrr/freeleech/pkg/tracker"
)

type Configuration struct {
	// tracker credentials
	BaseURL  string `koanf:"base_url"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Passkey  string `koanf:"passkey"`
	APIUser  string `koanf:"api_user"`
	APIKey   string `koanf:"api_key"`

	// filter bounds, -1 disables a bound. Sizes are in MiB and may be
	// fractional.
	MinSeeders  int64   `koanf:"minseeders"`
	MaxSeeders  int64   `koanf:"maxseeders"`
	MinLeechers int64   `koanf:"minleechers"`
	MaxLeechers int64   `koanf:"maxleechers"`
	MinSize     float64 `koanf:"minsize"`
	MaxSize     float64 `koanf:"maxsize"`

	Expressions []string `koanf:"expressions"`

	Discord      string `koanf:"discord"`
	AutoDownload string `koanf:"autodownload"`

	Client  ClientConfig  `koanf:"client"`
	Cache   CacheConfig   `koanf:"cache"`
	Metrics MetricsConfig `koanf:"metrics"`
}

type ClientConfig struct {
	Type          string `koanf:"type"`
	Host          string `koanf:"host"`
	Port          int    `koanf:"port"`
	User          string `koanf:"user"`
	Password      string `koanf:"password"`
	Category      string `koanf:"category"`
	Paused        bool   `koanf:"paused"`
	TLSSkipVerify bool   `koanf:"tls_skip_verify"`
}

func (c ClientConfig) Enabled() bool {
	return c.Type != ""
}

type CacheConfig struct {
	Type          string `koanf:"type"`
	Path          string `koanf:"path"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisKey      string `koanf:"redis_key"`
}

type MetricsConfig struct {
	Pushgateway string `koanf:"pushgateway"`
	Job         string `koanf:"job"`
}

func (c *Configuration) PTP() tracker.PTPConfig {
	return tracker.PTPConfig{
		BaseURL:  c.BaseURL,
		Username: c.Username,
		Password: c.Password,
		Passkey:  c.Passkey,
		APIUser:  c.APIUser,
		APIKey:   c.APIKey,
	}
}

// Filter converts the configured bounds, sizes become bytes.
func (c *Configuration) Filter() filter.Config {
	return filter.Config{
		MinSeeders:  c.MinSeeders,
		MaxSeeders:  c.MaxSeeders,
		MinLeechers: c.MinLeechers,
		MaxLeechers: c.MaxLeechers,
		MinSize:     filter.MiBToBytes(c.MinSize),
		MaxSize:     filter.MiBToBytes(c.MaxSize),
	}
}
