package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/autobrr/freeleech/pkg/cache"
	"github.com/autobrr/freeleech/pkg/config"
	"github.com/autobrr/freeleech/pkg/logger"
)

var (
	// Global flags
	FlagLogLevel     = 0
	FlagConfigFile   = ""
	FlagConfigFolder = config.GetDefaultConfigDirectory("freeleech", "config.yaml")
	FlagLogFile      = "activity.log"
	FlagDryRun       bool

	// Global vars
	cfg *config.Configuration
	log *logrus.Entry
)

// initCore sets up logging and loads the configuration. Failures exit the
// process before anything is mutated.
func initCore() error {
	logFile := FlagLogFile
	if logFile != "" && !filepath.IsAbs(logFile) {
		logFile = filepath.Join(FlagConfigFolder, logFile)
	}

	if err := logger.Init(logger.Options{
		File:      logFile,
		Verbosity: FlagLogLevel,
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	log = logger.GetLogger("app")

	path := config.Resolve(FlagConfigFolder, FlagConfigFile)
	c, err := config.Load(path)
	if err != nil {
		return err
	}
	cfg = c

	log.Debugf("Loaded config: %s", path)
	if FlagDryRun {
		log.Warn("Dry-run enabled")
	}
	return nil
}

// openStore returns the configured cache store and a close func.
func openStore() (cache.Store, func(), error) {
	switch strings.ToLower(cfg.Cache.Type) {
	case "redis":
		s := cache.NewRedisStore(cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			Key:      cfg.Cache.RedisKey,
		})
		return s, func() {
			if err := s.Close(); err != nil {
				log.WithError(err).Debug("Failed closing redis store")
			}
		}, nil
	case "", "file":
		return cache.NewFileStore(cfg.Cache.Path), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("cache type not supported: %q", cfg.Cache.Type)
	}
}
