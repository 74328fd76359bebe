package client

import (
	"context"
	"fmt"

	"github.com/autobrr/go-deluge"
	"github.com/sirupsen/logrus"

	"github.com/autobrr/freeleech/pkg/config"
	"github.com/autobrr/freeleech/pkg/logger"
)

const defaultDelugePort = 58846

type Deluge struct {
	cfg    config.ClientConfig
	client *deluge.ClientV2
	log    *logrus.Entry
}

func NewDeluge(cfg config.ClientConfig) (Interface, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("deluge host must be set")
	}

	port := cfg.Port
	if port == 0 {
		port = defaultDelugePort
	}

	return &Deluge{
		cfg: cfg,
		client: deluge.NewV2(deluge.Settings{
			Hostname: cfg.Host,
			Port:     uint(port),
			Login:    cfg.User,
			Password: cfg.Password,
		}),
		log: logger.GetLogger("deluge"),
	}, nil
}

func (c *Deluge) Type() string {
	return "deluge"
}

func (c *Deluge) Connect(ctx context.Context) error {
	if err := c.client.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	c.log.Debugf("Connected to %s:%d", c.cfg.Host, c.cfg.Port)
	return nil
}

func (c *Deluge) AddTorrentFromURL(ctx context.Context, url string) error {
	paused := c.cfg.Paused
	options := &deluge.Options{
		AddPaused: &paused,
	}

	id, err := c.client.AddTorrentURL(ctx, url, options)
	if err != nil {
		return fmt.Errorf("add torrent: %w", err)
	}

	if c.cfg.Category == "" {
		return nil
	}

	// labels need the label plugin, a missing plugin only loses the label
	plugin, err := c.client.LabelPlugin(ctx)
	if err != nil || plugin == nil {
		c.log.WithError(err).Warnf("Label plugin unavailable, not labelling %s", id)
		return nil
	}
	if err := plugin.SetTorrentLabel(ctx, id, c.cfg.Category); err != nil {
		c.log.WithError(err).Warnf("Failed setting label %q on %s", c.cfg.Category, id)
	}
	return nil
}
