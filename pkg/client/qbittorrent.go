package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/autobrr/go-qbittorrent"
	"github.com/sirupsen/logrus"

	"github.com/autobrr/freeleech/pkg/config"
	"github.com/autobrr/freeleech/pkg/logger"
)

type QBittorrent struct {
	cfg    config.ClientConfig
	client *qbittorrent.Client
	log    *logrus.Entry
}

func NewQBittorrent(cfg config.ClientConfig) (Interface, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("qbittorrent host must be set")
	}

	return &QBittorrent{
		cfg: cfg,
		client: qbittorrent.NewClient(qbittorrent.Config{
			Host:          cfg.Host,
			Username:      cfg.User,
			Password:      cfg.Password,
			TLSSkipVerify: cfg.TLSSkipVerify,
		}),
		log: logger.GetLogger("qbittorrent"),
	}, nil
}

func (c *QBittorrent) Type() string {
	return "qbittorrent"
}

func (c *QBittorrent) Connect(ctx context.Context) error {
	if err := c.client.LoginCtx(ctx); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	c.log.Debugf("Logged in to %s", c.cfg.Host)
	return nil
}

func (c *QBittorrent) AddTorrentFromURL(ctx context.Context, url string) error {
	options := map[string]string{}
	if c.cfg.Category != "" {
		options["category"] = c.cfg.Category
	}
	if c.cfg.Paused {
		options["paused"] = strconv.FormatBool(true)
		options["stopped"] = strconv.FormatBool(true)
	}

	if err := c.client.AddTorrentFromUrlCtx(ctx, url, options); err != nil {
		return fmt.Errorf("add torrent: %w", err)
	}
	return nil
}
