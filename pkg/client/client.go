package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/autobrr/freeleech/pkg/config"
)

// Interface adds freeleech torrents to a torrent client by URL.
type Interface interface {
	Type() string
	Connect(ctx context.Context) error
	AddTorrentFromURL(ctx context.Context, url string) error
}

func NewClient(cfg config.ClientConfig) (Interface, error) {
	switch strings.ToLower(cfg.Type) {
	case "qbittorrent", "qbit":
		return NewQBittorrent(cfg)
	case "deluge":
		return NewDeluge(cfg)
	default:
		return nil, fmt.Errorf("client type not supported: %q", cfg.Type)
	}
}
