package notification

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/autobrr/autobrr/pkg/errors"
	"github.com/lucperkins/rek"
	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"

	"github.com/autobrr/freeleech/pkg/httputils"
)

const (
	authorName = "Freeleech Torrent"
	authorIcon = "https://i.imgur.com/vBKpag5.png"

	handshakeTimeout = 30 * time.Second
)

type DiscordMessage struct {
	Content interface{}    `json:"content"`
	Embeds  []DiscordEmbed `json:"embeds,omitempty"`
}

type DiscordEmbed struct {
	Title       string                 `json:"title,omitempty"`
	Description string                 `json:"description"`
	URL         string                 `json:"url,omitempty"`
	Color       int                    `json:"color"`
	Author      *DiscordEmbedAuthor    `json:"author,omitempty"`
	Thumbnail   *DiscordEmbedThumbnail `json:"thumbnail,omitempty"`
	Fields      []DiscordEmbedsField   `json:"fields,omitempty"`
	Footer      DiscordEmbedsFooter    `json:"footer,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

type DiscordEmbedAuthor struct {
	Name    string `json:"name"`
	IconURL string `json:"icon_url,omitempty"`
}

type DiscordEmbedThumbnail struct {
	URL string `json:"url"`
}

type DiscordEmbedsFooter struct {
	Text string `json:"text"`
}

type DiscordEmbedsField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type EmbedColors int

const GREEN EmbedColors = 0x57f287

type discordSender struct {
	log     *logrus.Entry
	webhook string

	httpClient *http.Client
}

func NewDiscordSender(log *logrus.Entry, webhook string) Sender {
	log = log.WithField("sender", "discord")
	return newDiscordSender(log, webhook,
		httputils.NewRetryableHttpClient(30*time.Second, ratelimit.New(1, ratelimit.WithoutSlack), log))
}

func newDiscordSender(log *logrus.Entry, webhook string, client *http.Client) *discordSender {
	return &discordSender{
		log:        log,
		webhook:    webhook,
		httpClient: client,
	}
}

func (d *discordSender) Name() string {
	return "discord"
}

func (d *discordSender) CanSend() bool {
	return d.webhook != ""
}

// Handshake fetches the webhook object, which Discord only returns for a
// valid id and token pair.
func (d *discordSender) Handshake(ctx context.Context) error {
	res, err := rek.Get(d.webhook, rek.Context(ctx), rek.Timeout(handshakeTimeout))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrHandshake, err)
	}
	defer res.Body().Close()

	if res.StatusCode() != http.StatusOK {
		return fmt.Errorf("%w: unexpected status: %d", ErrHandshake, res.StatusCode())
	}

	var webhook struct {
		ID    string `json:"id"`
		Token string `json:"token"`
	}
	if err := json.NewDecoder(res.Body()).Decode(&webhook); err != nil {
		return fmt.Errorf("%w: decode webhook: %w", ErrHandshake, err)
	}
	if webhook.ID == "" || webhook.Token == "" {
		return fmt.Errorf("%w: webhook response is missing id or token", ErrHandshake)
	}

	d.log.Debugf("Discord webhook %s verified", webhook.ID)
	return nil
}

func (d *discordSender) Send(ctx context.Context, event Event) error {
	msg := DiscordMessage{
		Content: nil,
		Embeds:  []DiscordEmbed{d.buildEmbed(event)},
	}

	jsonData, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "could not marshal json request")
	}

	if err := d.sendRequest(ctx, jsonData); err != nil {
		return errors.Wrap(err, "failed to send message to Discord")
	}
	return nil
}

func (d *discordSender) sendRequest(ctx context.Context, jsonData []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhook, bytes.NewBuffer(jsonData))
	if err != nil {
		return errors.Wrap(err, "could not create request")
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := d.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "client request error")
	}
	defer res.Body.Close()

	d.log.Tracef("Discord response status: %d", res.StatusCode)

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusNoContent {
		body, readErr := io.ReadAll(bufio.NewReader(res.Body))
		if readErr != nil {
			return errors.Wrap(readErr, "could not read body")
		}

		return errors.New("unexpected status: %v body: %v", res.StatusCode, string(body))
	}

	d.log.Debug("Notification successfully sent to discord")
	return nil
}

func (d *discordSender) buildEmbed(event Event) DiscordEmbed {
	item := event.Item

	timestamp := event.Detected
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	embed := DiscordEmbed{
		Description: item.Title,
		URL:         item.Permalink,
		Color:       int(GREEN),
		Author: &DiscordEmbedAuthor{
			Name:    authorName,
			IconURL: authorIcon,
		},
		Fields: []DiscordEmbedsField{
			{Name: "Source", Value: orDash(item.Source), Inline: true},
			{Name: "Codec", Value: orDash(item.Codec), Inline: true},
			{Name: "Resolution", Value: orDash(item.Resolution), Inline: true},
			{Name: "Size", Value: item.SizeString(), Inline: true},
			{Name: "Seeders", Value: countString(item.Seeders), Inline: true},
			{Name: "Leechers", Value: countString(item.Leechers), Inline: true},
			{Name: "Torrent Permalink", Value: fmt.Sprintf("[Click Here](%s)", item.Permalink), Inline: true},
			{Name: "Download URL", Value: fmt.Sprintf("[Click Here](%s)", item.DownloadURL), Inline: true},
		},
		Footer: DiscordEmbedsFooter{
			Text: fmt.Sprintf("Torrent ID: %s", item.ID),
		},
		Timestamp: timestamp,
	}

	if item.Year != "" {
		embed.Description = fmt.Sprintf("%s [%s]", item.Title, item.Year)
	}

	if item.Cover != "" {
		embed.Thumbnail = &DiscordEmbedThumbnail{URL: item.Cover}
	}

	return embed
}

// orDash keeps empty labels from being rejected by the embed validation.
func countString(n int64) string {
	if n < 0 {
		return "-"
	}
	return strconv.FormatInt(n, 10)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
