package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/freeleech/pkg/logger"
	"github.com/autobrr/freeleech/pkg/tracker"
)

func testItem() tracker.Item {
	return tracker.Item{
		ID:          "1001",
		GroupID:     "100",
		Title:       "Movie One",
		Year:        "1999",
		Cover:       "https://ptpimg.me/one.jpg",
		Source:      "Blu-ray",
		Codec:       "x264",
		Resolution:  "1080p",
		Size:        150 * 1024 * 1024,
		Seeders:     10,
		Leechers:    2,
		Permalink:   "https://passthepopcorn.me/torrents.php?id=100&torrentid=1001",
		DownloadURL: "https://passthepopcorn.me/torrents.php?action=download&id=1001",
	}
}

func TestDiscordSender_Handshake(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{"valid", http.StatusOK, `{"id": "123", "token": "abc", "name": "hook"}`, false},
		{"unknown webhook", http.StatusNotFound, `{"message": "Unknown Webhook", "code": 10015}`, true},
		{"missing token", http.StatusOK, `{"id": "123"}`, true},
		{"not json", http.StatusOK, `nope`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			d := newDiscordSender(logger.GetLogger("test"), server.URL+"/api/webhooks/123/abc", server.Client())
			err := d.Handshake(context.Background())
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrHandshake)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDiscordSender_Handshake_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	d := newDiscordSender(logger.GetLogger("test"), url, http.DefaultClient)
	assert.ErrorIs(t, d.Handshake(context.Background()), ErrHandshake)
}

func TestDiscordSender_Handshake_Cancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	d := newDiscordSender(logger.GetLogger("test"), server.URL, server.Client())

	start := time.Now()
	err := d.Handshake(ctx)
	assert.ErrorIs(t, err, ErrHandshake)
	assert.Less(t, time.Since(start), 5*time.Second, "cancellation reaches the request")
}

func TestDiscordSender_Send(t *testing.T) {
	var received DiscordMessage

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	d := newDiscordSender(logger.GetLogger("test"), server.URL, server.Client())
	require.True(t, d.CanSend())

	detected := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, d.Send(context.Background(), Event{Item: testItem(), Detected: detected}))

	require.Len(t, received.Embeds, 1)
	embed := received.Embeds[0]
	assert.Equal(t, "Movie One [1999]", embed.Description)
	assert.Equal(t, int(GREEN), embed.Color)
	require.NotNil(t, embed.Author)
	assert.Equal(t, "Freeleech Torrent", embed.Author.Name)
	require.NotNil(t, embed.Thumbnail)
	assert.Equal(t, "https://ptpimg.me/one.jpg", embed.Thumbnail.URL)
	assert.True(t, embed.Timestamp.Equal(detected))

	fields := map[string]string{}
	for _, f := range embed.Fields {
		fields[f.Name] = f.Value
	}
	assert.Equal(t, "Blu-ray", fields["Source"])
	assert.Equal(t, "150 MiB", fields["Size"])
	assert.Equal(t, "10", fields["Seeders"])
	assert.Equal(t, "2", fields["Leechers"])
	assert.Equal(t, "[Click Here](https://passthepopcorn.me/torrents.php?id=100&torrentid=1001)", fields["Torrent Permalink"])
}

func TestDiscordSender_SendFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"message": "Invalid Form Body"}`)
	}))
	defer server.Close()

	d := newDiscordSender(logger.GetLogger("test"), server.URL, server.Client())
	err := d.Send(context.Background(), Event{Item: testItem()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid Form Body")
}

func TestDiscordSender_CanSend(t *testing.T) {
	assert.False(t, newDiscordSender(logger.GetLogger("test"), "", http.DefaultClient).CanSend())
}

func TestDiscordSender_EmptyLabels(t *testing.T) {
	d := newDiscordSender(logger.GetLogger("test"), "x", http.DefaultClient)
	embed := d.buildEmbed(Event{Item: tracker.Item{ID: "1", Title: "Bare"}})

	assert.Equal(t, "Bare", embed.Description)
	assert.Nil(t, embed.Thumbnail)
	assert.Equal(t, "-", embed.Fields[0].Value)
	assert.Equal(t, "0 B", embed.Fields[3].Value)
}

func TestDiscordSender_UnknownCounters(t *testing.T) {
	d := newDiscordSender(logger.GetLogger("test"), "x", http.DefaultClient)
	item := tracker.Item{ID: "1", Title: "Odd", Seeders: tracker.Unknown, Leechers: 3, Size: tracker.Unknown}
	embed := d.buildEmbed(Event{Item: item})

	fields := map[string]string{}
	for _, f := range embed.Fields {
		fields[f.Name] = f.Value
	}
	assert.Equal(t, "-", fields["Seeders"])
	assert.Equal(t, "3", fields["Leechers"])
	assert.Equal(t, "unknown", fields["Size"])
}
