package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/freeleech/pkg/logger"
)

const freeleechFixture = `{
	"TotalResults": "3",
	"AuthKey": "auth123",
	"PassKey": "pass456",
	"Movies": [
		{
			"GroupId": "100",
			"Title": "Movie One",
			"Year": "1999",
			"Cover": "https://ptpimg.me/one.jpg",
			"Torrents": [
				{"Id": "1001", "Source": "Blu-ray", "Codec": "x264", "Resolution": "1080p", "Size": "157286400", "Seeders": "10", "Leechers": "2"},
				{"Id": "1002", "Source": "WEB", "Codec": "x265", "Resolution": "2160p", "Size": "9999", "Seeders": "1", "Leechers": "0"}
			]
		},
		{
			"GroupId": 200,
			"Title": "Movie Two",
			"Torrents": [
				{"Id": 2001, "Size": 1024, "Seeders": 3, "Leechers": 4}
			]
		},
		{
			"GroupId": "300",
			"Title": "Empty Group",
			"Torrents": []
		}
	]
}`

func newTestPTP(t *testing.T, cfg PTPConfig, handler http.HandlerFunc) *PTP {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	cfg.BaseURL = server.URL
	return newPTP(cfg, &http.Client{Jar: jar}, logger.GetLogger("test"))
}

func TestPTP_FetchFreeleechBatch(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []string
	)

	ptp := newTestPTP(t, PTPConfig{Username: "user", Password: "pass", Passkey: "key"},
		func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			calls = append(calls, r.URL.Path)
			mu.Unlock()

			switch r.URL.Path {
			case "/ajax.php":
				require.NoError(t, r.ParseForm())
				assert.Equal(t, "login", r.URL.Query().Get("action"))
				assert.Equal(t, "user", r.PostForm.Get("username"))
				assert.Equal(t, "pass", r.PostForm.Get("password"))
				assert.Equal(t, "key", r.PostForm.Get("passkey"))
				http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
				fmt.Fprint(w, `{"Result":"Ok"}`)
			case "/torrents.php":
				cookie, err := r.Cookie("session")
				require.NoError(t, err)
				assert.Equal(t, "abc", cookie.Value)
				assert.Equal(t, "1", r.URL.Query().Get("freetorrent"))
				assert.Equal(t, "noredirect", r.URL.Query().Get("json"))
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, freeleechFixture)
			default:
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
		})

	batch, err := ptp.FetchFreeleechBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"/ajax.php", "/torrents.php"}, calls)
	assert.Equal(t, "auth123", batch.AuthKey)
	assert.Equal(t, "pass456", batch.PassKey)
	require.Len(t, batch.Items, 2)

	first := batch.Items[0]
	assert.Equal(t, "1001", first.ID, "first variant of the group is canonical")
	assert.Equal(t, "100", first.GroupID)
	assert.Equal(t, "Movie One", first.Title)
	assert.Equal(t, int64(10), first.Seeders)
	assert.Equal(t, int64(2), first.Leechers)
	assert.Equal(t, int64(157286400), first.Size)
	assert.Equal(t, "Blu-ray", first.Source)
	assert.True(t, strings.HasSuffix(first.Permalink, "/torrents.php?id=100&torrentid=1001"))
	assert.True(t, strings.HasSuffix(first.DownloadURL,
		"/torrents.php?action=download&id=1001&authkey=auth123&torrent_pass=pass456"))

	second := batch.Items[1]
	assert.Equal(t, "2001", second.ID)
	assert.Equal(t, "200", second.GroupID)
	assert.Equal(t, int64(3), second.Seeders)
	assert.Equal(t, int64(1024), second.Size)
}

func TestPTP_FetchFreeleechBatch_APIKey(t *testing.T) {
	ptp := newTestPTP(t, PTPConfig{APIUser: "apiuser", APIKey: "apikey"},
		func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/torrents.php" {
				t.Errorf("unexpected path: %s", r.URL.Path)
				return
			}
			assert.Equal(t, "apiuser", r.Header.Get("ApiUser"))
			assert.Equal(t, "apikey", r.Header.Get("ApiKey"))
			fmt.Fprint(w, freeleechFixture)
		})

	batch, err := ptp.FetchFreeleechBatch(context.Background())
	require.NoError(t, err)
	assert.Len(t, batch.Items, 2)
}

func TestPTP_Login_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "result",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"Result":"Error","Message":"Invalid credentials"}`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ptp := newTestPTP(t, PTPConfig{Username: "u", Password: "p"}, tt.handler)

			batch, err := ptp.FetchFreeleechBatch(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrAuth)
			assert.Nil(t, batch)
		})
	}
}

func TestPTP_FetchFreeleechBatch_FetchFailure(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusBadGateway, "", ErrFetch},
		{"malformed json", http.StatusOK, "{not json", ErrFetch},
		{"unauthorized", http.StatusForbidden, "", ErrAuth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ptp := newTestPTP(t, PTPConfig{APIUser: "u", APIKey: "k"},
				func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
					fmt.Fprint(w, tt.body)
				})

			_, err := ptp.FetchFreeleechBatch(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPTP_Check(t *testing.T) {
	ptp := &PTP{}

	tests := []struct {
		name     string
		host     string
		expected bool
	}{
		{"exact domain", "passthepopcorn.me", true},
		{"with https", "https://passthepopcorn.me", true},
		{"with path", "https://passthepopcorn.me/torrents.php", true},
		{"subdomain", "tracker.passthepopcorn.me", true},
		{"wrong domain", "example.com", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ptp.Check(tt.host))
		})
	}
}

func TestPTP_ToBatch_NonNumericCounters(t *testing.T) {
	var resp freeleechResponse
	require.NoError(t, json.Unmarshal([]byte(`{
		"Movies": [{"GroupId": "1", "Title": "Odd", "Torrents": [
			{"Id": "11", "Seeders": "n/a", "Leechers": null, "Size": "abc"}
		]}]
	}`), &resp))

	ptp := newPTP(PTPConfig{}, http.DefaultClient, logger.GetLogger("test"))
	batch := ptp.toBatch(&resp)

	require.Len(t, batch.Items, 1)
	item := batch.Items[0]
	assert.Equal(t, Unknown, item.Seeders)
	assert.Equal(t, Unknown, item.Leechers)
	assert.Equal(t, Unknown, item.Size)
	assert.Equal(t, "unknown", item.SizeString())
}

func TestFlexString_Int(t *testing.T) {
	tests := []struct {
		in     flexString
		want   int64
		wantOk bool
	}{
		{"10", 10, true},
		{" 7 ", 7, true},
		{"1.5e3", 1500, true},
		{"", 0, false},
		{"n/a", 0, false},
		{"NaN", 0, false},
	}

	for _, tt := range tests {
		got, ok := tt.in.Int()
		assert.Equal(t, tt.want, got, "input %q", tt.in)
		assert.Equal(t, tt.wantOk, ok, "input %q", tt.in)
	}

	assert.Equal(t, Unknown, flexString("-3").Count())
	assert.Equal(t, int64(0), flexString("0").Count())
}

func TestItem_SizeString(t *testing.T) {
	assert.Equal(t, "0 B", Item{}.SizeString())
	assert.Equal(t, "unknown", Item{Size: Unknown}.SizeString())
	assert.Equal(t, "150 MiB", Item{Size: 150 * 1024 * 1024}.SizeString())
}
