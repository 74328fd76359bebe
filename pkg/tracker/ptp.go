package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/autobrr/autobrr/pkg/errors"
	domainutil "github.com/bobesa/go-domain-util/domainutil"
	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"

	"github.com/autobrr/freeleech/pkg/httputils"
	"github.com/autobrr/freeleech/pkg/logger"
)

const DefaultBaseURL = "https://passthepopcorn.me"

var (
	ErrAuth  = errors.New("ptp authentication failed")
	ErrFetch = errors.New("ptp freeleech request failed")
)

type PTPConfig struct {
	BaseURL  string `koanf:"base_url"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Passkey  string `koanf:"passkey"`
	APIUser  string `koanf:"api_user"`
	APIKey   string `koanf:"api_key"`
}

// UsesAPIKey reports whether requests authenticate with API headers instead
// of the cookie login.
func (c PTPConfig) UsesAPIKey() bool {
	return c.APIUser != "" && c.APIKey != ""
}

type PTP struct {
	cfg     PTPConfig
	baseURL string
	http    *http.Client
	headers map[string]string
	log     *logrus.Entry

	loggedIn bool
}

func NewPTP(c PTPConfig) *PTP {
	l := logger.GetLogger("ptp-api")

	client := httputils.NewRetryableHttpClient(30*time.Second, ratelimit.New(1, ratelimit.WithoutSlack), l)
	client.Jar, _ = cookiejar.New(nil)

	return newPTP(c, client, l)
}

func newPTP(c PTPConfig, client *http.Client, l *logrus.Entry) *PTP {
	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}

	headers := map[string]string{
		"Accept": "application/json",
	}
	if c.UsesAPIKey() {
		headers["ApiUser"] = c.APIUser
		headers["ApiKey"] = c.APIKey
	}

	return &PTP{
		cfg:     c,
		baseURL: base,
		http:    client,
		headers: headers,
		log:     l,
	}
}

func (c *PTP) Name() string {
	return "PTP"
}

// Check reports whether host belongs to the tracker.
func (c *PTP) Check(host string) bool {
	if host == "" {
		return false
	}
	if u, err := url.Parse(host); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	return strings.EqualFold(domainutil.Domain(host), "passthepopcorn.me")
}

// HTTPClient returns the authenticated client so downloads share the session.
func (c *PTP) HTTPClient() *http.Client {
	return c.http
}

// Login establishes the cookie session. It is a no-op with API credentials.
func (c *PTP) Login(ctx context.Context) error {
	if c.cfg.UsesAPIKey() || c.loggedIn {
		return nil
	}

	form := url.Values{
		"username":   []string{c.cfg.Username},
		"password":   []string{c.cfg.Password},
		"passkey":    []string{c.cfg.Passkey},
		"keeplogged": []string{"0"},
		"login":      []string{"Login!"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ajax.php?action=login",
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: create request: %w", ErrAuth, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuth, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrAuth, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: unexpected status code: %d", ErrAuth, resp.StatusCode)
	}

	// non json bodies are accepted, the freeleech request will fail if the
	// session is not valid
	var result struct {
		Result  string `json:"Result"`
		Message string `json:"Message"`
	}
	if err := json.Unmarshal(body, &result); err == nil && result.Result != "" &&
		!strings.EqualFold(result.Result, "ok") {
		return fmt.Errorf("%w: %s %s", ErrAuth, result.Result, result.Message)
	}

	c.loggedIn = true
	c.log.Debug("Logged in to PTP")
	return nil
}

// FetchFreeleechBatch logs in if required and returns the current freeleech
// torrents, one item per group.
func (c *PTP) FetchFreeleechBatch(ctx context.Context) (*Batch, error) {
	if err := c.Login(ctx); err != nil {
		return nil, err
	}

	requestURL, err := httputils.URLWithQuery(c.baseURL+"/torrents.php", url.Values{
		"freetorrent": []string{"1"},
		"grouping":    []string{"0"},
		"json":        []string{"noredirect"},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating request URL: %w", ErrFetch, err)
	}

	var resp freeleechResponse
	if err := httputils.MakeAPIRequest(ctx, c.http, http.MethodGet, requestURL, nil, c.headers, &resp); err != nil {
		var se *httputils.StatusError
		if errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: %w", ErrAuth, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	batch := c.toBatch(&resp)
	c.log.Debugf("Retrieved %d freeleech groups (%d items)", len(resp.Movies), len(batch.Items))
	return batch, nil
}

func (c *PTP) toBatch(resp *freeleechResponse) *Batch {
	batch := &Batch{
		AuthKey: string(resp.AuthKey),
		PassKey: string(resp.PassKey),
		Items:   make([]Item, 0, len(resp.Movies)),
	}

	for _, group := range resp.Movies {
		if len(group.Torrents) == 0 {
			c.log.Tracef("Skipping group %s without torrents", group.GroupID)
			continue
		}

		// only the first variant of a group is considered
		t := group.Torrents[0]
		id := string(t.ID)

		batch.Items = append(batch.Items, Item{
			ID:          id,
			GroupID:     string(group.GroupID),
			Title:       group.Title,
			Year:        string(group.Year),
			Cover:       group.Cover,
			Source:      t.Source,
			Codec:       t.Codec,
			Container:   t.Container,
			Resolution:  t.Resolution,
			ReleaseName: t.ReleaseName,
			Seeders:     t.Seeders.Count(),
			Leechers:    t.Leechers.Count(),
			Size:        t.Size.Count(),
			Permalink:   c.permalink(string(group.GroupID), id),
			DownloadURL: c.downloadURL(id, batch.AuthKey, batch.PassKey),
		})
	}

	return batch
}

func (c *PTP) downloadURL(id, authKey, passKey string) string {
	return fmt.Sprintf("%s/torrents.php?action=download&id=%s&authkey=%s&torrent_pass=%s",
		c.baseURL, url.QueryEscape(id), url.QueryEscape(authKey), url.QueryEscape(passKey))
}

func (c *PTP) permalink(groupID, id string) string {
	return fmt.Sprintf("%s/torrents.php?id=%s&torrentid=%s", c.baseURL, url.QueryEscape(groupID), url.QueryEscape(id))
}
