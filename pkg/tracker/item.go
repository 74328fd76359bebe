package tracker

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Unknown marks a counter the tracker did not report as a number.
const Unknown int64 = -1

// Item is the canonical torrent of a freeleech group as seen in one poll.
type Item struct {
	ID          string
	GroupID     string
	Title       string
	Year        string
	Cover       string
	Source      string
	Codec       string
	Container   string
	Resolution  string
	ReleaseName string

	Seeders  int64
	Leechers int64
	Size     int64

	Permalink   string
	DownloadURL string
}

// SizeString renders Size for display.
func (i Item) SizeString() string {
	if i.Size < 0 {
		return "unknown"
	}
	if i.Size == 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(i.Size))
}

// Batch is the result of one authenticated freeleech poll.
type Batch struct {
	AuthKey string
	PassKey string
	Items   []Item
}

// flexString accepts a JSON string or number. The PTP API is inconsistent
// about quoting ids and counters.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// Int parses the value as an integer and reports whether it was numeric.
func (f flexString) Int() (int64, bool) {
	s := strings.TrimSpace(string(f))
	if s == "" {
		return 0, false
	}

	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, true
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		return int64(v), true
	}
	return 0, false
}

// Count is Int with Unknown for missing, non-numeric or negative values.
func (f flexString) Count() int64 {
	v, ok := f.Int()
	if !ok || v < 0 {
		return Unknown
	}
	return v
}

type freeleechResponse struct {
	AuthKey flexString       `json:"AuthKey"`
	PassKey flexString       `json:"PassKey"`
	Movies  []freeleechMovie `json:"Movies"`
}

type freeleechMovie struct {
	GroupID  flexString         `json:"GroupId"`
	Title    string             `json:"Title"`
	Year     flexString         `json:"Year"`
	Cover    string             `json:"Cover"`
	Torrents []freeleechTorrent `json:"Torrents"`
}

type freeleechTorrent struct {
	ID          flexString `json:"Id"`
	Source      string     `json:"Source"`
	Codec       string     `json:"Codec"`
	Container   string     `json:"Container"`
	Resolution  string     `json:"Resolution"`
	ReleaseName string     `json:"ReleaseName"`
	Size        flexString `json:"Size"`
	Seeders     flexString `json:"Seeders"`
	Leechers    flexString `json:"Leechers"`
}
