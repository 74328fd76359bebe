package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.IncItems("new")
	m.IncItems("new")
	m.IncItems("seen")
	m.IncFailures("notify")
	m.Finish(time.Now().Add(-time.Second), 42)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ItemsTotal.WithLabelValues("new")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ItemsTotal.WithLabelValues("seen")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FailuresTotal.WithLabelValues("notify")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.CacheSize))
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.RunDuration), 1.0)
}

func TestMetrics_Push(t *testing.T) {
	var (
		path string
		body string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	m := New()
	m.IncItems("new")

	require.NoError(t, m.Push(context.Background(), server.URL, "freeleech"))
	assert.Equal(t, "/metrics/job/freeleech", path)
	assert.True(t, strings.Contains(body, "freeleech_items_total"), "pushed body contains counters")
}
