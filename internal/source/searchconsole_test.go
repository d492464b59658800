package source

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/searchconsole/v1"
)

func testWindow() Window {
	return TrailingWindow(time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC), 30)
}

func newTestSearchConsole(t *testing.T, handler http.HandlerFunc) *SearchConsoleClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewSearchConsoleClient()
	client.SetHTTPClient(srv.Client())
	client.SetEndpoint(srv.URL)
	client.SetRateLimit(0)
	return client
}

func TestSearchConsoleFetchMetrics(t *testing.T) {
	var seen searchconsole.SearchAnalyticsQueryRequest
	client := newTestSearchConsole(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.True(t, strings.HasSuffix(r.URL.Path, "/searchAnalytics/query"), r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&seen))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rows":[
			{"keys":["2024-01-30"],"clicks":15,"impressions":100,"ctr":0.15,"position":4.2},
			{"keys":["2024-01-31"],"clicks":5,"impressions":50,"position":7}
		]}`))
	})

	creds := SearchConsoleCredentials{AccessToken: "tok-1", PropertyURL: "https://example.com/"}
	rows, err := client.FetchMetrics(context.Background(), creds, testWindow())
	require.NoError(t, err)

	assert.Equal(t, []string{"date"}, seen.Dimensions)
	assert.Equal(t, "2024-01-02", seen.StartDate)
	assert.Equal(t, "2024-01-31", seen.EndDate)

	require.Len(t, rows, 2)
	assert.Equal(t, SearchRow{Date: "2024-01-30", Clicks: 15, Impressions: 100, CTR: 0.15, Position: 4.2}, rows[0])
	assert.InDelta(t, 0.1, rows[1].CTR, 1e-9)
	assert.Empty(t, rows[1].Key)
}

func TestSearchConsoleFetchQueriesPaginates(t *testing.T) {
	var calls int32
	client := newTestSearchConsole(t, func(w http.ResponseWriter, r *http.Request) {
		var req searchconsole.SearchAnalyticsQueryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"query", "date"}, req.Dimensions)
		n := atomic.AddInt32(&calls, 1)

		w.Header().Set("Content-Type", "application/json")
		if n == 1 {
			assert.Equal(t, int64(0), req.StartRow)
			_, _ = w.Write([]byte(`{"rows":[
				{"keys":["seo tips","2024-01-30"],"clicks":3,"impressions":30,"ctr":0.1,"position":2},
				{"keys":["seo tools","2024-01-30"],"clicks":1,"impressions":10,"ctr":0.1,"position":9}
			]}`))
			return
		}
		assert.Equal(t, int64(2), req.StartRow)
		_, _ = w.Write([]byte(`{"rows":[{"keys":["seo audit","2024-01-31"],"clicks":2,"impressions":8,"ctr":0.25,"position":5}]}`))
	})
	client.SetRowLimit(2)

	rows, err := client.FetchQueries(context.Background(), SearchConsoleCredentials{AccessToken: "t", PropertyURL: "sc-domain:example.com"}, testWindow())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, "seo tips", rows[0].Key)
	assert.Equal(t, "2024-01-31", rows[2].Date)
}

func TestSearchConsoleUpstreamError(t *testing.T) {
	client := newTestSearchConsole(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"invalid credentials"}}`))
	})

	_, err := client.FetchPages(context.Background(), SearchConsoleCredentials{AccessToken: "bad", PropertyURL: "https://example.com/"}, testWindow())
	require.Error(t, err)

	var adapterErr *AdapterError
	require.True(t, errors.As(err, &adapterErr))
	assert.Equal(t, http.StatusUnauthorized, adapterErr.StatusCode)
	assert.Equal(t, "fetch pages", adapterErr.Op)
}

func TestSearchConsoleRejectsBadCredentials(t *testing.T) {
	client := NewSearchConsoleClient()
	_, err := client.FetchMetrics(context.Background(), SearchConsoleCredentials{PropertyURL: "https://example.com/"}, testWindow())
	assert.True(t, errors.Is(err, ErrConfiguration))
}
