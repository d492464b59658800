package source

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/searchconsole/v1"
)

const (
	defaultSearchConsoleRowLimit = 5000
	defaultSearchConsoleRPS      = 5
)

// SearchRow is one Search Console row. Key holds the query text or page URL
// and is empty for date-only metric rows.
type SearchRow struct {
	Key         string
	Date        string
	Clicks      int64
	Impressions int64
	CTR         float64
	Position    float64
}

// SearchFetcher is the Search Console side of the adapter contract.
type SearchFetcher interface {
	FetchMetrics(ctx context.Context, creds SearchConsoleCredentials, w Window) ([]SearchRow, error)
	FetchQueries(ctx context.Context, creds SearchConsoleCredentials, w Window) ([]SearchRow, error)
	FetchPages(ctx context.Context, creds SearchConsoleCredentials, w Window) ([]SearchRow, error)
}

// SearchConsoleClient queries the Search Analytics API with a bearer access
// token taken from the data-source credentials.
type SearchConsoleClient struct {
	httpClient *http.Client
	endpoint   string
	limiter    *rate.Limiter
	rowLimit   int64
}

// NewSearchConsoleClient returns a client with a 30s HTTP timeout and a
// conservative outbound rate limit.
func NewSearchConsoleClient() *SearchConsoleClient {
	return &SearchConsoleClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(defaultSearchConsoleRPS), 1),
		rowLimit:   defaultSearchConsoleRowLimit,
	}
}

// SetHTTPClient swaps the transport; nil restores the default.
func (c *SearchConsoleClient) SetHTTPClient(client *http.Client) {
	if client == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
		return
	}
	c.httpClient = client
}

// SetEndpoint overrides the API base URL (tests, proxies).
func (c *SearchConsoleClient) SetEndpoint(endpoint string) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint != "" && !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	c.endpoint = endpoint
}

// SetRateLimit caps outbound requests per second; rps <= 0 disables the cap.
func (c *SearchConsoleClient) SetRateLimit(rps float64) {
	if rps <= 0 {
		c.limiter = nil
		return
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
}

// SetRowLimit sets the page size used when paging through rows.
func (c *SearchConsoleClient) SetRowLimit(limit int64) {
	if limit > 0 {
		c.rowLimit = limit
	}
}

// FetchMetrics returns one row per day.
func (c *SearchConsoleClient) FetchMetrics(ctx context.Context, creds SearchConsoleCredentials, w Window) ([]SearchRow, error) {
	return c.query(ctx, creds, w, "fetch metrics", []string{"date"})
}

// FetchQueries returns one row per (query, day).
func (c *SearchConsoleClient) FetchQueries(ctx context.Context, creds SearchConsoleCredentials, w Window) ([]SearchRow, error) {
	return c.query(ctx, creds, w, "fetch queries", []string{"query", "date"})
}

// FetchPages returns one row per (page, day).
func (c *SearchConsoleClient) FetchPages(ctx context.Context, creds SearchConsoleCredentials, w Window) ([]SearchRow, error) {
	return c.query(ctx, creds, w, "fetch pages", []string{"page", "date"})
}

func (c *SearchConsoleClient) query(ctx context.Context, creds SearchConsoleCredentials, w Window, op string, dims []string) ([]SearchRow, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	svc, err := c.service(ctx, creds)
	if err != nil {
		return nil, &AdapterError{Source: TypeSearchConsole, Op: op, Err: err}
	}

	var rows []SearchRow
	var startRow int64
	for {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, &AdapterError{Source: TypeSearchConsole, Op: op, Err: err}
			}
		}

		req := &searchconsole.SearchAnalyticsQueryRequest{
			StartDate:  w.StartDate(),
			EndDate:    w.EndDate(),
			Dimensions: dims,
			RowLimit:   c.rowLimit,
			StartRow:   startRow,
		}
		resp, err := svc.Searchanalytics.Query(creds.PropertyURL, req).Context(ctx).Do()
		if err != nil {
			return nil, wrapGoogleError(op, err)
		}

		for _, apiRow := range resp.Rows {
			if row, ok := searchRowFromAPI(apiRow, len(dims)); ok {
				rows = append(rows, row)
			}
		}

		if int64(len(resp.Rows)) < c.rowLimit {
			break
		}
		startRow += int64(len(resp.Rows))
	}

	return rows, nil
}

func (c *SearchConsoleClient) service(ctx context.Context, creds SearchConsoleCredentials) (*searchconsole.Service, error) {
	base := c.httpClient
	if base == nil {
		base = http.DefaultClient
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.AccessToken, TokenType: "Bearer"})
	authed := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, base), ts)
	authed.Timeout = base.Timeout

	opts := []option.ClientOption{option.WithHTTPClient(authed)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	return searchconsole.NewService(ctx, opts...)
}

// searchRowFromAPI maps Keys positionally: the date is always the last
// dimension, the query/page (if any) the first.
func searchRowFromAPI(r *searchconsole.ApiDataRow, dims int) (SearchRow, bool) {
	if r == nil || len(r.Keys) != dims {
		return SearchRow{}, false
	}

	row := SearchRow{
		Date:        r.Keys[dims-1],
		Clicks:      int64(r.Clicks),
		Impressions: int64(r.Impressions),
		CTR:         r.Ctr,
		Position:    r.Position,
	}
	if dims > 1 {
		row.Key = r.Keys[0]
	}
	if row.CTR == 0 && row.Impressions > 0 {
		row.CTR = float64(row.Clicks) / float64(row.Impressions)
	}
	return row, true
}

func wrapGoogleError(op string, err error) error {
	adapterErr := &AdapterError{Source: TypeSearchConsole, Op: op, Err: err}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		adapterErr.StatusCode = apiErr.Code
	}
	return adapterErr
}
