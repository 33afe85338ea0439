// Package eastmoney provides a client for the Eastmoney quote history API
package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/stockpit/internal/common"
	"github.com/bobmcallan/stockpit/internal/interfaces"
	"github.com/bobmcallan/stockpit/internal/models"
)

const (
	DefaultBaseURL   = "https://push2his.eastmoney.com"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 5 // requests per second

	klinePath = "/api/qt/stock/kline/get"

	// klt 101 = daily bars, fqt 1 = forward-adjusted prices
	periodDaily   = "101"
	adjustForward = "1"

	// Response field selectors. fields2 controls the kline column order:
	// f51 date, f52 open, f53 close, f54 high, f55 low, f56 volume,
	// f57 amount, f58 amplitude, f59 pct change, f60 change, f61 turnover.
	fields1 = "f1,f2,f3,f4,f5,f6"
	fields2 = "f51,f52,f53,f54,f55,f56,f57,f58,f59,f60,f61"
)

// Client fetches daily kline history from the Eastmoney push2his endpoint.
// The endpoint is public (no API key) but intolerant of burst traffic, so
// every request goes through the client's rate limiter.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

var _ interfaces.MarketDataClient = (*Client)(nil)

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithProxyBypass forces direct connections, ignoring HTTP(S)_PROXY
// environment variables. The provider rejects or garbles requests routed
// through common corporate proxies.
func WithProxyBypass() ClientOption {
	return func(c *Client) {
		c.httpClient.Transport = &http.Transport{Proxy: nil}
	}
}

// NewClient creates a new Eastmoney client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a provider error response
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("eastmoney API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// SecID maps a bare instrument code to the provider's market-qualified
// security ID. Codes starting 6, 9 or 5 trade on Shanghai (market 1);
// everything else resolves to Shenzhen/Beijing (market 0).
func SecID(code string) string {
	if code != "" {
		switch code[0] {
		case '6', '9', '5':
			return "1." + code
		}
	}
	return "0." + code
}

// klineResponse is the provider's response envelope. Data is null when the
// security is unknown or has no bars in the window.
type klineResponse struct {
	RC   int        `json:"rc"`
	Data *klineData `json:"data"`
}

type klineData struct {
	Code   string   `json:"code"`
	Name   string   `json:"name"`
	Klines []string `json:"klines"`
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Str("secid", params.Get("secid")).Msg("Eastmoney API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// FetchDailyHistory retrieves forward-adjusted daily bars for one code over
// [start, end], ascending by date. An empty result with a nil error means
// the provider has no rows for the window.
func (c *Client) FetchDailyHistory(ctx context.Context, code string, start, end time.Time) ([]models.HistoryBar, error) {
	params := url.Values{}
	params.Set("secid", SecID(code))
	params.Set("klt", periodDaily)
	params.Set("fqt", adjustForward)
	params.Set("beg", start.Format("20060102"))
	params.Set("end", end.Format("20060102"))
	params.Set("fields1", fields1)
	params.Set("fields2", fields2)

	var resp klineResponse
	if err := c.get(ctx, klinePath, params, &resp); err != nil {
		return nil, err
	}

	if resp.RC != 0 {
		return nil, &APIError{
			StatusCode: http.StatusOK,
			Message:    fmt.Sprintf("provider returned rc=%d", resp.RC),
			Endpoint:   klinePath,
		}
	}

	if resp.Data == nil || len(resp.Data.Klines) == 0 {
		return nil, nil
	}

	bars := make([]models.HistoryBar, 0, len(resp.Data.Klines))
	for _, line := range resp.Data.Klines {
		bar, err := parseKline(line)
		if err != nil {
			return nil, fmt.Errorf("malformed kline for %s: %w", code, err)
		}
		bars = append(bars, bar)
	}

	// The provider sends bars oldest-first; enforce it regardless.
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	return bars, nil
}

// parseKline decodes one comma-separated kline row. Column order follows
// fields2: date, open, close, high, low, volume come first.
func parseKline(line string) (models.HistoryBar, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 6 {
		return models.HistoryBar{}, fmt.Errorf("expected at least 6 columns, got %d", len(parts))
	}

	date, err := time.Parse("2006-01-02", parts[0])
	if err != nil {
		return models.HistoryBar{}, fmt.Errorf("bad date %q: %w", parts[0], err)
	}

	vals := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		v, err := strconv.ParseFloat(parts[i], 64)
		if err != nil {
			return models.HistoryBar{}, fmt.Errorf("bad column %d %q: %w", i, parts[i], err)
		}
		vals[i-1] = v
	}

	return models.HistoryBar{
		Date:   date,
		Open:   vals[0],
		Close:  vals[1],
		High:   vals[2],
		Low:    vals[3],
		Volume: int64(vals[4]),
	}, nil
}
