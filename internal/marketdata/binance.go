// Package marketdata fetches and caches OHLCV candles from the market
// data venue. The analysis engine consumes candles through the Fetcher
// interface and performs no I/O itself.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"smc-trader/internal/errors"
	"smc-trader/internal/models"
	"smc-trader/internal/resilience"
	"smc-trader/pkg/utils"
)

// DefaultBaseURL is the Binance spot REST endpoint.
const DefaultBaseURL = "https://api.binance.com"

// Fetcher retrieves candles for a symbol and timeframe, sorted ascending
// by timestamp and deduplicated.
type Fetcher interface {
	FetchCandles(ctx context.Context, symbol string, tf models.Timeframe, count int) ([]models.Candle, error)
}

// Client is a Binance REST market data client. Requests retry on
// transient venue errors behind a circuit breaker.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	retry      utils.RetryConfig
}

// NewClient creates a market data client against the given base URL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	retry := utils.DefaultRetryConfig()
	retry.ShouldRetry = func(err error) bool {
		return errors.Is(err, errors.ErrRateLimited) || errors.Is(err, errors.ErrConnectionFailed)
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker:    resilience.NewCircuitBreaker("binance", resilience.DefaultCircuitBreakerConfig()),
		retry:      retry,
	}
}

// get issues one GET against the venue with retry and circuit breaker
// protection, returning the response body.
func (c *Client) get(ctx context.Context, endpoint, dataType, symbol string) ([]byte, error) {
	return utils.RetryWithResult(ctx, c.retry, func() ([]byte, error) {
		return resilience.ExecuteWithResult(c.breaker, ctx, func() ([]byte, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return nil, errors.Wrap(err, "building request")
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return nil, errors.NewDataError(dataType, symbol, "fetch failed: "+err.Error(), errors.ErrConnectionFailed)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, errors.NewDataError(dataType, symbol, "reading response", err)
			}

			if resp.StatusCode == http.StatusTooManyRequests {
				return nil, errors.NewDataError(dataType, symbol, "venue throttled request", errors.ErrRateLimited)
			}
			if resp.StatusCode != http.StatusOK {
				return nil, errors.NewDataError(dataType, symbol, fmt.Sprintf("API error: %s", string(body)), nil)
			}
			return body, nil
		})
	})
}

// BreakerStats reports the venue circuit breaker state.
func (c *Client) BreakerStats() resilience.CircuitBreakerStats {
	return c.breaker.Stats()
}

// FetchCandles fetches up to count klines for the symbol and timeframe.
func (c *Client) FetchCandles(ctx context.Context, symbol string, tf models.Timeframe, count int) ([]models.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", string(tf))
	params.Set("limit", strconv.Itoa(count))

	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", c.baseURL, params.Encode())

	body, err := c.get(ctx, endpoint, "klines", symbol)
	if err != nil {
		return nil, err
	}

	var rawKlines [][]interface{}
	if err := json.Unmarshal(body, &rawKlines); err != nil {
		return nil, errors.NewDataError("klines", symbol, "parsing response", err)
	}

	candles := make([]models.Candle, 0, len(rawKlines))
	for _, raw := range rawKlines {
		if len(raw) < 6 {
			return nil, errors.NewDataError("klines", symbol, "short kline row", nil)
		}
		openTime, ok := raw[0].(float64)
		if !ok {
			return nil, errors.NewDataError("klines", symbol, "malformed open time", nil)
		}
		candles = append(candles, models.Candle{
			Timestamp: time.UnixMilli(int64(openTime)),
			Open:      parseFloat(raw[1]),
			High:      parseFloat(raw[2]),
			Low:       parseFloat(raw[3]),
			Close:     parseFloat(raw[4]),
			Volume:    parseFloat(raw[5]),
		})
	}

	return candles, nil
}

// CurrentPrice fetches the venue's last traded price for the symbol.
func (c *Client) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	endpoint := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", c.baseURL, url.QueryEscape(symbol))

	body, err := c.get(ctx, endpoint, "ticker", symbol)
	if err != nil {
		return 0, err
	}

	var ticker struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.Unmarshal(body, &ticker); err != nil {
		return 0, errors.NewDataError("ticker", symbol, "parsing response", err)
	}

	price, err := strconv.ParseFloat(ticker.Price, 64)
	if err != nil {
		return 0, errors.NewDataError("ticker", symbol, "malformed price", err)
	}
	return price, nil
}

func parseFloat(val interface{}) float64 {
	s, ok := val.(string)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
