package marketdata

import (
	"context"
	"sync"
	"time"

	"smc-trader/internal/models"
)

type cacheKey struct {
	symbol string
	tf     models.Timeframe
}

type cachedSeries struct {
	candles   []models.Candle
	expiresAt time.Time
}

// CachedFetcher wraps a Fetcher with a per-symbol, per-timeframe TTL
// cache so repeated analysis cycles within the TTL reuse one fetch.
// Partitions are independent: no cross-symbol state.
type CachedFetcher struct {
	fetcher Fetcher
	ttl     time.Duration

	mu    sync.RWMutex
	cache map[cacheKey]cachedSeries
}

// NewCachedFetcher wraps fetcher with the given TTL.
func NewCachedFetcher(fetcher Fetcher, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{
		fetcher: fetcher,
		ttl:     ttl,
		cache:   make(map[cacheKey]cachedSeries),
	}
}

// FetchCandles returns cached candles when fresh, otherwise fetches and
// caches. A cached series is only reused when it covers the requested
// count.
func (c *CachedFetcher) FetchCandles(ctx context.Context, symbol string, tf models.Timeframe, count int) ([]models.Candle, error) {
	key := cacheKey{symbol: symbol, tf: tf}

	c.mu.RLock()
	entry, ok := c.cache[key]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) && len(entry.candles) >= count {
		return entry.candles[len(entry.candles)-count:], nil
	}

	candles, err := c.fetcher.FetchCandles(ctx, symbol, tf, count)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[key] = cachedSeries{candles: candles, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return candles, nil
}

// Invalidate drops every cached series for the symbol.
func (c *CachedFetcher) Invalidate(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.cache {
		if key.symbol == symbol {
			delete(c.cache, key)
		}
	}
}

// Append adds a freshly closed candle to the cached series, used by the
// live stream to keep the cache current between REST fetches. The series
// keeps its length: the oldest candle rolls off. Without a cached series
// to extend the candle is dropped; the next fetch rebuilds the window.
func (c *CachedFetcher) Append(symbol string, tf models.Timeframe, candle models.Candle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey{symbol: symbol, tf: tf}
	entry, ok := c.cache[key]
	if !ok || len(entry.candles) == 0 {
		return
	}
	last := entry.candles[len(entry.candles)-1]
	if !candle.Timestamp.After(last.Timestamp) {
		return
	}
	candles := append(entry.candles[1:len(entry.candles):len(entry.candles)], candle)
	c.cache[key] = cachedSeries{candles: candles, expiresAt: time.Now().Add(c.ttl)}
}
