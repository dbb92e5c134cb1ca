package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"smc-trader/internal/errors"
	"smc-trader/internal/models"
)

// DefaultStreamURL is the Binance spot websocket endpoint.
const DefaultStreamURL = "wss://stream.binance.com:9443/ws"

// PriceUpdate is one closed-kline update from the live stream.
type PriceUpdate struct {
	Symbol    string
	Timeframe models.Timeframe
	Candle    models.Candle
}

// KlineStream maintains a websocket subscription to kline updates so
// queue trigger checks between REST fetches see fresh prices.
type KlineStream struct {
	url    string
	logger zerolog.Logger
}

// NewKlineStream creates a kline stream against the given websocket URL.
func NewKlineStream(url string, logger zerolog.Logger) *KlineStream {
	if url == "" {
		url = DefaultStreamURL
	}
	return &KlineStream{
		url:    url,
		logger: logger.With().Str("component", "kline_stream").Logger(),
	}
}

// binanceKlineEvent mirrors the venue's kline event payload. Only the
// fields the engine needs are decoded.
type binanceKlineEvent struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Kline     struct {
		StartTime int64  `json:"t"`
		Interval  string `json:"i"`
		Open      string `json:"o"`
		High      string `json:"h"`
		Low       string `json:"l"`
		Close     string `json:"c"`
		Volume    string `json:"v"`
		Closed    bool   `json:"x"`
	} `json:"k"`
}

// Run subscribes to kline updates for the symbol and timeframe and sends
// closed candles on updateChan until the context is cancelled. Transient
// read failures reconnect with a short backoff.
func (s *KlineStream) Run(ctx context.Context, symbol string, tf models.Timeframe, updateChan chan<- PriceUpdate) error {
	streamURL := fmt.Sprintf("%s/%s@kline_%s", s.url, strings.ToLower(symbol), tf)

	for {
		if err := s.consume(ctx, streamURL, symbol, tf, updateChan); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Stream disconnected, reconnecting")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(5 * time.Second):
			}
		}
	}
}

func (s *KlineStream) consume(ctx context.Context, streamURL, symbol string, tf models.Timeframe, updateChan chan<- PriceUpdate) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, streamURL, nil)
	if err != nil {
		return errors.NewDataError("stream", symbol, "dial failed", err)
	}
	defer conn.Close()

	s.logger.Debug().Str("symbol", symbol).Str("timeframe", string(tf)).Msg("Stream connected")

	// The watcher must not outlive this connection: reconnects would
	// otherwise park one goroutine each until context cancellation.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return errors.NewDataError("stream", symbol, "read failed", err)
		}

		var event binanceKlineEvent
		if err := json.Unmarshal(message, &event); err != nil {
			s.logger.Debug().Err(err).Msg("Skipping malformed stream message")
			continue
		}
		if event.EventType != "kline" || !event.Kline.Closed {
			continue
		}

		update := PriceUpdate{
			Symbol:    symbol,
			Timeframe: tf,
			Candle: models.Candle{
				Timestamp: time.UnixMilli(event.Kline.StartTime),
				Open:      mustParse(event.Kline.Open),
				High:      mustParse(event.Kline.High),
				Low:       mustParse(event.Kline.Low),
				Close:     mustParse(event.Kline.Close),
				Volume:    mustParse(event.Kline.Volume),
			},
		}

		select {
		case <-ctx.Done():
			return nil
		case updateChan <- update:
		}
	}
}

func mustParse(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
