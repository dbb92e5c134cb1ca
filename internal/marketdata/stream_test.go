package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"smc-trader/internal/models"
)

// klineServer serves every connection the given messages, then closes it.
func klineServer(t *testing.T, messages []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for _, msg := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConsumeEmitsClosedKlines(t *testing.T) {
	openKline := `{"e":"kline","s":"BTCUSDT","k":{"t":1735689600000,"i":"1h","o":"100","h":"101","l":"99","c":"100.2","v":"50","x":false}}`
	closedKline := `{"e":"kline","s":"BTCUSDT","k":{"t":1735689600000,"i":"1h","o":"100","h":"101","l":"99","c":"100.5","v":"250","x":true}}`
	srv := klineServer(t, []string{openKline, "not json", closedKline})
	defer srv.Close()

	s := NewKlineStream("", zerolog.Nop())
	updates := make(chan PriceUpdate, 4)

	// The server closes after its messages, so consume returns.
	err := s.consume(context.Background(), wsURL(srv), "BTCUSDT", models.Timeframe1Hour, updates)
	if err == nil {
		t.Fatal("expected an error when the server closes the connection")
	}

	select {
	case u := <-updates:
		if u.Symbol != "BTCUSDT" || u.Timeframe != models.Timeframe1Hour {
			t.Errorf("update identity = %s/%s", u.Symbol, u.Timeframe)
		}
		if u.Candle.Close != 100.5 || u.Candle.Volume != 250 {
			t.Errorf("candle = %+v, want close 100.5 volume 250", u.Candle)
		}
		if !u.Candle.Timestamp.Equal(time.UnixMilli(1735689600000)) {
			t.Errorf("timestamp = %v", u.Candle.Timestamp)
		}
	default:
		t.Fatal("no update received")
	}

	// Unclosed and malformed messages never reach the channel.
	select {
	case u := <-updates:
		t.Errorf("unexpected extra update: %+v", u)
	default:
	}
}

func TestConsumeReleasesWatcherPerConnection(t *testing.T) {
	closedKline := `{"e":"kline","s":"BTCUSDT","k":{"t":1735689600000,"i":"1h","o":"100","h":"101","l":"99","c":"100.5","v":"250","x":true}}`
	srv := klineServer(t, []string{closedKline})
	defer srv.Close()

	s := NewKlineStream("", zerolog.Nop())
	updates := make(chan PriceUpdate, 16)
	ctx := context.Background()

	baseline := runtime.NumGoroutine()

	// Each consume stands in for one reconnect of a long watch session;
	// none of them may leave a goroutine parked on the shared context.
	for i := 0; i < 5; i++ {
		if err := s.consume(ctx, wsURL(srv), "BTCUSDT", models.Timeframe1Hour, updates); err == nil {
			t.Fatal("expected an error when the server closes the connection")
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > baseline+1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := runtime.NumGoroutine(); n > baseline+1 {
		t.Errorf("goroutines = %d after 5 connections, baseline %d", n, baseline)
	}
}
