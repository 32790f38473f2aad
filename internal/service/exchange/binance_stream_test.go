package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/krobus00/futures-terminal/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_nextSubscribeFrame(t *testing.T) {
	e := newTestExchange(t, "http://unused")

	contracts := []entity.Contract{
		{Symbol: "BTCUSDT"},
		{Symbol: "ETHUSDT"},
	}

	first := e.nextSubscribeFrame(contracts, "bookTicker")
	second := e.nextSubscribeFrame(contracts[:1], "bookTicker")

	assert.Equal(t, "SUBSCRIBE", first.Method)
	assert.Equal(t, []string{"btcusdt@bookTicker", "ethusdt@bookTicker"}, first.Params)
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID, "request ids keep increasing across frames")
}

func Test_SubscribeChannel_NotConnected(t *testing.T) {
	e := newTestExchange(t, "http://unused")

	err := e.SubscribeChannel([]entity.Contract{{Symbol: "BTCUSDT"}}, "bookTicker")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}

func Test_handleStreamMessage(t *testing.T) {
	t.Run("book ticker event updates the price store", func(t *testing.T) {
		e := newTestExchange(t, "http://unused")

		message := []byte(`{"e":"bookTicker","s":"BTCUSDT","b":"50000.10","a":"50000.20"}`)
		require.NoError(t, e.handleStreamMessage(context.Background(), message))

		quote, ok := e.Prices().Get("BTCUSDT")
		require.True(t, ok)
		assert.Equal(t, entity.Quote{Bid: 50000.10, Ask: 50000.20}, quote)
	})

	t.Run("unrecognized event types are ignored", func(t *testing.T) {
		e := newTestExchange(t, "http://unused")

		message := []byte(`{"e":"aggTrade","s":"BTCUSDT","p":"50000.10"}`)
		require.NoError(t, e.handleStreamMessage(context.Background(), message))
		assert.Equal(t, 0, e.Prices().Len())
	})

	t.Run("subscribe acknowledgements are ignored", func(t *testing.T) {
		e := newTestExchange(t, "http://unused")

		require.NoError(t, e.handleStreamMessage(context.Background(), []byte(`{"result":null,"id":1}`)))
		assert.Equal(t, 0, e.Prices().Len())
	})

	t.Run("malformed prices are dropped without touching the store", func(t *testing.T) {
		e := newTestExchange(t, "http://unused")
		e.prices.Upsert("BTCUSDT", 1, 2)

		message := []byte(`{"e":"bookTicker","s":"BTCUSDT","b":"broken","a":"50000.20"}`)
		require.Error(t, e.handleStreamMessage(context.Background(), message))

		quote, ok := e.Prices().Get("BTCUSDT")
		require.True(t, ok)
		assert.Equal(t, entity.Quote{Bid: 1, Ask: 2}, quote)
	})

	t.Run("non-json payload is an error", func(t *testing.T) {
		e := newTestExchange(t, "http://unused")
		assert.Error(t, e.handleStreamMessage(context.Background(), []byte("not-json")))
	})
}

func Test_streamMarketData_DeliversQuotes(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Drain the subscribe frame, then push one quote and hold the
		// connection open.
		_, _, _ = conn.ReadMessage()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"e":"bookTicker","s":"BTCUSDT","b":"50000.10","a":"50000.20"}`))
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	e := newTestExchange(t, "http://unused")
	e.streamURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	e.reconnectDelay = 10 * time.Millisecond
	e.contracts = map[string]entity.Contract{"BTCUSDT": {Symbol: "BTCUSDT"}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go e.streamMarketData(ctx)

	require.Eventually(t, func() bool {
		quote, ok := e.Prices().Get("BTCUSDT")
		return ok && quote.Bid == 50000.10 && quote.Ask == 50000.20
	}, 2*time.Second, 10*time.Millisecond)
}

func Test_streamMarketData_ReconnectsUntilCanceled(t *testing.T) {
	var dials atomic.Int32

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		dials.Add(1)
		_ = conn.Close()
	}))
	defer srv.Close()

	e := newTestExchange(t, "http://unused")
	e.streamURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	e.reconnectDelay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		e.streamMarketData(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return dials.Load() >= 3
	}, 2*time.Second, 10*time.Millisecond, "feed must keep redialing after dropped connections")

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not exit after context cancellation")
	}
}
