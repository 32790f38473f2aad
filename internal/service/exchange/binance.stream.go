package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/krobus00/futures-terminal/internal/constant"
	"github.com/krobus00/futures-terminal/internal/entity"
	"github.com/krobus00/futures-terminal/internal/util"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

type subscribeFrame struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

// nextSubscribeFrame allocates the next request id and builds one SUBSCRIBE
// control frame. Ids start at 1 and increase for the lifetime of the
// connector; they are never reset on reconnect.
func (e *BinanceFuturesExchange) nextSubscribeFrame(contracts []entity.Contract, channel string) subscribeFrame {
	frame := subscribeFrame{
		Method: "SUBSCRIBE",
		Params: make([]string, 0, len(contracts)),
		ID:     e.wsID.Add(1),
	}

	for _, contract := range contracts {
		frame.Params = append(frame.Params, strings.ToLower(contract.Symbol)+"@"+channel)
	}

	return frame
}

// SubscribeChannel sends one SUBSCRIBE frame for the given contracts on the
// live market stream connection. It fails when the feed is not connected;
// the feed re-subscribes the full contract set itself on every reconnect, so
// callers must not assume delivery for pre-connect calls.
func (e *BinanceFuturesExchange) SubscribeChannel(contracts []entity.Contract, channel string) error {
	frame := e.nextSubscribeFrame(contracts, channel)

	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	e.wsMu.Lock()
	defer e.wsMu.Unlock()

	if e.wsConn == nil {
		return fmt.Errorf("market stream is not connected")
	}

	if err := e.wsConn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("subscribe to %d %s streams: %w", len(contracts), channel, err)
	}

	logrus.WithFields(logrus.Fields{
		"channel": channel,
		"streams": len(contracts),
		"id":      frame.ID,
	}).Info("subscribe frame sent")

	return nil
}

// streamMarketData owns the websocket connection for the connector lifetime.
// It reconnects after a fixed delay on every dial or read failure and only
// exits when the context is canceled.
func (e *BinanceFuturesExchange) streamMarketData(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		logrus.Infof("connecting to %s", e.streamURL)
		conn, _, err := websocket.DefaultDialer.Dial(e.streamURL, nil)
		if err != nil {
			logrus.Errorf("market stream dial failed: %v", err)
			e.logs.Append(fmt.Sprintf("market stream dial failed: %v", err))
			if !e.waitReconnect(ctx) {
				return
			}
			continue
		}

		conn.SetPongHandler(func(string) error {
			return nil
		})

		e.setStreamConn(conn)
		e.logs.Append("market stream connected")

		if err := e.SubscribeChannel(e.ContractList(), constant.ChannelBookTicker); err != nil {
			logrus.Errorf("market stream subscribe failed: %v", err)
		}

		stopPing := make(chan struct{})
		go e.pingLoop(ctx, conn, stopPing)

		ctxDone := make(chan struct{})
		go func(c *websocket.Conn) {
			select {
			case <-ctx.Done():
				e.wsMu.Lock()
				_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				e.wsMu.Unlock()
				_ = c.Close()
			case <-ctxDone:
			}
		}(conn)

		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					logrus.Errorf("market stream read failed: %v", err)
					e.logs.Append(fmt.Sprintf("market stream read failed: %v", err))
				}
				break
			}

			if err := e.handleStreamMessage(ctx, message); err != nil {
				logrus.Errorf("market stream message dropped: %v", err)
			}
		}

		close(stopPing)
		close(ctxDone)
		_ = conn.Close()
		e.setStreamConn(nil)

		if ctx.Err() != nil {
			return
		}
		if !e.waitReconnect(ctx) {
			return
		}
	}
}

// handleStreamMessage updates the price store from one inbound payload.
// Payloads without a recognized event type are ignored so new stream events
// stay forward-compatible.
func (e *BinanceFuturesExchange) handleStreamMessage(ctx context.Context, message []byte) error {
	var event entity.BinanceBookTickerEvent
	if err := json.Unmarshal(message, &event); err != nil {
		return fmt.Errorf("stream payload parse failed: %w", err)
	}

	if event.Event != constant.ChannelBookTicker {
		return nil
	}

	quote, err := entity.QuoteFromBookTicker(event.BidPrice, event.AskPrice)
	if err != nil {
		return fmt.Errorf("book ticker for %s: %w", event.Symbol, err)
	}

	e.prices.Upsert(event.Symbol, quote.Bid, quote.Ask)
	e.publishQuote(ctx, event.Symbol, quote)

	return nil
}

// publishQuote mirrors an accepted quote to the optional Redis snapshot
// store and fans it out to JetStream, best effort on both.
func (e *BinanceFuturesExchange) publishQuote(ctx context.Context, symbol string, quote entity.Quote) {
	if e.snapshots != nil {
		if err := e.snapshots.Save(ctx, string(entity.ExchangeBinanceFutures), symbol, quote); err != nil {
			logrus.Warnf("price snapshot mirror failed for %s: %v", symbol, err)
		}
	}

	if e.js != nil {
		event := entity.BookTickerEvent{
			Exchange:   string(entity.ExchangeBinanceFutures),
			Symbol:     symbol,
			Bid:        quote.Bid,
			Ask:        quote.Ask,
			ObservedAt: time.Now().UTC(),
		}

		subject := constant.GetTickerStreamSubject(string(entity.ExchangeBinanceFutures), symbol)
		if err := util.PublishEvent(e.js, subject, event); err != nil {
			logrus.Warnf("ticker event publish failed for %s: %v", symbol, err)
		}
	}
}

func (e *BinanceFuturesExchange) waitReconnect(ctx context.Context) bool {
	logrus.WithField("retry_in", e.reconnectDelay.String()).Warn("reconnecting market stream")

	select {
	case <-time.After(e.reconnectDelay):
		return true
	case <-ctx.Done():
		return false
	}
}

func (e *BinanceFuturesExchange) setStreamConn(conn *websocket.Conn) {
	e.wsMu.Lock()
	e.wsConn = conn
	e.wsMu.Unlock()
}

func (e *BinanceFuturesExchange) pingLoop(ctx context.Context, conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(2 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.wsMu.Lock()
			err := conn.WriteMessage(websocket.PingMessage, nil)
			e.wsMu.Unlock()
			if err != nil {
				logrus.Error(err)
				return
			}
		case <-ctx.Done():
			return
		case <-stop:
			return
		}
	}
}

// JetstreamEventInit creates or updates the ticker fan-out stream. No-op when
// JetStream is not configured.
func (e *BinanceFuturesExchange) JetstreamEventInit(ctx context.Context) error {
	if e.js == nil {
		return nil
	}

	streamConfig := &nats.StreamConfig{
		Name:      constant.TickerStreamName,
		Subjects:  []string{constant.TickerStreamSubjectAll},
		Storage:   nats.MemoryStorage, // live quotes only, nothing worth keeping across restarts
		Retention: nats.LimitsPolicy,
		MaxAge:    5 * time.Minute,
		Replicas:  1,
	}

	stream, err := e.js.StreamInfo(constant.TickerStreamName, nats.Context(ctx))
	if err != nil && !errors.Is(err, nats.ErrStreamNotFound) {
		logrus.Error(err)
		return err
	}

	if stream == nil {
		logrus.Infof("creating stream: %s", constant.TickerStreamName)
		_, err = e.js.AddStream(streamConfig, nats.Context(ctx))
		return err
	}

	logrus.Infof("updating stream: %s", constant.TickerStreamName)
	_, err = e.js.UpdateStream(streamConfig, nats.Context(ctx))
	if err != nil {
		logrus.Error(err)
		return err
	}

	logrus.Infof("stream %s is ready", constant.TickerStreamName)

	return nil
}
