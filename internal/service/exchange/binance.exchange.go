package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/krobus00/futures-terminal/internal/config"
	"github.com/krobus00/futures-terminal/internal/entity"
	"github.com/krobus00/futures-terminal/internal/repository"
	"github.com/krobus00/futures-terminal/internal/service/logqueue"
	"github.com/krobus00/futures-terminal/internal/service/pricestore"
	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	binanceBaseURL          = "https://fapi.binance.com"
	binanceStreamURL        = "wss://fstream.binance.com/ws"
	binanceTestnetBaseURL   = "https://testnet.binancefuture.com"
	binanceTestnetStreamURL = "wss://stream.binancefuture.com/ws"

	binanceCandleLimit    = 1000
	binanceRequestTimeout = 15 * time.Second
	binanceReconnectDelay = 2 * time.Second

	defaultRecvWindow = int64(5000)
	maxRecvWindow     = int64(60000)
)

type BinanceFuturesExchange struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	streamURL  string
	recvWindow int64
	httpClient *http.Client

	contractsMu sync.RWMutex
	contracts   map[string]entity.Contract

	balancesMu sync.RWMutex
	balances   map[string]entity.Balance

	prices *pricestore.Store
	logs   *logqueue.Queue

	wsMu   sync.Mutex
	wsConn *websocket.Conn
	wsID   atomic.Int64

	reconnectDelay time.Duration

	snapshots *repository.RedisPriceSnapshotStore
	js        nats.JetStreamContext
}

// NewBinanceFuturesExchange builds the connector without touching the
// network. The snapshot store and JetStream context are optional.
func NewBinanceFuturesExchange(exchangeConfig config.ExchangeConfig, snapshots *repository.RedisPriceSnapshotStore, js nats.JetStreamContext) *BinanceFuturesExchange {
	baseURL := binanceBaseURL
	streamURL := binanceStreamURL
	if exchangeConfig.Testnet {
		baseURL = binanceTestnetBaseURL
		streamURL = binanceTestnetStreamURL
	}

	recvWindow := exchangeConfig.RecvWindow
	if recvWindow <= 0 || recvWindow > maxRecvWindow {
		recvWindow = defaultRecvWindow
	}

	return &BinanceFuturesExchange{
		apiKey:         strings.TrimSpace(exchangeConfig.APIKey),
		apiSecret:      strings.TrimSpace(exchangeConfig.APISecret),
		baseURL:        baseURL,
		streamURL:      streamURL,
		recvWindow:     recvWindow,
		httpClient:     &http.Client{Timeout: binanceRequestTimeout},
		contracts:      make(map[string]entity.Contract),
		balances:       make(map[string]entity.Balance),
		prices:         pricestore.New(),
		logs:           logqueue.New(),
		reconnectDelay: binanceReconnectDelay,
		snapshots:      snapshots,
		js:             js,
	}
}

// InitBinanceFuturesExchange bootstraps the contract set and account
// balances over REST, then starts the market stream in the background. REST
// bootstrap failures are logged and leave the corresponding map empty; they
// never abort initialization.
func InitBinanceFuturesExchange(ctx context.Context, exchangeConfig config.ExchangeConfig, snapshots *repository.RedisPriceSnapshotStore, js nats.JetStreamContext) *BinanceFuturesExchange {
	newExchange := NewBinanceFuturesExchange(exchangeConfig, snapshots, js)

	if _, err := newExchange.GetContracts(ctx); err != nil {
		logrus.Errorf("binance futures contract bootstrap failed: %v", err)
	}

	if _, err := newExchange.GetBalances(ctx); err != nil {
		logrus.Errorf("binance futures balance bootstrap failed: %v", err)
	}

	go newExchange.streamMarketData(ctx)

	RegisterExchange(entity.ExchangeBinanceFutures, newExchange)

	newExchange.logs.Append("Binance Futures connector initialized")
	logrus.WithFields(logrus.Fields{
		"base_url":  newExchange.baseURL,
		"contracts": len(newExchange.contracts),
	}).Info("binance futures connector initialized")

	return newExchange
}

type queryParam struct {
	key   string
	value string
}

func encodeParams(params []queryParam) string {
	pairs := make([]string, 0, len(params))
	for _, p := range params {
		pairs = append(pairs, p.key+"="+url.QueryEscape(p.value))
	}

	return strings.Join(pairs, "&")
}

func hmacSHA256Hex(secret, payload string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(payload))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// signedPayload appends the millisecond timestamp and recvWindow, then signs
// the exact query payload that is sent on the wire.
func (e *BinanceFuturesExchange) signedPayload(params []queryParam) string {
	params = append(params,
		queryParam{"timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10)},
		queryParam{"recvWindow", strconv.FormatInt(e.recvWindow, 10)},
	)

	payload := encodeParams(params)

	return payload + "&signature=" + hmacSHA256Hex(e.apiSecret, payload)
}

// request performs one REST call. Any method other than GET, POST or DELETE
// is a programming error and panics. Transport failures and non-200 statuses
// come back as *TransportError and *APIError; both are logged and appended to
// the terminal log queue before returning.
func (e *BinanceFuturesExchange) request(ctx context.Context, method, path, payload string) ([]byte, error) {
	var (
		req *http.Request
		err error
	)

	switch method {
	case http.MethodGet, http.MethodDelete:
		endpoint := e.baseURL + path
		if payload != "" {
			endpoint += "?" + payload
		}
		req, err = http.NewRequestWithContext(ctx, method, endpoint, nil)
	case http.MethodPost:
		req, err = http.NewRequestWithContext(ctx, method, e.baseURL+path, strings.NewReader(payload))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	default:
		panic(fmt.Sprintf("unsupported http method: %s", method))
	}
	if err != nil {
		return nil, err
	}

	req.Header.Set("X-MBX-APIKEY", e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, e.reportTransportError(method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, e.reportTransportError(method, path, err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Method: method, Path: path, Status: resp.StatusCode, Body: string(body)}

		var errBody struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		}
		if err := json.Unmarshal(body, &errBody); err == nil {
			apiErr.Code = errBody.Code
			apiErr.Msg = errBody.Msg
		}

		logrus.WithFields(logrus.Fields{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
			"code":   apiErr.Code,
			"msg":    apiErr.Msg,
		}).Error("binance request rejected")
		e.logs.Append(apiErr.Error())

		return nil, apiErr
	}

	return body, nil
}

func (e *BinanceFuturesExchange) reportTransportError(method, path string, err error) *TransportError {
	transportErr := &TransportError{Method: method, Path: path, Err: err}

	logrus.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
	}).Errorf("binance request failed: %v", err)
	e.logs.Append(transportErr.Error())

	return transportErr
}

// GetContracts re-fetches the full contract set and replaces the cached
// mapping. A response without a symbols key yields an empty mapping without
// error; a malformed record is skipped, not fatal to the batch.
func (e *BinanceFuturesExchange) GetContracts(ctx context.Context) (map[string]entity.Contract, error) {
	contracts := make(map[string]entity.Contract)

	body, err := e.request(ctx, http.MethodGet, "/fapi/v1/exchangeInfo", "")
	if err != nil {
		return contracts, err
	}

	var info entity.BinanceExchangeInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return contracts, fmt.Errorf("exchange info parse failed: %w", err)
	}

	for _, contractInfo := range info.Symbols {
		contract, err := entity.ContractFromBinanceInfo(contractInfo)
		if err != nil {
			logrus.Warnf("skipping contract: %v", err)
			continue
		}
		contracts[contract.Symbol] = contract
	}

	e.contractsMu.Lock()
	e.contracts = contracts
	e.contractsMu.Unlock()

	return e.Contracts(), nil
}

// GetBalances replaces the cached balance set wholesale from a signed
// account snapshot. Returns an empty mapping on failure.
func (e *BinanceFuturesExchange) GetBalances(ctx context.Context) (map[string]entity.Balance, error) {
	balances := make(map[string]entity.Balance)

	if e.apiKey == "" || e.apiSecret == "" {
		return balances, fmt.Errorf("binance futures credentials are missing in config")
	}

	body, err := e.request(ctx, http.MethodGet, "/fapi/v2/account", e.signedPayload(nil))
	if err != nil {
		return balances, err
	}

	var account entity.BinanceAccountInfo
	if err := json.Unmarshal(body, &account); err != nil {
		return balances, fmt.Errorf("account snapshot parse failed: %w", err)
	}

	for _, asset := range account.Assets {
		balance, err := entity.BalanceFromBinanceAsset(asset)
		if err != nil {
			logrus.Warnf("skipping balance: %v", err)
			continue
		}
		balances[balance.Asset] = balance
	}

	e.balancesMu.Lock()
	e.balances = balances
	e.balancesMu.Unlock()

	return e.Balances(), nil
}

func (e *BinanceFuturesExchange) GetHistoricalCandles(ctx context.Context, contract entity.Contract, interval string) ([]entity.Candle, error) {
	candles := make([]entity.Candle, 0, binanceCandleLimit)

	params := []queryParam{
		{"symbol", contract.Symbol},
		{"interval", interval},
		{"limit", strconv.Itoa(binanceCandleLimit)},
	}

	body, err := e.request(ctx, http.MethodGet, "/fapi/v1/klines", encodeParams(params))
	if err != nil {
		return candles, err
	}

	var rows [][]any
	if err := json.Unmarshal(body, &rows); err != nil {
		return candles, fmt.Errorf("klines parse failed: %w", err)
	}

	for _, row := range rows {
		candle, err := entity.CandleFromBinanceKline(row, interval)
		if err != nil {
			logrus.Warnf("skipping kline for %s: %v", contract.Symbol, err)
			continue
		}
		candles = append(candles, candle)
	}

	return candles, nil
}

// GetBidAsk queries the REST book ticker and upserts the price store. On any
// failure the store keeps its prior value for the symbol.
func (e *BinanceFuturesExchange) GetBidAsk(ctx context.Context, contract entity.Contract) (entity.Quote, error) {
	params := []queryParam{{"symbol", contract.Symbol}}

	body, err := e.request(ctx, http.MethodGet, "/fapi/v1/ticker/bookTicker", encodeParams(params))
	if err != nil {
		return entity.Quote{}, err
	}

	var ticker entity.BinanceBookTicker
	if err := json.Unmarshal(body, &ticker); err != nil {
		return entity.Quote{}, fmt.Errorf("book ticker parse failed: %w", err)
	}

	quote, err := entity.QuoteFromBookTicker(ticker.BidPrice, ticker.AskPrice)
	if err != nil {
		return entity.Quote{}, fmt.Errorf("book ticker for %s: %w", contract.Symbol, err)
	}

	e.prices.Upsert(contract.Symbol, quote.Bid, quote.Ask)
	e.publishQuote(ctx, contract.Symbol, quote)

	stored, _ := e.prices.Get(contract.Symbol)

	return stored, nil
}

// PlaceOrder normalizes quantity to the contract lot size and price to the
// tick size (nearest multiple, truncated to 8 decimals), generates a client
// order id when none is supplied, and submits a signed order. A returned
// error means the order outcome is unknown; no fill is assumed.
func (e *BinanceFuturesExchange) PlaceOrder(ctx context.Context, contract entity.Contract, order entity.OrderRequest) (*entity.OrderStatus, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if e.apiKey == "" || e.apiSecret == "" {
		return nil, fmt.Errorf("binance futures credentials are missing in config")
	}

	quantity, err := roundToStep(order.Quantity, contract.LotSize)
	if err != nil {
		return nil, fmt.Errorf("order quantity for %s: %w", contract.Symbol, err)
	}
	if !quantity.GreaterThan(decimal.Zero) {
		return nil, fmt.Errorf("order quantity becomes zero after lot size rounding: quantity=%s lot_size=%s", order.Quantity, contract.LotSize)
	}

	params := []queryParam{
		{"symbol", contract.Symbol},
		{"side", string(order.Side)},
		{"type", string(order.Type)},
		{"quantity", quantity.String()},
	}

	if order.Price != nil {
		price, err := roundToStep(*order.Price, contract.TickSize)
		if err != nil {
			return nil, fmt.Errorf("order price for %s: %w", contract.Symbol, err)
		}
		if !price.GreaterThan(decimal.Zero) {
			return nil, fmt.Errorf("order price becomes zero after tick size rounding: price=%s tick_size=%s", order.Price, contract.TickSize)
		}
		params = append(params, queryParam{"price", price.String()})
	}

	if order.TimeInForce.Valid {
		params = append(params, queryParam{"timeInForce", order.TimeInForce.String})
	}

	clientOrderID := strings.TrimSpace(order.ClientOrderID.String)
	if clientOrderID == "" {
		clientOrderID = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	params = append(params, queryParam{"newClientOrderId", clientOrderID})

	body, err := e.request(ctx, http.MethodPost, "/fapi/v1/order", e.signedPayload(params))
	if err != nil {
		return nil, err
	}

	status, err := parseOrderResponse(body)
	if err != nil {
		return nil, err
	}

	e.logs.Append(fmt.Sprintf("%s %s order placed on %s: id=%d status=%s", order.Side, order.Type, contract.Symbol, status.OrderID, status.Status))
	logrus.WithFields(logrus.Fields{
		"symbol":   contract.Symbol,
		"side":     order.Side,
		"type":     order.Type,
		"quantity": quantity.String(),
		"order_id": status.OrderID,
		"status":   status.Status,
	}).Info("order placed")

	return status, nil
}

func (e *BinanceFuturesExchange) CancelOrder(ctx context.Context, contract entity.Contract, orderID int64) (*entity.OrderStatus, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if e.apiKey == "" || e.apiSecret == "" {
		return nil, fmt.Errorf("binance futures credentials are missing in config")
	}

	params := []queryParam{
		{"symbol", contract.Symbol},
		{"orderId", strconv.FormatInt(orderID, 10)},
	}

	body, err := e.request(ctx, http.MethodDelete, "/fapi/v1/order", e.signedPayload(params))
	if err != nil {
		return nil, err
	}

	status, err := parseOrderResponse(body)
	if err != nil {
		return nil, err
	}

	e.logs.Append(fmt.Sprintf("order %d on %s canceled: status=%s", status.OrderID, contract.Symbol, status.Status))

	return status, nil
}

// GetOrderStatus queries one order by id. The exchange may answer "order
// does not exist" for a resting order whose status has not changed; callers
// must treat that as transient-unknown and retry or keep the last known
// state, never as a cancellation.
func (e *BinanceFuturesExchange) GetOrderStatus(ctx context.Context, contract entity.Contract, orderID int64) (*entity.OrderStatus, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if e.apiKey == "" || e.apiSecret == "" {
		return nil, fmt.Errorf("binance futures credentials are missing in config")
	}

	params := []queryParam{
		{"symbol", contract.Symbol},
		{"orderId", strconv.FormatInt(orderID, 10)},
	}

	body, err := e.request(ctx, http.MethodGet, "/fapi/v1/order", e.signedPayload(params))
	if err != nil {
		return nil, err
	}

	return parseOrderResponse(body)
}

func (e *BinanceFuturesExchange) GetOpenOrders(ctx context.Context, contract entity.Contract) ([]entity.OrderStatus, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if e.apiKey == "" || e.apiSecret == "" {
		return nil, fmt.Errorf("binance futures credentials are missing in config")
	}

	params := []queryParam{{"symbol", contract.Symbol}}

	body, err := e.request(ctx, http.MethodGet, "/fapi/v1/openOrders", e.signedPayload(params))
	if err != nil {
		return nil, err
	}

	var responses []entity.BinanceOrderResponse
	if err := json.Unmarshal(body, &responses); err != nil {
		return nil, fmt.Errorf("open orders parse failed: %w", err)
	}

	orders := make([]entity.OrderStatus, 0, len(responses))
	for _, resp := range responses {
		status, err := entity.OrderStatusFromBinanceOrder(resp)
		if err != nil {
			logrus.Warnf("skipping open order on %s: %v", contract.Symbol, err)
			continue
		}
		orders = append(orders, status)
	}

	return orders, nil
}

func parseOrderResponse(body []byte) (*entity.OrderStatus, error) {
	var resp entity.BinanceOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("order response parse failed: %w", err)
	}

	status, err := entity.OrderStatusFromBinanceOrder(resp)
	if err != nil {
		return nil, err
	}

	return &status, nil
}

// roundToStep rounds value to the nearest multiple of step and truncates the
// result to 8 decimal places, matching what the order endpoint accepts. A
// non-positive step means the contract was never translated from exchange
// info, a zero-value lookup miss most likely.
func roundToStep(value, step decimal.Decimal) (decimal.Decimal, error) {
	if !step.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("rounding step must be positive, got %s", step)
	}

	return value.Div(step).Round(0).Mul(step).Truncate(8), nil
}

// Contracts returns a copy of the cached contract set.
func (e *BinanceFuturesExchange) Contracts() map[string]entity.Contract {
	e.contractsMu.RLock()
	defer e.contractsMu.RUnlock()

	contracts := make(map[string]entity.Contract, len(e.contracts))
	for symbol, contract := range e.contracts {
		contracts[symbol] = contract
	}

	return contracts
}

func (e *BinanceFuturesExchange) ContractList() []entity.Contract {
	e.contractsMu.RLock()
	defer e.contractsMu.RUnlock()

	contracts := make([]entity.Contract, 0, len(e.contracts))
	for _, contract := range e.contracts {
		contracts = append(contracts, contract)
	}

	return contracts
}

// Balances returns a copy of the cached balance set.
func (e *BinanceFuturesExchange) Balances() map[string]entity.Balance {
	e.balancesMu.RLock()
	defer e.balancesMu.RUnlock()

	balances := make(map[string]entity.Balance, len(e.balances))
	for asset, balance := range e.balances {
		balances[asset] = balance
	}

	return balances
}

func (e *BinanceFuturesExchange) Prices() *pricestore.Store {
	return e.prices
}

func (e *BinanceFuturesExchange) Logs() *logqueue.Queue {
	return e.logs
}
