package entity

import (
	"context"
)

type ExchangeName string

const (
	ExchangeBinanceFutures ExchangeName = "binance_futures"
)

// Exchange is the connector surface consumed by the terminal UI and any
// strategy collaborator. One concrete type per exchange implements it; the
// variant is selected once at configuration time.
type Exchange interface {
	GetContracts(ctx context.Context) (map[string]Contract, error)
	GetBalances(ctx context.Context) (map[string]Balance, error)
	GetHistoricalCandles(ctx context.Context, contract Contract, interval string) ([]Candle, error)
	GetBidAsk(ctx context.Context, contract Contract) (Quote, error)
	PlaceOrder(ctx context.Context, contract Contract, order OrderRequest) (*OrderStatus, error)
	CancelOrder(ctx context.Context, contract Contract, orderID int64) (*OrderStatus, error)
	GetOrderStatus(ctx context.Context, contract Contract, orderID int64) (*OrderStatus, error)
	GetOpenOrders(ctx context.Context, contract Contract) ([]OrderStatus, error)
	SubscribeChannel(contracts []Contract, channel string) error
}

// Quote is the latest best bid/ask pair for a symbol. Bid and ask always
// travel together so readers never observe a half-updated pair.
type Quote struct {
	Bid float64 `json:"bid"`
	Ask float64 `json:"ask"`
}
