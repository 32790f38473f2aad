package entity

// Wire shapes of the Binance USD-M futures API. Numeric fields arrive as
// strings and are parsed defensively by the translation functions in
// contract.go and order.go.

type BinanceExchangeInfo struct {
	Symbols []BinanceContractInfo `json:"symbols"`
}

type BinanceContractInfo struct {
	Symbol            string `json:"symbol"`
	BaseAsset         string `json:"baseAsset"`
	QuoteAsset        string `json:"quoteAsset"`
	PricePrecision    int32  `json:"pricePrecision"`
	QuantityPrecision int32  `json:"quantityPrecision"`
}

type BinanceAccountInfo struct {
	Assets []BinanceAssetBalance `json:"assets"`
}

type BinanceAssetBalance struct {
	Asset            string `json:"asset"`
	InitialMargin    string `json:"initialMargin"`
	MaintMargin      string `json:"maintMargin"`
	MarginBalance    string `json:"marginBalance"`
	WalletBalance    string `json:"walletBalance"`
	UnrealizedProfit string `json:"unrealizedProfit"`
}

// BinanceBookTicker is the REST best bid/ask response.
type BinanceBookTicker struct {
	Symbol   string `json:"symbol"`
	BidPrice string `json:"bidPrice"`
	AskPrice string `json:"askPrice"`
}

// BinanceBookTickerEvent is the websocket push variant of the same data.
type BinanceBookTickerEvent struct {
	Event    string `json:"e"`
	Symbol   string `json:"s"`
	BidPrice string `json:"b"`
	AskPrice string `json:"a"`
}

type BinanceOrderResponse struct {
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Symbol        string `json:"symbol"`
	Status        string `json:"status"`
	AvgPrice      string `json:"avgPrice"`
	ExecutedQty   string `json:"executedQty"`
	Price         string `json:"price"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	TimeInForce   string `json:"timeInForce"`
}
