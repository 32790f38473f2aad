package entity

import (
	"fmt"
	"strings"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
)

type OrderType string
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"

	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
)

type OrderRequest struct {
	Side          OrderSide
	Type          OrderType
	Quantity      decimal.Decimal
	Price         *decimal.Decimal
	TimeInForce   null.String
	ClientOrderID null.String
}

// OrderStatus is a snapshot of an order as reported by the exchange. Each
// query yields a fresh value; nothing is mutated in place. An AvgFillPrice of
// zero means unfilled.
type OrderStatus struct {
	OrderID          int64
	ClientOrderID    null.String
	Symbol           string
	Status           string
	AvgFillPrice     decimal.Decimal
	ExecutedQuantity decimal.Decimal
	Price            decimal.Decimal
	Side             OrderSide
	Type             OrderType
	TimeInForce      null.String
}

func OrderStatusFromBinanceOrder(resp BinanceOrderResponse) (OrderStatus, error) {
	if resp.OrderID == 0 {
		return OrderStatus{}, fmt.Errorf("order response missing order id")
	}

	avgFillPrice, err := decimalFieldOrZero(resp.AvgPrice)
	if err != nil {
		return OrderStatus{}, fmt.Errorf("invalid avg fill price: %w", err)
	}
	if avgFillPrice.IsNegative() {
		return OrderStatus{}, fmt.Errorf("negative avg fill price: %s", resp.AvgPrice)
	}

	executedQuantity, err := decimalFieldOrZero(resp.ExecutedQty)
	if err != nil {
		return OrderStatus{}, fmt.Errorf("invalid executed quantity: %w", err)
	}

	price, err := decimalFieldOrZero(resp.Price)
	if err != nil {
		return OrderStatus{}, fmt.Errorf("invalid order price: %w", err)
	}

	clientOrderID := null.NewString(strings.TrimSpace(resp.ClientOrderID), strings.TrimSpace(resp.ClientOrderID) != "")
	timeInForce := null.NewString(strings.TrimSpace(resp.TimeInForce), strings.TrimSpace(resp.TimeInForce) != "")

	return OrderStatus{
		OrderID:          resp.OrderID,
		ClientOrderID:    clientOrderID,
		Symbol:           strings.ToUpper(strings.TrimSpace(resp.Symbol)),
		Status:           strings.TrimSpace(resp.Status),
		AvgFillPrice:     avgFillPrice,
		ExecutedQuantity: executedQuantity,
		Price:            price,
		Side:             OrderSide(resp.Side),
		Type:             OrderType(resp.Type),
		TimeInForce:      timeInForce,
	}, nil
}

func decimalFieldOrZero(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(trimmed)
}
