package entity

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Contract is an immutable futures instrument definition. Tick and lot sizes
// are derived from the exchange precision integers: 10^-pricePrecision and
// 10^-quantityPrecision, both strictly positive.
type Contract struct {
	Symbol            string
	BaseAsset         string
	QuoteAsset        string
	PricePrecision    int32
	QuantityPrecision int32
	TickSize          decimal.Decimal
	LotSize           decimal.Decimal
}

// Balance is a per-asset margin snapshot. The full set is replaced wholesale
// on every balance refresh.
type Balance struct {
	Asset             string
	InitialMargin     decimal.Decimal
	MaintenanceMargin decimal.Decimal
	MarginBalance     decimal.Decimal
	WalletBalance     decimal.Decimal
	UnrealizedPnl     decimal.Decimal
}

// Candle is a single OHLCV bar tagged with the interval it was requested for.
type Candle struct {
	OpenTime time.Time
	Open     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Close    decimal.Decimal
	Volume   decimal.Decimal
	Interval string
}

func ContractFromBinanceInfo(info BinanceContractInfo) (Contract, error) {
	symbol := strings.ToUpper(strings.TrimSpace(info.Symbol))
	if symbol == "" {
		return Contract{}, fmt.Errorf("contract symbol is empty")
	}

	if info.PricePrecision < 0 || info.QuantityPrecision < 0 {
		return Contract{}, fmt.Errorf("invalid precision for %s: price=%d quantity=%d", symbol, info.PricePrecision, info.QuantityPrecision)
	}

	return Contract{
		Symbol:            symbol,
		BaseAsset:         strings.TrimSpace(info.BaseAsset),
		QuoteAsset:        strings.TrimSpace(info.QuoteAsset),
		PricePrecision:    info.PricePrecision,
		QuantityPrecision: info.QuantityPrecision,
		TickSize:          decimal.New(1, -info.PricePrecision),
		LotSize:           decimal.New(1, -info.QuantityPrecision),
	}, nil
}

func BalanceFromBinanceAsset(asset BinanceAssetBalance) (Balance, error) {
	name := strings.TrimSpace(asset.Asset)
	if name == "" {
		return Balance{}, fmt.Errorf("balance asset name is empty")
	}

	initialMargin, err := decimal.NewFromString(asset.InitialMargin)
	if err != nil {
		return Balance{}, fmt.Errorf("invalid initial margin for %s: %w", name, err)
	}

	maintenanceMargin, err := decimal.NewFromString(asset.MaintMargin)
	if err != nil {
		return Balance{}, fmt.Errorf("invalid maintenance margin for %s: %w", name, err)
	}

	marginBalance, err := decimal.NewFromString(asset.MarginBalance)
	if err != nil {
		return Balance{}, fmt.Errorf("invalid margin balance for %s: %w", name, err)
	}

	walletBalance, err := decimal.NewFromString(asset.WalletBalance)
	if err != nil {
		return Balance{}, fmt.Errorf("invalid wallet balance for %s: %w", name, err)
	}

	unrealizedPnl, err := decimal.NewFromString(asset.UnrealizedProfit)
	if err != nil {
		return Balance{}, fmt.Errorf("invalid unrealized pnl for %s: %w", name, err)
	}

	return Balance{
		Asset:             name,
		InitialMargin:     initialMargin,
		MaintenanceMargin: maintenanceMargin,
		MarginBalance:     marginBalance,
		WalletBalance:     walletBalance,
		UnrealizedPnl:     unrealizedPnl,
	}, nil
}

// CandleFromBinanceKline translates one kline row. The exchange returns each
// bar as a JSON array: [openTime, open, high, low, close, volume, ...].
func CandleFromBinanceKline(row []any, interval string) (Candle, error) {
	if len(row) < 6 {
		return Candle{}, fmt.Errorf("kline row has %d fields, want at least 6", len(row))
	}

	openTime, ok := row[0].(float64)
	if !ok {
		return Candle{}, fmt.Errorf("invalid kline open time: %v", row[0])
	}

	fields := make([]decimal.Decimal, 5)
	names := []string{"open", "high", "low", "close", "volume"}
	for i := 0; i < 5; i++ {
		raw, ok := row[i+1].(string)
		if !ok {
			return Candle{}, fmt.Errorf("invalid kline %s: %v", names[i], row[i+1])
		}

		value, err := decimal.NewFromString(raw)
		if err != nil {
			return Candle{}, fmt.Errorf("invalid kline %s: %w", names[i], err)
		}
		fields[i] = value
	}

	return Candle{
		OpenTime: time.UnixMilli(int64(openTime)).UTC(),
		Open:     fields[0],
		High:     fields[1],
		Low:      fields[2],
		Close:    fields[3],
		Volume:   fields[4],
		Interval: interval,
	}, nil
}

// QuoteFromBookTicker parses best bid/ask strings. Malformed, NaN or negative
// prices are rejected so they never reach the price store.
func QuoteFromBookTicker(bidPrice, askPrice string) (Quote, error) {
	bid, err := strconv.ParseFloat(strings.TrimSpace(bidPrice), 64)
	if err != nil {
		return Quote{}, fmt.Errorf("invalid bid price: %w", err)
	}

	ask, err := strconv.ParseFloat(strings.TrimSpace(askPrice), 64)
	if err != nil {
		return Quote{}, fmt.Errorf("invalid ask price: %w", err)
	}

	if math.IsNaN(bid) || math.IsNaN(ask) || bid < 0 || ask < 0 {
		return Quote{}, fmt.Errorf("book ticker prices out of range: bid=%s ask=%s", bidPrice, askPrice)
	}

	return Quote{Bid: bid, Ask: ask}, nil
}
