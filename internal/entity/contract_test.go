package entity

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ContractFromBinanceInfo(t *testing.T) {
	t.Run("derives tick and lot size from precision", func(t *testing.T) {
		contract, err := ContractFromBinanceInfo(BinanceContractInfo{
			Symbol:            "btcusdt",
			BaseAsset:         "BTC",
			QuoteAsset:        "USDT",
			PricePrecision:    1,
			QuantityPrecision: 3,
		})
		require.NoError(t, err)

		assert.Equal(t, "BTCUSDT", contract.Symbol)
		assert.True(t, contract.TickSize.Equal(decimal.RequireFromString("0.1")))
		assert.True(t, contract.LotSize.Equal(decimal.RequireFromString("0.001")))
	})

	t.Run("tick and lot size are 10^-precision for every precision", func(t *testing.T) {
		for p := int32(0); p <= 8; p++ {
			contract, err := ContractFromBinanceInfo(BinanceContractInfo{
				Symbol:            "ETHUSDT",
				PricePrecision:    p,
				QuantityPrecision: p,
			})
			require.NoError(t, err)

			expected := decimal.New(1, -p)
			assert.True(t, contract.TickSize.Equal(expected), "tick size for precision %d", p)
			assert.True(t, contract.LotSize.Equal(expected), "lot size for precision %d", p)
			assert.True(t, contract.TickSize.IsPositive())
			assert.True(t, contract.LotSize.IsPositive())
		}
	})

	t.Run("rejects empty symbol", func(t *testing.T) {
		_, err := ContractFromBinanceInfo(BinanceContractInfo{Symbol: "  "})
		assert.Error(t, err)
	})

	t.Run("rejects negative precision", func(t *testing.T) {
		_, err := ContractFromBinanceInfo(BinanceContractInfo{Symbol: "BTCUSDT", PricePrecision: -1})
		assert.Error(t, err)
	})
}

func Test_BalanceFromBinanceAsset(t *testing.T) {
	t.Run("translates a full asset record", func(t *testing.T) {
		balance, err := BalanceFromBinanceAsset(BinanceAssetBalance{
			Asset:            "USDT",
			InitialMargin:    "12.5",
			MaintMargin:      "6.25",
			MarginBalance:    "1000.75",
			WalletBalance:    "990.5",
			UnrealizedProfit: "-10.25",
		})
		require.NoError(t, err)

		assert.Equal(t, "USDT", balance.Asset)
		assert.True(t, balance.InitialMargin.Equal(decimal.RequireFromString("12.5")))
		assert.True(t, balance.MaintenanceMargin.Equal(decimal.RequireFromString("6.25")))
		assert.True(t, balance.MarginBalance.Equal(decimal.RequireFromString("1000.75")))
		assert.True(t, balance.WalletBalance.Equal(decimal.RequireFromString("990.5")))
		assert.True(t, balance.UnrealizedPnl.Equal(decimal.RequireFromString("-10.25")))
	})

	t.Run("rejects a malformed numeric field", func(t *testing.T) {
		_, err := BalanceFromBinanceAsset(BinanceAssetBalance{
			Asset:            "USDT",
			InitialMargin:    "0",
			MaintMargin:      "0",
			MarginBalance:    "not-a-number",
			WalletBalance:    "0",
			UnrealizedProfit: "0",
		})
		assert.Error(t, err)
	})
}

func Test_CandleFromBinanceKline(t *testing.T) {
	t.Run("translates one kline row", func(t *testing.T) {
		row := []any{float64(1696118400000), "27000.1", "27100.2", "26900.3", "27050.4", "1250.5", "ignored"}

		candle, err := CandleFromBinanceKline(row, "1h")
		require.NoError(t, err)

		assert.Equal(t, time.UnixMilli(1696118400000).UTC(), candle.OpenTime)
		assert.True(t, candle.Open.Equal(decimal.RequireFromString("27000.1")))
		assert.True(t, candle.High.Equal(decimal.RequireFromString("27100.2")))
		assert.True(t, candle.Low.Equal(decimal.RequireFromString("26900.3")))
		assert.True(t, candle.Close.Equal(decimal.RequireFromString("27050.4")))
		assert.True(t, candle.Volume.Equal(decimal.RequireFromString("1250.5")))
		assert.Equal(t, "1h", candle.Interval)
	})

	t.Run("rejects a short row", func(t *testing.T) {
		_, err := CandleFromBinanceKline([]any{float64(1696118400000), "27000.1"}, "1h")
		assert.Error(t, err)
	})

	t.Run("rejects a non-numeric price field", func(t *testing.T) {
		row := []any{float64(1696118400000), "27000.1", "bad", "26900.3", "27050.4", "1250.5"}
		_, err := CandleFromBinanceKline(row, "1h")
		assert.Error(t, err)
	})
}

func Test_QuoteFromBookTicker(t *testing.T) {
	tests := []struct {
		name        string
		bid         string
		ask         string
		expectError bool
	}{
		{name: "valid prices", bid: "50000.10", ask: "50000.20"},
		{name: "zero prices allowed", bid: "0", ask: "0"},
		{name: "malformed bid", bid: "abc", ask: "1", expectError: true},
		{name: "malformed ask", bid: "1", ask: "", expectError: true},
		{name: "negative bid", bid: "-1", ask: "1", expectError: true},
		{name: "NaN ask", bid: "1", ask: "NaN", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quote, err := QuoteFromBookTicker(tt.bid, tt.ask)
			if tt.expectError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.GreaterOrEqual(t, quote.Bid, 0.0)
			assert.GreaterOrEqual(t, quote.Ask, 0.0)
		})
	}
}

func Test_OrderStatusFromBinanceOrder(t *testing.T) {
	t.Run("round trips the exchange record", func(t *testing.T) {
		status, err := OrderStatusFromBinanceOrder(BinanceOrderResponse{
			OrderID:       987654,
			ClientOrderID: "client-42",
			Symbol:        "btcusdt",
			Status:        "FILLED",
			AvgPrice:      "104999.75",
			ExecutedQty:   "0.123",
			Price:         "105000",
			Side:          "BUY",
			Type:          "LIMIT",
			TimeInForce:   "GTC",
		})
		require.NoError(t, err)

		assert.Equal(t, int64(987654), status.OrderID)
		assert.Equal(t, "client-42", status.ClientOrderID.String)
		assert.Equal(t, "BTCUSDT", status.Symbol)
		assert.Equal(t, "FILLED", status.Status)
		assert.True(t, status.AvgFillPrice.Equal(decimal.RequireFromString("104999.75")))
		assert.True(t, status.ExecutedQuantity.Equal(decimal.RequireFromString("0.123")))
		assert.Equal(t, OrderSideBuy, status.Side)
		assert.Equal(t, OrderTypeLimit, status.Type)
		assert.Equal(t, "GTC", status.TimeInForce.String)
	})

	t.Run("empty avg price means unfilled", func(t *testing.T) {
		status, err := OrderStatusFromBinanceOrder(BinanceOrderResponse{OrderID: 1, Status: "NEW", AvgPrice: ""})
		require.NoError(t, err)
		assert.True(t, status.AvgFillPrice.IsZero())
	})

	t.Run("rejects missing order id", func(t *testing.T) {
		_, err := OrderStatusFromBinanceOrder(BinanceOrderResponse{Status: "NEW"})
		assert.Error(t, err)
	})

	t.Run("rejects negative avg price", func(t *testing.T) {
		_, err := OrderStatusFromBinanceOrder(BinanceOrderResponse{OrderID: 1, AvgPrice: "-5"})
		assert.Error(t, err)
	})
}
