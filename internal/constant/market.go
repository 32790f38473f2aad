package constant

import (
	"fmt"
	"strings"
)

const (
	ProductionEnvironment = "production"

	// ChannelBookTicker is both the stream channel suffix and the event type
	// carried in the "e" field of pushed payloads.
	ChannelBookTicker = "bookTicker"

	TickerStreamName       = "ticker"
	TickerStreamSubjectAll = "ticker.>"
)

func GetTickerStreamSubject(exchange, symbol string) string {
	return fmt.Sprintf("ticker.%s.%s", exchange, strings.ToLower(symbol))
}
