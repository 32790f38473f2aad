/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/futures-terminal/internal/bootstrap"
	"github.com/spf13/cobra"
)

// terminalCmd represents the terminal command
var terminalCmd = &cobra.Command{
	Use:   "terminal",
	Short: "Run the trading terminal connector",
	Long: `Terminal starts the Binance USD-M futures connector: it bootstraps the
contract set and account balances over REST, starts the websocket book-ticker
feed in the background, and drains the connector log queue on a fixed refresh
interval the way the desktop UI does.

Optional integrations, enabled through config:
- Redis mirror of the latest bid/ask per symbol
- NATS JetStream fan-out of book-ticker events for strategy backends`,
	Run: bootstrap.StartTerminal,
}

func init() {
	rootCmd.AddCommand(terminalCmd)
}
