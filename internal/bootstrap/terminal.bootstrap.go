package bootstrap

import (
	"context"
	"strings"
	"time"

	"github.com/krobus00/futures-terminal/internal/config"
	"github.com/krobus00/futures-terminal/internal/entity"
	"github.com/krobus00/futures-terminal/internal/infrastructure"
	"github.com/krobus00/futures-terminal/internal/repository"
	"github.com/krobus00/futures-terminal/internal/service/exchange"
	"github.com/krobus00/futures-terminal/internal/util"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const defaultRefreshInterval = 1500 * time.Millisecond

func StartTerminal(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var snapshots *repository.RedisPriceSnapshotStore
	if dsn := strings.TrimSpace(config.Env.Redis["cache"].CacheDSN); dsn != "" {
		store, err := repository.NewRedisPriceSnapshotStore(dsn)
		util.ContinueOrFatal(err)
		snapshots = store
		logrus.Info("price snapshot mirror enabled")
	}

	var nc *nats.Conn
	var js nats.JetStreamContext
	if strings.TrimSpace(config.Env.NatsJetstream.URL) != "" {
		var err error
		nc, js, err = infrastructure.NewJetstream()
		util.ContinueOrFatal(err)
	}

	connector := exchange.InitBinanceFuturesExchange(ctx, config.Env.Exchanges[string(entity.ExchangeBinanceFutures)], snapshots, js)

	if publisher, ok := exchange.GlobalExchangeRegistry[entity.ExchangeBinanceFutures].(entity.Publisher); ok && js != nil {
		err := publisher.JetstreamEventInit(ctx)
		util.ContinueOrFatal(err)
	}

	refreshInterval := config.Env.Terminal.RefreshInterval
	if refreshInterval <= 0 {
		refreshInterval = defaultRefreshInterval
	}

	// Stand-in for the desktop UI refresh loop: drain the connector log
	// queue and report price coverage on the same fixed interval the UI
	// polls with.
	go func() {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				for _, entry := range connector.Logs().Undisplayed() {
					logrus.WithField("at", entry.At.Format(time.RFC3339)).Info(entry.Message)
				}
				logrus.Debugf("tracking %d symbols", connector.Prices().Len())
			case <-ctx.Done():
				return
			}
		}
	}()

	wait := gracefulShutdown(ctx, config.Env.GracefulShutdownTimeout, map[string]operation{
		"market stream": func(ctx context.Context) error {
			cancel()
			return nil
		},
		"redis snapshot store": func(ctx context.Context) error {
			if snapshots == nil {
				return nil
			}
			return snapshots.Close()
		},
		"nats connection": func(ctx context.Context) error {
			return infrastructure.CloseJetstream(nc)
		},
	})

	<-wait
}
