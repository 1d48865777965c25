// Command lm-engine runs the liquidity-mining market-making strategy
// against a single Binance spot account until it receives SIGINT/SIGTERM.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mExOms/tradecore/internal/config"
	"github.com/mExOms/tradecore/internal/eventbus"
	"github.com/mExOms/tradecore/internal/gateway/binanceadapter"
	"github.com/mExOms/tradecore/internal/strategies/lm"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.WithField("component", "lm-engine")

	configPath := os.Getenv("LM_CONFIG_PATH")
	if configPath == "" {
		configPath = "config/lm.yaml"
	}

	cfg, err := config.LoadLM(configPath)
	if err != nil {
		log.Fatalf("lm-engine: load config: %v", err)
	}

	apiKey := os.Getenv("LM_BINANCE_API_KEY")
	apiSecret := os.Getenv("LM_BINANCE_API_SECRET")
	testnet := os.Getenv("LM_BINANCE_TESTNET") == "true"
	gw := binanceadapter.NewSpotGateway(apiKey, apiSecret, testnet)

	var feed *lm.DynamicFeedClient
	if cfg.DynamicSpread {
		feed = lm.NewDynamicFeedClient(os.Getenv("LM_MARKET_BAND_URL"), nil)
	}

	strategy := lm.NewStrategy(cfg, gw, feed, logger)

	var bus *eventbus.Client
	if url := os.Getenv("LM_NATS_URL"); url != "" {
		bus, err = eventbus.NewClient(&eventbus.Config{
			URL:      url,
			ClientID: "lm-engine",
			Streams:  eventbus.DefaultStreams(),
		})
		if err != nil {
			logger.WithError(err).Warn("event bus unavailable, continuing without it")
		} else {
			defer bus.Close()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	logger.WithField("markets", cfg.Markets).Info("lm-engine started")

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case now := <-ticker.C:
			strategy.Tick(ctx, now)
			if bus != nil {
				if err := bus.PublishStatus("lm", strategy.StatusReport()); err != nil {
					logger.WithError(err).Debug("status publish failed")
				}
			}
		}
	}

	logger.Info("cancelling all live orders before exit")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	cancelAllLiveOrders(shutdownCtx, gw, logger)

	logger.Info("lm-engine stopped")
}

func cancelAllLiveOrders(ctx context.Context, gw *binanceadapter.SpotGateway, logger *logrus.Entry) {
	orders, err := gw.LiveOrders(ctx)
	if err != nil {
		logger.WithError(err).Warn("failed to list live orders during shutdown")
		return
	}
	for _, o := range orders {
		if err := gw.Cancel(ctx, o.Market, o.ClientOrderID); err != nil {
			logger.WithError(err).WithField("order", o.ClientOrderID).Warn("failed to cancel order during shutdown")
		}
	}
}
