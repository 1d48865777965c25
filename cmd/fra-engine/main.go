// Command fra-engine runs the cross-venue funding-rate arbitrage strategy
// until it receives SIGINT/SIGTERM. Connector credentials are read per
// configured connector name from FRA_<CONNECTOR>_API_KEY/API_SECRET.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mExOms/tradecore/internal/config"
	"github.com/mExOms/tradecore/internal/eventbus"
	"github.com/mExOms/tradecore/internal/executor"
	"github.com/mExOms/tradecore/internal/gateway/binanceadapter"
	"github.com/mExOms/tradecore/internal/gateway/bybitadapter"
	"github.com/mExOms/tradecore/internal/strategies/engine"
	"github.com/mExOms/tradecore/internal/strategies/fra"
	"github.com/sirupsen/logrus"
)

// newConnectorGateway builds the perpetual gateway for connector by name.
// binance_perpetual and bybit_perpetual are the two venues this module
// ships adapters for; an unrecognized connector name is a configuration
// error caught at startup rather than at first use.
func newConnectorGateway(connector, apiKey, apiSecret string, testnet bool) (engine.PerpetualGateway, error) {
	switch connector {
	case "binance_perpetual":
		return binanceadapter.NewFuturesGateway(apiKey, apiSecret, testnet), nil
	case "bybit_perpetual":
		return bybitadapter.NewFuturesGateway(apiKey, apiSecret, testnet), nil
	default:
		return nil, fmt.Errorf("fra-engine: unknown connector %q (want binance_perpetual or bybit_perpetual)", connector)
	}
}

func main() {
	logger := logrus.WithField("component", "fra-engine")

	configPath := os.Getenv("FRA_CONFIG_PATH")
	if configPath == "" {
		configPath = "config/fra.yaml"
	}

	cfg, err := config.LoadFRA(configPath)
	if err != nil {
		log.Fatalf("fra-engine: load config: %v", err)
	}

	gateways := make(map[string]engine.PerpetualGateway, len(cfg.Connectors))
	for _, connector := range cfg.Connectors {
		prefix := "FRA_" + strings.ToUpper(connector)
		apiKey := os.Getenv(prefix + "_API_KEY")
		apiSecret := os.Getenv(prefix + "_API_SECRET")
		testnet := os.Getenv(prefix + "_TESTNET") == "true"
		gw, err := newConnectorGateway(connector, apiKey, apiSecret, testnet)
		if err != nil {
			log.Fatalf("fra-engine: %v", err)
		}
		gateways[connector] = gw
	}

	positions := executor.NewGatewayCollaborator(gateways, logger)
	strategy := fra.NewStrategy(cfg, gateways, positions, logger)

	var bus *eventbus.Client
	if url := os.Getenv("FRA_NATS_URL"); url != "" {
		bus, err = eventbus.NewClient(&eventbus.Config{
			URL:      url,
			ClientID: "fra-engine",
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

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	logger.WithField("tokens", cfg.Tokens).Info("fra-engine started")

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case now := <-ticker.C:
			strategy.Tick(ctx, now)
			if bus != nil {
				if err := bus.PublishStatus("fra", strategy.StatusReport()); err != nil {
					logger.WithError(err).Debug("status publish failed")
				}
			}
		}
	}

	logger.Info("cancelling all live orders before exit")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	for name, gw := range gateways {
		orders, err := gw.LiveOrders(shutdownCtx)
		if err != nil {
			logger.WithError(err).WithField("connector", name).Warn("failed to list live orders during shutdown")
			continue
		}
		for _, o := range orders {
			if err := gw.Cancel(shutdownCtx, o.Market, o.ClientOrderID); err != nil {
				logger.WithError(err).WithField("order", o.ClientOrderID).Warn("failed to cancel order during shutdown")
			}
		}
	}

	logger.Info("fra-engine stopped")
}
