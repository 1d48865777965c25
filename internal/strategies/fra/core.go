package fra

import (
	"context"
	"fmt"
	"time"

	"github.com/mExOms/tradecore/internal/executor"
	"github.com/mExOms/tradecore/internal/strategies/engine"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// TokenPhase is the per-token state machine of §4.7.
type TokenPhase int

const (
	PhaseIdle TokenPhase = iota
	PhaseEntering
	PhaseOpen
	PhaseClosing
)

func (p TokenPhase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseEntering:
		return "Entering"
	case PhaseOpen:
		return "Open"
	case PhaseClosing:
		return "Closing"
	default:
		return "Unknown"
	}
}

// ActiveArbitrage is a live funding-rate arbitrage position for one token,
// per §3's Active arbitrage record.
type ActiveArbitrage struct {
	Token           string
	ConnectorLong   string
	ConnectorShort  string
	Side            engine.Side
	ExecutorIDs     []string
	FundingPayments []decimal.Decimal
	OpenedAt        time.Time
}

// StoppedArbitrage is a closed arbitrage retained for status reporting
// only (§2c Stopped-arbitrage history); never persisted.
type StoppedArbitrage struct {
	ActiveArbitrage
	ClosedAt time.Time
	Reason   string
}

// Strategy is the FRA per-token engine (§4.7). One Strategy instance
// coordinates a set of PerpetualGateways (one per connector) and a
// position executor collaborator.
type Strategy struct {
	cfg       Config
	gateways  map[string]engine.PerpetualGateway
	positions executor.Collaborator

	active  map[string]*ActiveArbitrage
	stopped map[string][]StoppedArbitrage
	phase   map[string]TokenPhase

	logger *logrus.Entry
}

// NewStrategy builds an FRA strategy instance. gateways must contain one
// entry per connector named in cfg.Connectors.
func NewStrategy(cfg Config, gateways map[string]engine.PerpetualGateway, positions executor.Collaborator, logger *logrus.Entry) *Strategy {
	s := &Strategy{
		cfg:       cfg,
		gateways:  gateways,
		positions: positions,
		active:    make(map[string]*ActiveArbitrage),
		stopped:   make(map[string][]StoppedArbitrage),
		phase:     make(map[string]TokenPhase),
		logger:    logger.WithField("strategy", "fra"),
	}
	for _, t := range cfg.Tokens {
		s.phase[t] = PhaseIdle
	}
	return s
}

// Tick drives one cycle: create proposals for tokens with no active
// arbitrage, then evaluate exit conditions for tokens with one.
func (s *Strategy) Tick(ctx context.Context, now time.Time) {
	for _, token := range s.cfg.Tokens {
		if _, has := s.active[token]; !has {
			s.tryEnter(ctx, now, token)
		}
	}
	for token := range s.active {
		s.evaluateExit(ctx, now, token)
	}
}

func (s *Strategy) fundingReport(ctx context.Context, token string) (map[string]engine.FundingInfo, error) {
	report := make(map[string]engine.FundingInfo, len(s.cfg.Connectors))
	for _, conn := range s.cfg.Connectors {
		gw, ok := s.gateways[conn]
		if !ok {
			return nil, fmt.Errorf("fra: no gateway configured for connector %q", conn)
		}
		market := engine.Market(s.cfg.TradingPair(token, conn))
		info, err := gw.GetFundingInfo(ctx, market)
		if err != nil {
			return nil, fmt.Errorf("fra: funding info for %s on %s: %w", token, conn, err)
		}
		if _, configured := s.cfg.FundingIntervalSecs[conn]; configured || info.IntervalSecs <= 0 {
			info.IntervalSecs = s.cfg.IntervalFor(conn)
		}
		report[conn] = info
	}
	return report, nil
}

func (s *Strategy) tryEnter(ctx context.Context, now time.Time, token string) {
	report, err := s.fundingReport(ctx, token)
	if err != nil {
		s.logger.WithField("token", token).WithError(err).Warn("failed to build funding report")
		return
	}

	combo, ok := BestCombination(s.cfg.Connectors, report)
	if !ok {
		return
	}
	if combo.ExpectedProfitability.LessThan(s.cfg.MinFundingRateProfitability) {
		return
	}

	if s.cfg.TradeProfitabilityConditionToEnter {
		current, err := s.currentProfitability(ctx, token, combo)
		if err != nil {
			s.logger.WithField("token", token).WithError(err).Warn("failed to estimate trade profitability, skipping entry")
			return
		}
		if current.IsNegative() {
			s.logger.WithField("token", token).
				WithField("combination", combo.ConnectorA+"/"+combo.ConnectorB).
				Info("trade profitability negative, skipping entry")
			return
		}
	}

	s.logger.WithField("token", token).
		WithField("combination", combo.ConnectorA+"/"+combo.ConnectorB).
		WithField("side", combo.Side).
		WithField("expected_profitability", combo.ExpectedProfitability).
		Info("starting funding rate arbitrage executors")

	connLong, connShort := combo.ConnectorA, combo.ConnectorB
	if combo.Side != engine.SideBuy {
		connLong, connShort = combo.ConnectorB, combo.ConnectorA
	}

	marketLong := engine.Market(s.cfg.TradingPair(token, connLong))
	marketShort := engine.Market(s.cfg.TradingPair(token, connShort))

	longID := token + ":" + connLong + ":long"
	shortID := token + ":" + connShort + ":short"

	// Both legs carry the same amount, sized off connector A's mid price.
	amount := s.positionAmount(ctx, engine.Market(s.cfg.TradingPair(token, combo.ConnectorA)), combo.ConnectorA)

	longCfg := executor.Config{
		Connector: connLong,
		Market:    marketLong,
		Side:      engine.SideBuy,
		Amount:    amount,
		Leverage:  s.cfg.Leverage,
	}
	shortCfg := executor.Config{
		Connector: connShort,
		Market:    marketShort,
		Side:      engine.SideSell,
		Amount:    amount,
		Leverage:  s.cfg.Leverage,
	}

	// Sequential create with rollback on the second leg's failure, not a single
	// atomic dispatch; no partial open survives either way.
	if err := s.positions.Create(ctx, executor.CreateAction{ID: longID, Config: longCfg}); err != nil {
		s.logger.WithField("token", token).WithError(err).Warn("failed to create long executor")
		return
	}
	if err := s.positions.Create(ctx, executor.CreateAction{ID: shortID, Config: shortCfg}); err != nil {
		s.logger.WithField("token", token).WithError(err).Warn("failed to create short executor")
		_ = s.positions.Stop(ctx, executor.StopAction{ID: longID})
		return
	}

	s.active[token] = &ActiveArbitrage{
		Token:          token,
		ConnectorLong:  connLong,
		ConnectorShort: connShort,
		Side:           combo.Side,
		ExecutorIDs:    []string{longID, shortID},
		OpenedAt:       now,
	}
	s.phase[token] = PhaseOpen
}

func (s *Strategy) positionAmount(ctx context.Context, market engine.Market, connector string) decimal.Decimal {
	gw, ok := s.gateways[connector]
	if !ok {
		return decimal.Zero
	}
	mid, valid, err := gw.MidPrice(ctx, market)
	if err != nil || !valid || !mid.IsPositive() {
		return decimal.Zero
	}
	return s.cfg.PositionSizeQuote.Div(mid)
}

func (s *Strategy) currentProfitability(ctx context.Context, token string, combo Combination) (decimal.Decimal, error) {
	gwA, okA := s.gateways[combo.ConnectorA]
	gwB, okB := s.gateways[combo.ConnectorB]
	if !okA || !okB {
		return decimal.Zero, fmt.Errorf("fra: missing gateway for %s or %s", combo.ConnectorA, combo.ConnectorB)
	}

	marketA := engine.Market(s.cfg.TradingPair(token, combo.ConnectorA))
	marketB := engine.Market(s.cfg.TradingPair(token, combo.ConnectorB))

	priceA, ok, err := gwA.Price(ctx, marketA, combo.Side == engine.SideBuy)
	if err != nil || !ok {
		return decimal.Zero, fmt.Errorf("fra: price unavailable on %s", combo.ConnectorA)
	}
	priceB, ok, err := gwB.Price(ctx, marketB, combo.Side != engine.SideBuy)
	if err != nil || !ok {
		return decimal.Zero, fmt.Errorf("fra: price unavailable on %s", combo.ConnectorB)
	}

	feeA, err := gwA.EstimateFee(ctx, marketA, engine.SideBuy, engine.OrderTypeMarket)
	if err != nil {
		return decimal.Zero, err
	}
	feeB, err := gwB.EstimateFee(ctx, marketB, engine.SideBuy, engine.OrderTypeMarket)
	if err != nil {
		return decimal.Zero, err
	}

	return CurrentProfitabilityAfterFees(priceA, priceB, feeA.Percent, feeB.Percent, combo.Side), nil
}

func (s *Strategy) evaluateExit(ctx context.Context, now time.Time, token string) {
	arb := s.active[token]

	reports, err := s.positions.Report(ctx, arb.ExecutorIDs)
	if err != nil {
		s.logger.WithField("token", token).WithError(err).Warn("failed to query executor reports")
		return
	}

	var executorsPnL decimal.Decimal
	for _, r := range reports {
		executorsPnL = executorsPnL.Add(r.NetPnLQuote)
	}

	var fundingPnL decimal.Decimal
	for _, p := range arb.FundingPayments {
		fundingPnL = fundingPnL.Add(p)
	}

	takeProfitThreshold := s.cfg.ProfitabilityToTakeProfit.Mul(s.cfg.PositionSizeQuote)
	takeProfit := executorsPnL.Add(fundingPnL).GreaterThan(takeProfitThreshold)

	fundingReport, err := s.fundingReport(ctx, token)
	var stopLoss bool
	if err == nil {
		rateLong := NormalizedRatePerSecond(fundingReport[arb.ConnectorLong])
		rateShort := NormalizedRatePerSecond(fundingReport[arb.ConnectorShort])
		diff := rateShort.Sub(rateLong).Mul(decimal.NewFromInt(FundingProfitabilityIntervalSeconds))
		stopLoss = diff.LessThan(s.cfg.FundingRateDiffStopLoss)
	}

	switch {
	case takeProfit:
		s.closeArbitrage(ctx, now, token, "take_profit")
	case stopLoss:
		s.closeArbitrage(ctx, now, token, "stop_loss")
	}
}

func (s *Strategy) closeArbitrage(ctx context.Context, now time.Time, token, reason string) {
	arb := s.active[token]
	s.phase[token] = PhaseClosing

	s.logger.WithField("token", token).WithField("reason", reason).Info("closing funding rate arbitrage")

	for _, id := range arb.ExecutorIDs {
		if err := s.positions.Stop(ctx, executor.StopAction{ID: id}); err != nil {
			s.logger.WithField("token", token).WithField("executor", id).WithError(err).Warn("failed to stop executor")
		}
	}

	s.stopped[token] = append(s.stopped[token], StoppedArbitrage{ActiveArbitrage: *arb, ClosedAt: now, Reason: reason})
	delete(s.active, token)
	s.phase[token] = PhaseIdle
}

// OnFundingPayment records a received funding payment against the active
// arbitrage for token, if any (§3 Active arbitrage, §2c).
func (s *Strategy) OnFundingPayment(token string, amount decimal.Decimal) {
	if arb, ok := s.active[token]; ok {
		arb.FundingPayments = append(arb.FundingPayments, amount)
	}
}

// Phase returns the current state-machine phase for a token.
func (s *Strategy) Phase(token string) TokenPhase {
	return s.phase[token]
}

// Active returns the active arbitrage record for a token, if any.
func (s *Strategy) Active(token string) (ActiveArbitrage, bool) {
	arb, ok := s.active[token]
	if !ok {
		return ActiveArbitrage{}, false
	}
	return *arb, true
}

// History returns the closed-arbitrage history for a token.
func (s *Strategy) History(token string) []StoppedArbitrage {
	return s.stopped[token]
}
