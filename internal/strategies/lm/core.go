package lm

import (
	"context"
	"time"

	"github.com/mExOms/tradecore/internal/strategies/engine"
	"github.com/mExOms/tradecore/pkg/cache"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// MarketPhase is the per-market state machine of §4.6.
type MarketPhase int

const (
	PhaseUnready MarketPhase = iota
	PhaseActiveIdle
	PhaseQuoting
	PhaseActive
	PhaseCancelling
	PhasePaused
)

func (p MarketPhase) String() string {
	switch p {
	case PhaseUnready:
		return "Unready"
	case PhaseActiveIdle:
		return "ActiveIdle"
	case PhaseQuoting:
		return "Quoting"
	case PhaseActive:
		return "Active"
	case PhaseCancelling:
		return "Cancelling"
	case PhasePaused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// Strategy is the LM per-tick engine (§4.6). One Strategy instance trades
// every market in its Config against a single Gateway. Tick is the only
// entry point; it must be called from a single goroutine (the scheduling
// model is single-threaded cooperative — see §5).
type Strategy struct {
	cfg       Config
	gateway   engine.Gateway
	feed      *DynamicFeedClient
	allocator BudgetAllocator

	tradingStarted  bool
	budgetAllocated bool

	buyBudgets   map[engine.Market]decimal.Decimal
	sellBudgets  map[engine.Market]decimal.Decimal
	refreshTimes map[engine.Market]time.Time
	volEstimators map[engine.Market]*VolatilityEstimator
	phase        map[engine.Market]MarketPhase

	warnLimiter      *cache.RateLimiter
	logger           *logrus.Entry
	lastLiveByMarket map[engine.Market][]engine.LiveOrder
}

// NewStrategy builds an LM strategy instance. feed may be nil when
// cfg.DynamicSpread is false.
func NewStrategy(cfg Config, gw engine.Gateway, feed *DynamicFeedClient, logger *logrus.Entry) *Strategy {
	s := &Strategy{
		cfg:           cfg,
		gateway:       gw,
		feed:          feed,
		allocator:     BudgetAllocator{Token: cfg.Token},
		buyBudgets:    make(map[engine.Market]decimal.Decimal),
		sellBudgets:   make(map[engine.Market]decimal.Decimal),
		refreshTimes:  make(map[engine.Market]time.Time),
		volEstimators: make(map[engine.Market]*VolatilityEstimator),
		phase:         make(map[engine.Market]MarketPhase),
		warnLimiter:   cache.NewRateLimiter(1, cfg.VolatilityIntervalDuration()),
		logger:        logger.WithField("strategy", "lm"),
	}
	for _, m := range cfg.Markets {
		s.volEstimators[m] = NewVolatilityEstimator(cfg.VolatilityInterval, cfg.AvgVolatilityPeriod)
		s.phase[m] = PhaseUnready
	}
	return s
}

// VolatilityIntervalDuration exposes the configured sample interval as a
// time.Duration, used to bound the warn-once-per-market rate limiter.
func (c Config) VolatilityIntervalDuration() time.Duration {
	return time.Duration(c.VolatilityInterval) * time.Second
}

// Tick drives one full cycle of the control flow in §2: readiness,
// book validation, proposal generation, inventory skew, the budget
// constraint, refresh/tolerance, and dispatch. No error propagates out;
// every failure becomes a logged warning and the corresponding market (or
// leg) is skipped for this tick.
func (s *Strategy) Tick(ctx context.Context, now time.Time) {
	if !s.tradingStarted {
		s.attemptStart(ctx)
		if !s.tradingStarted {
			return
		}
	}

	mids := s.refreshMarketBooks(ctx)

	if !s.budgetAllocated {
		s.bootstrapBudgets(ctx, mids)
	}

	live, err := s.gateway.LiveOrders(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("failed to list live orders")
		live = nil
	}

	proposals := s.buildProposals(ctx, mids)

	if s.cfg.InventorySkewEnabled {
		s.applyInventorySkew(proposals, mids)
	}

	balances, err := s.gateway.AllBalances(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("failed to read balances, skipping tick")
		return
	}
	adjusted := AdjustedAvailableBalances(balances, live)
	s.applyBudgetConstraint(ctx, proposals, adjusted)

	s.reconcile(ctx, now, proposals, live)
}

func (s *Strategy) attemptStart(ctx context.Context) {
	ready, err := s.gateway.Ready(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("gateway readiness check failed")
		return
	}
	if !ready {
		return
	}

	live, err := s.gateway.LiveOrders(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("failed to list live orders at startup")
		return
	}
	if len(live) != 0 {
		for _, o := range live {
			if err := s.gateway.Cancel(ctx, o.Market, o.ClientOrderID); err != nil {
				s.logger.WithField("market", o.Market).WithError(err).Warn("failed to cancel restored order")
			}
		}
		return
	}

	s.tradingStarted = true
	for _, m := range s.cfg.Markets {
		s.phase[m] = PhaseActiveIdle
	}
}

// refreshMarketBooks fetches the current mid price for every configured
// market, appends it to that market's volatility buffer, and maintains
// the paused set for markets whose book has no valid mid (§4.6
// Readiness). Only markets with a currently valid mid are returned.
func (s *Strategy) refreshMarketBooks(ctx context.Context) map[engine.Market]decimal.Decimal {
	mids := make(map[engine.Market]decimal.Decimal, len(s.cfg.Markets))

	for _, m := range s.cfg.Markets {
		mid, ok, err := s.gateway.MidPrice(ctx, m)
		if err != nil {
			s.logger.WithField("market", m).WithError(err).Warn("gateway rejected mid price request")
			continue
		}
		if !ok {
			if s.phase[m] != PhasePaused {
				s.logger.WithField("market", m).Warn("order book empty, pausing market")
			}
			s.phase[m] = PhasePaused
			continue
		}
		if s.phase[m] == PhasePaused {
			s.logger.WithField("market", m).Info("order book recovered, resuming market")
			s.phase[m] = PhaseActiveIdle
		}

		mids[m] = mid
		s.volEstimators[m].AddSample(mid)
	}

	return mids
}

func (s *Strategy) bootstrapBudgets(ctx context.Context, mids map[engine.Market]decimal.Decimal) {
	var active []engine.Market
	for m := range mids {
		active = append(active, m)
	}
	if len(active) == 0 {
		return
	}

	balances, err := s.gateway.AllBalances(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("failed to read balances for budget bootstrap")
		return
	}

	portfolioValue := s.allocator.TotalPortfolioValue(active, mids, balances)
	buy, sell := s.allocator.Allocate(portfolioValue, active, mids, balances)
	s.buyBudgets = buy
	s.sellBudgets = sell
	s.budgetAllocated = true
}

func (s *Strategy) baseOrderSize(market engine.Market, price decimal.Decimal) decimal.Decimal {
	if s.cfg.Token == market.Base() {
		return s.cfg.OrderAmount
	}
	if !price.IsPositive() {
		return decimal.Zero
	}
	return s.cfg.OrderAmount.Div(price)
}

func (s *Strategy) spreadFor(ctx context.Context, m engine.Market, vol Volatility) (bid, ask decimal.Decimal, widened bool) {
	if s.cfg.DynamicSpread && s.feed != nil {
		fetchedBid, fetchedAsk, ok, err := s.feed.GetSpread(ctx, s.cfg.Exchange, string(m))
		if err != nil {
			s.logger.WithField("market", m).WithError(err).Warn("dynamic spread fetch failed")
		}
		if ok {
			return fetchedBid, fetchedAsk, false
		}
		if s.warnLimiter.Allow(string(m)) {
			s.logger.WithField("market", m).Warn("dynamic spread unavailable, falling back to static spread")
		}
	}

	static := StaticSpreadSource{
		Spread:                       s.cfg.Spread,
		MaxSpread:                    s.cfg.MaxSpread,
		VolatilityToSpreadMultiplier: s.cfg.VolatilityToSpreadMultiplier,
	}
	return static.Compute(vol)
}

func (s *Strategy) buildProposals(ctx context.Context, mids map[engine.Market]decimal.Decimal) []engine.Proposal {
	proposals := make([]engine.Proposal, 0, len(mids))

	for m, mid := range mids {
		vol := s.volEstimators[m].Compute()
		bidSpread, askSpread, widened := s.spreadFor(ctx, m, vol)
		if widened {
			s.logger.WithField("market", m).WithField("bid_spread", bidSpread).WithField("ask_spread", askSpread).
				Info("widening spread beyond configured value due to volatility")
		}

		buyPrice := s.gateway.QuantizePrice(m, mid.Mul(decimal.NewFromInt(1).Sub(bidSpread)))
		sellPrice := s.gateway.QuantizePrice(m, mid.Mul(decimal.NewFromInt(1).Add(askSpread)))

		proposals = append(proposals, engine.Proposal{
			Market: m,
			Buy:    engine.PriceSize{Price: buyPrice, Size: s.baseOrderSize(m, buyPrice)},
			Sell:   engine.PriceSize{Price: sellPrice, Size: s.baseOrderSize(m, sellPrice)},
		})
	}

	return proposals
}

func (s *Strategy) applyInventorySkew(proposals []engine.Proposal, mids map[engine.Market]decimal.Decimal) {
	for i := range proposals {
		p := &proposals[i]
		mid := mids[p.Market]
		if !mid.IsPositive() {
			continue
		}

		totalOrderSize := p.Buy.Size.Add(p.Sell.Size)
		rangeSize := totalOrderSize.Mul(s.cfg.InventoryRangeMultiplier)

		ratios := CalculateInventorySkew(s.sellBudgets[p.Market], s.buyBudgets[p.Market], mid, s.cfg.TargetBasePct, rangeSize)
		p.Buy.Size = p.Buy.Size.Mul(ratios.BidRatio)
		p.Sell.Size = p.Sell.Size.Mul(ratios.AskRatio)
	}
}

func (s *Strategy) applyBudgetConstraint(ctx context.Context, proposals []engine.Proposal, balances map[string]decimal.Decimal) {
	for i := range proposals {
		p := &proposals[i]
		base, quote := p.Base(), p.Quote()

		sellSize := decimal.Min(p.Sell.Size, balances[base])
		if sellSize.IsNegative() {
			sellSize = decimal.Zero
		}
		sellSize = s.gateway.QuantizeAmount(p.Market, sellSize)
		balances[base] = balances[base].Sub(sellSize)
		p.Sell.Size = sellSize

		fee, err := s.gateway.EstimateFee(ctx, p.Market, engine.SideBuy, s.gateway.MakerOrderType())
		if err != nil {
			s.logger.WithField("market", p.Market).WithError(err).Warn("fee estimate failed, assuming zero")
			fee = engine.Fee{}
		}

		quoteValue := decimal.Min(p.Buy.Size.Mul(p.Buy.Price), balances[quote])
		if quoteValue.IsNegative() {
			quoteValue = decimal.Zero
		}
		denom := p.Buy.Price.Mul(decimal.NewFromInt(1).Add(fee.Percent))
		buySize := decimal.Zero
		if denom.IsPositive() {
			buySize = quoteValue.Div(denom)
		}
		buySize = s.gateway.QuantizeAmount(p.Market, buySize)
		balances[quote] = balances[quote].Sub(quoteValue)
		p.Buy.Size = buySize
	}
}

func (s *Strategy) withinTolerance(cur []engine.LiveOrder, p engine.Proposal) bool {
	for _, o := range cur {
		if o.IsBuy {
			if !p.Buy.Size.IsPositive() {
				return false
			}
			if !withinPriceTolerance(p.Buy.Price, o.Price, s.cfg.OrderRefreshTolerancePct) {
				return false
			}
		} else {
			if !p.Sell.Size.IsPositive() {
				return false
			}
			if !withinPriceTolerance(p.Sell.Price, o.Price, s.cfg.OrderRefreshTolerancePct) {
				return false
			}
		}
	}
	return true
}

func withinPriceTolerance(proposed, cur, tolerance decimal.Decimal) bool {
	if !cur.IsPositive() {
		return false
	}
	diff := proposed.Sub(cur).Abs().Div(cur)
	return diff.LessThanOrEqual(tolerance)
}

func (s *Strategy) reconcile(ctx context.Context, now time.Time, proposals []engine.Proposal, live []engine.LiveOrder) {
	byMarket := make(map[engine.Market][]engine.LiveOrder)
	for _, o := range live {
		byMarket[o.Market] = append(byMarket[o.Market], o)
	}
	s.lastLiveByMarket = byMarket

	for _, p := range proposals {
		m := p.Market
		cur := byMarket[m]

		if len(cur) > 0 {
			s.reconcileExisting(ctx, now, m, p, cur)
			continue
		}

		s.dispatch(ctx, now, m, p)
	}
}

func (s *Strategy) reconcileExisting(ctx context.Context, now time.Time, m engine.Market, p engine.Proposal, cur []engine.LiveOrder) {
	aged := false
	for _, o := range cur {
		if o.Age(now) > s.cfg.MaxOrderAge {
			aged = true
			break
		}
	}

	refreshDue := !now.Before(s.refreshTimes[m])
	outOfTolerance := refreshDue && !s.withinTolerance(cur, p)

	if !aged && !outOfTolerance {
		s.phase[m] = PhaseActive
		return
	}

	s.phase[m] = PhaseCancelling
	for _, o := range cur {
		if err := s.gateway.Cancel(ctx, m, o.ClientOrderID); err != nil {
			s.logger.WithField("market", m).WithError(err).Warn("cancel request rejected, will retry next tick")
		}
	}
	s.refreshTimes[m] = now.Add(100 * time.Millisecond)
	s.phase[m] = PhaseActiveIdle
}

func (s *Strategy) dispatch(ctx context.Context, now time.Time, m engine.Market, p engine.Proposal) {
	if now.Before(s.refreshTimes[m]) {
		return
	}

	s.phase[m] = PhaseQuoting
	dispatched := false

	if p.Buy.Size.IsPositive() {
		if id, err := s.gateway.Place(ctx, m, engine.SideBuy, p.Buy.Size, p.Buy.Price, s.gateway.MakerOrderType()); err != nil {
			s.logger.WithField("market", m).WithError(err).Warn("buy order rejected")
		} else {
			dispatched = true
			s.lastLiveByMarket[m] = append(s.lastLiveByMarket[m], engine.LiveOrder{Market: m, ClientOrderID: id, Price: p.Buy.Price, Quantity: p.Buy.Size, IsBuy: true, CreationTime: now})
		}
	}
	if p.Sell.Size.IsPositive() {
		if id, err := s.gateway.Place(ctx, m, engine.SideSell, p.Sell.Size, p.Sell.Price, s.gateway.MakerOrderType()); err != nil {
			s.logger.WithField("market", m).WithError(err).Warn("sell order rejected")
		} else {
			dispatched = true
			s.lastLiveByMarket[m] = append(s.lastLiveByMarket[m], engine.LiveOrder{Market: m, ClientOrderID: id, Price: p.Sell.Price, Quantity: p.Sell.Size, IsBuy: false, CreationTime: now})
		}
	}

	if dispatched {
		s.refreshTimes[m] = now.Add(s.cfg.OrderRefreshTime)
		s.phase[m] = PhaseActive
	} else {
		s.phase[m] = PhaseActiveIdle
	}
}

// OnFill updates budgets from a confirmed own-trade (§4.6 Fill handling).
func (s *Strategy) OnFill(market engine.Market, side engine.Side, amount, price decimal.Decimal) {
	switch side {
	case engine.SideBuy:
		s.buyBudgets[market] = s.buyBudgets[market].Sub(amount.Mul(price))
		s.sellBudgets[market] = s.sellBudgets[market].Add(amount)
	case engine.SideSell:
		s.sellBudgets[market] = s.sellBudgets[market].Sub(amount)
		s.buyBudgets[market] = s.buyBudgets[market].Add(amount.Mul(price))
	}
}

// Phase returns the current state-machine phase for a market, for status
// reporting and tests.
func (s *Strategy) Phase(m engine.Market) MarketPhase {
	return s.phase[m]
}

// Budgets returns the current buy/sell budget for a market.
func (s *Strategy) Budgets(m engine.Market) (buy, sell decimal.Decimal) {
	return s.buyBudgets[m], s.sellBudgets[m]
}

// Volatility returns the current volatility estimate for a market.
func (s *Strategy) Volatility(m engine.Market) Volatility {
	est, ok := s.volEstimators[m]
	if !ok {
		return NaNVolatility
	}
	return est.Compute()
}
