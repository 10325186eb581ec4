package strategy

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"options-core/internal/events"
	"options-core/internal/market"
	"options-core/pkg/broker"
)

// Controller orchestrates evaluation cycles and is the single mutation
// gateway for the position slot and both history ledgers. Scheduled
// iterations and webhook commands converge on ExecuteSignal; every
// read-then-write against shared state happens inside one critical section,
// and no broker or market-data call runs while the lock is held.
type Controller struct {
	cfg      Config
	strat    Strategy
	provider market.HistoryProvider
	gateway  broker.Gateway
	resolver OptionResolver
	bus      *events.Bus

	mu       sync.Mutex
	running  bool
	position *Position
	trades   []Trade
	signals  []Signal
}

func NewController(cfg Config, strat Strategy, provider market.HistoryProvider, gateway broker.Gateway, resolver OptionResolver, bus *events.Bus) *Controller {
	return &Controller{
		cfg:      cfg,
		strat:    strat,
		provider: provider,
		gateway:  gateway,
		resolver: resolver,
		bus:      bus,
	}
}

// Start enables future iterations. It does not schedule anything itself.
func (c *Controller) Start() {
	c.mu.Lock()
	c.running = true
	c.mu.Unlock()
	log.Printf("strategy %s started", c.strat.Name())
}

// Stop prevents future iterations. An in-flight iteration is not cancelled.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
	log.Printf("strategy %s stopped", c.strat.Name())
}

// Running reports whether iterations are enabled.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// OpenPosition returns a snapshot copy of the open position, or nil.
func (c *Controller) OpenPosition() *Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.position == nil {
		return nil
	}
	cp := *c.position
	return &cp
}

// RunIteration performs one evaluation cycle: fetch data, generate a signal,
// execute it. A stopped controller no-ops.
func (c *Controller) RunIteration(ctx context.Context) IterationResult {
	if !c.Running() {
		return IterationResult{Status: "stopped", Message: "strategy not running"}
	}

	sig, err := c.strat.GenerateSignal(ctx, c.OpenPosition())
	if err != nil {
		log.Printf("signal generation failed: %v", err)
		sig = Signal{
			Underlying: c.cfg.UnderlyingSymbol,
			Action:     ActionHold,
			Reason:     "data unavailable: " + err.Error(),
			Source:     "scheduled",
		}
	}
	if sig.Timestamp.IsZero() {
		sig.Timestamp = time.Now()
	}

	exec := c.ExecuteSignal(ctx, sig)
	return IterationResult{Status: "success", Signal: &sig, Execution: &exec}
}

// ExecuteCommand converts a validated webhook command into a synthetic
// signal and drives it through the same execution path as scheduled
// iterations.
func (c *Controller) ExecuteCommand(ctx context.Context, cmd Command) IterationResult {
	if !c.Running() {
		return IterationResult{Status: "stopped", Message: "strategy not running"}
	}

	sig, err := c.signalFromCommand(ctx, cmd)
	if err != nil {
		return IterationResult{Status: "error", Message: err.Error()}
	}

	exec := c.ExecuteSignal(ctx, sig)
	return IterationResult{Status: "success", Signal: &sig, Execution: &exec}
}

func (c *Controller) signalFromCommand(ctx context.Context, cmd Command) (Signal, error) {
	sig := Signal{
		Timestamp:    time.Now(),
		Underlying:   cmd.Symbol,
		CurrentPrice: cmd.Price,
		Quantity:     cmd.Quantity,
		Source:       "webhook",
	}

	switch cmd.Action {
	case "BUY":
		sig.Action = ActionBuyCall
		sig.OptionKind = OptionCall
		sig.Reason = "webhook BUY command"
	case "SELL":
		sig.Action = ActionBuyPut
		sig.OptionKind = OptionPut
		sig.Reason = "webhook SELL command"
	case "EXIT":
		sig.Action = ActionExit
		sig.Reason = "webhook EXIT command"
	default:
		return Signal{}, fmt.Errorf("unsupported command action %q", cmd.Action)
	}

	// Market commands arrive without a price; use the latest close so paper
	// bookkeeping and stop/target math have a reference.
	if sig.CurrentPrice == 0 && c.provider != nil {
		candles, err := c.provider.History(ctx, cmd.Symbol, c.cfg.Timeframe, 1)
		if err != nil {
			return Signal{}, fmt.Errorf("fetch reference price for %s: %w", cmd.Symbol, err)
		}
		if len(candles) > 0 {
			sig.CurrentPrice = candles[len(candles)-1].Close
		}
	}

	return sig, nil
}

// ExecuteSignal applies one signal to the position state machine. Exactly
// one Signal is appended to the signal history per invocation regardless of
// outcome.
func (c *Controller) ExecuteSignal(ctx context.Context, sig Signal) ExecutionResult {
	switch sig.Action {
	case ActionHold:
		c.mu.Lock()
		c.appendSignalLocked(sig)
		c.mu.Unlock()
		return successResult("holding")
	case ActionBuyCall, ActionBuyPut:
		return c.executeEntry(ctx, sig)
	case ActionExit:
		return c.executeExit(ctx, sig)
	default:
		c.mu.Lock()
		c.appendSignalLocked(sig)
		c.mu.Unlock()
		return errorResult(fmt.Sprintf("unknown action: %s", sig.Action))
	}
}

func (c *Controller) executeEntry(ctx context.Context, sig Signal) ExecutionResult {
	kind := sig.OptionKind
	if kind == "" {
		kind = OptionCall
	}
	qty := sig.Quantity
	if qty <= 0 {
		qty = c.cfg.PositionSize
	}

	// Paper mode trades a placeholder instrument derived from the
	// underlying; live mode must resolve a real option symbol.
	instrument := fmt.Sprintf("%s-%s", sig.Underlying, kind.VenueCode())

	// All external calls happen before the critical section.
	if c.cfg.Mode == ModeLive {
		if c.gateway == nil {
			return c.rejectSignal(sig, "broker gateway not configured")
		}
		if c.resolver == nil {
			return c.rejectSignal(sig, "option instrument resolver not configured for live trading")
		}

		resolved, err := c.resolver.ResolveOptionInstrument(ctx, sig.Underlying, kind, sig.CurrentPrice)
		if err != nil {
			return c.rejectSignal(sig, "resolve option instrument: "+err.Error())
		}
		instrument = resolved

		if prev := c.OpenPosition(); prev != nil {
			if msg := c.placeMarketOrder(ctx, prev.Symbol, broker.SideSell, prev.Quantity); msg != "" {
				// Failed flatten leaves the position intact for retry.
				return c.rejectSignal(sig, "close existing position: "+msg)
			}
		}
		if msg := c.placeMarketOrder(ctx, instrument, broker.SideBuy, qty); msg != "" {
			// The previous position, if any, was already flattened at the
			// broker; record that exit even though the new entry failed.
			c.mu.Lock()
			c.appendSignalLocked(sig)
			if c.position != nil {
				c.recordExitLocked(sig, TradeExit)
				c.position = nil
			}
			c.mu.Unlock()
			return errorResult("entry order failed: " + msg)
		}
	}

	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appendSignalLocked(sig)

	// An entry on top of an open position forces an exit first; positions
	// are never silently overwritten.
	if c.position != nil {
		c.recordExitLocked(sig, TradeExit)
		c.position = nil
	}

	entryTime := sig.Timestamp
	if entryTime.IsZero() {
		entryTime = now
	}
	c.position = &Position{
		Symbol:     instrument,
		Kind:       kind,
		EntryPrice: sig.CurrentPrice,
		Quantity:   qty,
		EntryTime:  entryTime,
		StopLoss:   stopLossPrice(sig.CurrentPrice, c.cfg.StopLossPct),
		Target:     targetPrice(sig.CurrentPrice, c.cfg.TargetPct),
	}

	trade := Trade{
		ID:        uuid.NewString(),
		Type:      TradeEntry,
		Mode:      c.cfg.Mode,
		Symbol:    instrument,
		Price:     sig.CurrentPrice,
		Quantity:  qty,
		Timestamp: now,
	}
	c.appendTradeLocked(trade)

	return ExecutionResult{Status: "success", Message: "entry executed", Trade: &trade}
}

func (c *Controller) executeExit(ctx context.Context, sig Signal) ExecutionResult {
	prev := c.OpenPosition()
	if prev == nil {
		// Exiting flat is a successful no-op and appends no trade.
		c.mu.Lock()
		c.appendSignalLocked(sig)
		c.mu.Unlock()
		return successResult("no position to exit")
	}

	if c.cfg.Mode == ModeLive {
		if c.gateway == nil {
			return c.rejectSignal(sig, "broker gateway not configured")
		}
		if msg := c.placeMarketOrder(ctx, prev.Symbol, broker.SideSell, prev.Quantity); msg != "" {
			// Position stays intact for retry.
			return c.rejectSignal(sig, "exit order failed: "+msg)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.appendSignalLocked(sig)
	if c.position == nil {
		return successResult("no position to exit")
	}
	trade := c.recordExitLocked(sig, TradeExit)
	c.position = nil

	return ExecutionResult{Status: "success", Message: "exit executed", Trade: &trade}
}

// CloseAllPositions force-flattens everything. In live mode the broker's
// position book is authoritative: every nonzero net position is closed with
// an opposite-side market order and the in-memory slot is invalidated no
// matter what it held. Paper mode closes the in-memory position directly.
func (c *Controller) CloseAllPositions(ctx context.Context) ([]Trade, error) {
	if c.cfg.Mode == ModeLive && c.gateway != nil {
		return c.closeAllLive(ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.position == nil {
		return nil, nil
	}
	pos := *c.position
	trade := Trade{
		ID:        uuid.NewString(),
		Type:      TradeClose,
		Mode:      c.cfg.Mode,
		Symbol:    pos.Symbol,
		Price:     pos.EntryPrice,
		Quantity:  pos.Quantity,
		Timestamp: time.Now(),
	}
	c.appendTradeLocked(trade)
	c.position = nil
	return []Trade{trade}, nil
}

func (c *Controller) closeAllLive(ctx context.Context) ([]Trade, error) {
	resp, err := c.gateway.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("query broker positions: %w", err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("query broker positions: %s", resp.Message)
	}

	var closed []broker.Position
	for _, p := range resp.NetPositions {
		if p.NetQty == 0 {
			continue
		}
		side := broker.SideSell
		qty := p.NetQty
		if qty < 0 {
			side = broker.SideBuy
			qty = -qty
		}
		if msg := c.placeMarketOrder(ctx, p.Symbol, side, qty); msg != "" {
			log.Printf("close-all: %s failed: %s", p.Symbol, msg)
			continue
		}
		closed = append(closed, p)
	}

	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	trades := make([]Trade, 0, len(closed))
	for _, p := range closed {
		qty := p.NetQty
		if qty < 0 {
			qty = -qty
		}
		trade := Trade{
			ID:        uuid.NewString(),
			Type:      TradeClose,
			Mode:      ModeLive,
			Symbol:    p.Symbol,
			Price:     p.AvgPrice,
			Quantity:  qty,
			PnL:       p.PnL,
			Timestamp: now,
		}
		c.appendTradeLocked(trade)
		trades = append(trades, trade)
	}
	// Broker book is the source of truth after a close-all.
	c.position = nil
	return trades, nil
}

// Status returns a point-in-time snapshot.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Name:            c.strat.Name(),
		Running:         c.running,
		HasOpenPosition: c.position != nil,
		TotalTrades:     len(c.trades),
		TotalSignals:    len(c.signals),
		Mode:            c.cfg.Mode,
	}
}

// TradeHistory returns up to limit most recent trades, oldest first.
// limit <= 0 returns everything.
func (c *Controller) TradeHistory(limit int) []Trade {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lastN(c.trades, limit)
}

// SignalHistory returns up to limit most recent signals, oldest first.
func (c *Controller) SignalHistory(limit int) []Signal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lastN(c.signals, limit)
}

// rejectSignal records the signal and returns an error result without
// touching the position slot.
func (c *Controller) rejectSignal(sig Signal, msg string) ExecutionResult {
	c.mu.Lock()
	c.appendSignalLocked(sig)
	c.mu.Unlock()
	return errorResult(msg)
}

// placeMarketOrder returns an empty string on success, or a failure message.
// Broker failures are recoverable per call and never fatal to the controller.
func (c *Controller) placeMarketOrder(ctx context.Context, symbol string, side broker.Side, qty int) string {
	res, err := c.gateway.PlaceOrder(ctx, broker.OrderRequest{
		Symbol: symbol,
		Side:   side,
		Qty:    qty,
		Type:   broker.OrderTypeMarket,
	})
	if err != nil {
		return err.Error()
	}
	if !res.OK() {
		if res.Message != "" {
			return res.Message
		}
		return "order rejected"
	}
	return ""
}

// recordExitLocked appends the EXIT/CLOSE trade for the current position at
// the signal's price (entry price when the signal carries none). Caller
// holds the lock and clears the slot.
func (c *Controller) recordExitLocked(sig Signal, tradeType TradeType) Trade {
	pos := *c.position
	exitPrice := sig.CurrentPrice
	if exitPrice == 0 {
		exitPrice = pos.EntryPrice
	}

	pnl := (exitPrice - pos.EntryPrice) * float64(pos.Quantity)
	pnlPct := 0.0
	if pos.EntryPrice != 0 {
		pnlPct = (exitPrice - pos.EntryPrice) / pos.EntryPrice * 100
	}

	trade := Trade{
		ID:        uuid.NewString(),
		Type:      tradeType,
		Mode:      c.cfg.Mode,
		Symbol:    pos.Symbol,
		Price:     exitPrice,
		Quantity:  pos.Quantity,
		PnL:       pnl,
		PnLPct:    pnlPct,
		Timestamp: time.Now(),
	}
	c.appendTradeLocked(trade)
	return trade
}

func (c *Controller) appendSignalLocked(sig Signal) {
	c.signals = append(c.signals, sig)
	if c.bus != nil {
		c.bus.Publish(events.EventSignal, sig)
	}
}

func (c *Controller) appendTradeLocked(trade Trade) {
	c.trades = append(c.trades, trade)
	if c.bus != nil {
		c.bus.Publish(events.EventTrade, trade)
	}
	log.Printf("trade %s %s %s qty=%d price=%.2f pnl=%.2f",
		trade.Type, trade.Mode, trade.Symbol, trade.Quantity, trade.Price, trade.PnL)
}

// stopLossPrice and targetPrice use the long convention: options are always
// bought, regardless of the underlying direction.
func stopLossPrice(entry, pct float64) float64 {
	return entry * (1 - pct/100)
}

func targetPrice(entry, pct float64) float64 {
	return entry * (1 + pct/100)
}

func lastN[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}
