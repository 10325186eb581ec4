package strategy

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"options-core/pkg/broker"
)

type stubStrategy struct {
	name string
	sig  Signal
	err  error
}

func (s stubStrategy) Name() string { return s.name }

func (s stubStrategy) GenerateSignal(ctx context.Context, open *Position) (Signal, error) {
	if s.err != nil {
		return Signal{}, s.err
	}
	return s.sig, nil
}

// gatewayStub accepts every order and reports an empty book.
type gatewayStub struct{}

func (gatewayStub) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	return broker.OrderResult{Status: broker.StatusOK, OrderID: "stub"}, nil
}

func (gatewayStub) Positions(ctx context.Context) (broker.PositionsResult, error) {
	return broker.PositionsResult{Status: broker.StatusOK}, nil
}

func (gatewayStub) Orders(ctx context.Context) (broker.OrdersResult, error) {
	return broker.OrdersResult{Status: broker.StatusOK}, nil
}

// recordingGateway captures placed orders and can reject or fail on demand.
type recordingGateway struct {
	mu        sync.Mutex
	placed    []broker.OrderRequest
	rejectMsg string
	err       error
	positions []broker.Position
}

func (g *recordingGateway) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return broker.OrderResult{}, g.err
	}
	if g.rejectMsg != "" {
		return broker.OrderResult{Status: "error", Message: g.rejectMsg}, nil
	}
	g.placed = append(g.placed, req)
	return broker.OrderResult{Status: broker.StatusOK, OrderID: "test-order"}, nil
}

func (g *recordingGateway) Positions(ctx context.Context) (broker.PositionsResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return broker.PositionsResult{}, g.err
	}
	return broker.PositionsResult{Status: broker.StatusOK, NetPositions: g.positions}, nil
}

func (g *recordingGateway) Orders(ctx context.Context) (broker.OrdersResult, error) {
	return broker.OrdersResult{Status: broker.StatusOK}, nil
}

func (g *recordingGateway) orders() []broker.OrderRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]broker.OrderRequest, len(g.placed))
	copy(out, g.placed)
	return out
}

type fixedResolver struct {
	symbol string
	err    error
}

func (r fixedResolver) ResolveOptionInstrument(ctx context.Context, underlying string, kind OptionKind, spot float64) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return r.symbol, nil
}

func callSignal(price float64) Signal {
	return Signal{
		Timestamp:    time.Now(),
		Underlying:   "NSE:NIFTY50-INDEX",
		CurrentPrice: price,
		Action:       ActionBuyCall,
		OptionKind:   OptionCall,
		Reason:       "bullish EMA crossover",
		Source:       "scheduled",
	}
}

func exitSignal(price float64) Signal {
	return Signal{
		Timestamp:    time.Now(),
		Underlying:   "NSE:NIFTY50-INDEX",
		CurrentPrice: price,
		Action:       ActionExit,
		Reason:       "trend turned against open position",
		Source:       "scheduled",
	}
}

func paperController(cfg Config) *Controller {
	return NewController(cfg, stubStrategy{name: "test"}, nil, nil, nil, nil)
}

func TestEntrySetsStopAndTarget(t *testing.T) {
	c := paperController(testConfig())
	c.Start()

	exec := c.ExecuteSignal(context.Background(), callSignal(100))
	if exec.Status != "success" {
		t.Fatalf("entry failed: %s", exec.Message)
	}

	pos := c.OpenPosition()
	if pos == nil {
		t.Fatal("expected open position after entry")
	}
	if pos.StopLoss != 98.0 {
		t.Errorf("stop loss=%v, expected 98.0", pos.StopLoss)
	}
	if pos.Target != 104.0 {
		t.Errorf("target=%v, expected 104.0", pos.Target)
	}
	if pos.Symbol != "NSE:NIFTY50-INDEX-CE" {
		t.Errorf("symbol=%q, expected placeholder call instrument", pos.Symbol)
	}
}

func TestRoundTripPnL(t *testing.T) {
	cfg := testConfig()
	cfg.PositionSize = 2
	c := paperController(cfg)
	c.Start()

	if exec := c.ExecuteSignal(context.Background(), callSignal(100)); exec.Status != "success" {
		t.Fatalf("entry failed: %s", exec.Message)
	}
	exec := c.ExecuteSignal(context.Background(), exitSignal(110))
	if exec.Status != "success" {
		t.Fatalf("exit failed: %s", exec.Message)
	}
	if exec.Trade == nil {
		t.Fatal("exit should report a trade")
	}
	if exec.Trade.PnL != 20.0 {
		t.Errorf("pnl=%v, expected 20.0", exec.Trade.PnL)
	}
	if exec.Trade.PnLPct != 10.0 {
		t.Errorf("pnl_pct=%v, expected 10.0", exec.Trade.PnLPct)
	}
	if c.OpenPosition() != nil {
		t.Error("position should be flat after exit")
	}

	trades := c.TradeHistory(0)
	if len(trades) != 2 || trades[0].Type != TradeEntry || trades[1].Type != TradeExit {
		t.Fatalf("ledger should hold ENTRY then EXIT, got %+v", trades)
	}
}

func TestExitWhenFlatIsIdempotent(t *testing.T) {
	c := paperController(testConfig())
	c.Start()

	for i := 0; i < 2; i++ {
		exec := c.ExecuteSignal(context.Background(), exitSignal(100))
		if exec.Status != "success" {
			t.Fatalf("flat exit %d should succeed, got %s", i, exec.Message)
		}
		if exec.Trade != nil {
			t.Fatalf("flat exit %d should not record a trade", i)
		}
	}
	if got := len(c.TradeHistory(0)); got != 0 {
		t.Fatalf("ledger should stay empty, got %d trades", got)
	}
	if got := len(c.SignalHistory(0)); got != 2 {
		t.Fatalf("both signals should be recorded, got %d", got)
	}
}

func TestEntryOnOpenPositionForcesExit(t *testing.T) {
	c := paperController(testConfig())
	c.Start()

	c.ExecuteSignal(context.Background(), callSignal(100))
	sig := callSignal(105)
	sig.Action = ActionBuyPut
	sig.OptionKind = OptionPut
	exec := c.ExecuteSignal(context.Background(), sig)
	if exec.Status != "success" {
		t.Fatalf("second entry failed: %s", exec.Message)
	}

	trades := c.TradeHistory(0)
	if len(trades) != 3 {
		t.Fatalf("expected ENTRY, EXIT, ENTRY, got %d trades", len(trades))
	}
	if trades[0].Type != TradeEntry || trades[1].Type != TradeExit || trades[2].Type != TradeEntry {
		t.Fatalf("ledger order wrong: %s %s %s", trades[0].Type, trades[1].Type, trades[2].Type)
	}
	if trades[1].PnL != 5.0 {
		t.Errorf("forced exit pnl=%v, expected 5.0", trades[1].PnL)
	}

	pos := c.OpenPosition()
	if pos == nil || pos.Kind != OptionPut {
		t.Fatalf("open position should be the new put, got %+v", pos)
	}
}

func TestStoppedControllerRejectsWork(t *testing.T) {
	c := paperController(testConfig())

	res := c.RunIteration(context.Background())
	if res.Status != "stopped" {
		t.Fatalf("status=%s, expected stopped", res.Status)
	}
	res = c.ExecuteCommand(context.Background(), Command{Action: "BUY", Symbol: "NSE:NIFTY50-INDEX"})
	if res.Status != "stopped" {
		t.Fatalf("command status=%s, expected stopped", res.Status)
	}
	if got := c.Status(); got.TotalSignals != 0 || got.TotalTrades != 0 {
		t.Fatalf("stopped controller must not record anything: %+v", got)
	}
}

func TestIterationSurvivesSignalError(t *testing.T) {
	c := NewController(testConfig(), stubStrategy{name: "test", err: errors.New("feed down")}, nil, nil, nil, nil)
	c.Start()

	res := c.RunIteration(context.Background())
	if res.Status != "success" {
		t.Fatalf("iteration status=%s, expected success with HOLD fallback", res.Status)
	}
	if res.Signal == nil || res.Signal.Action != ActionHold {
		t.Fatalf("expected synthetic HOLD signal, got %+v", res.Signal)
	}
	sigs := c.SignalHistory(0)
	if len(sigs) != 1 {
		t.Fatalf("exactly one signal per iteration, got %d", len(sigs))
	}
}

func TestExecuteCommandMapsActions(t *testing.T) {
	tests := []struct {
		cmdAction string
		want      Action
		kind      OptionKind
	}{
		{"BUY", ActionBuyCall, OptionCall},
		{"SELL", ActionBuyPut, OptionPut},
		{"EXIT", ActionExit, ""},
	}
	for _, tc := range tests {
		c := paperController(testConfig())
		c.Start()

		res := c.ExecuteCommand(context.Background(), Command{
			Action: tc.cmdAction,
			Symbol: "NSE:NIFTY50-INDEX",
			Price:  100,
		})
		if res.Status != "success" {
			t.Fatalf("%s: status=%s msg=%s", tc.cmdAction, res.Status, res.Message)
		}
		if res.Signal.Action != tc.want {
			t.Errorf("%s: action=%s, expected %s", tc.cmdAction, res.Signal.Action, tc.want)
		}
		if res.Signal.OptionKind != tc.kind {
			t.Errorf("%s: kind=%s, expected %s", tc.cmdAction, res.Signal.OptionKind, tc.kind)
		}
		if res.Signal.Source != "webhook" {
			t.Errorf("%s: source=%s, expected webhook", tc.cmdAction, res.Signal.Source)
		}
	}
}

func TestExecuteCommandFetchesReferencePrice(t *testing.T) {
	provider := stubProvider{candles: candlesFromCloses(250.5)}
	c := NewController(testConfig(), stubStrategy{name: "test"}, provider, nil, nil, nil)
	c.Start()

	res := c.ExecuteCommand(context.Background(), Command{Action: "BUY", Symbol: "NSE:NIFTY50-INDEX"})
	if res.Status != "success" {
		t.Fatalf("command failed: %s", res.Message)
	}
	if res.Signal.CurrentPrice != 250.5 {
		t.Fatalf("price=%v, expected latest close 250.5", res.Signal.CurrentPrice)
	}
	pos := c.OpenPosition()
	if pos == nil || pos.EntryPrice != 250.5 {
		t.Fatalf("position should carry the fetched price, got %+v", pos)
	}
}

func TestLiveEntryWithoutResolverIsConfigError(t *testing.T) {
	cfg := testConfig()
	cfg.Mode = ModeLive
	c := NewController(cfg, stubStrategy{name: "test"}, nil, gatewayStub{}, nil, nil)
	c.Start()

	exec := c.ExecuteSignal(context.Background(), callSignal(100))
	if exec.Status != "error" {
		t.Fatalf("status=%s, expected error without a resolver", exec.Status)
	}
	if c.OpenPosition() != nil {
		t.Fatal("rejected entry must not open a position")
	}
	if got := len(c.SignalHistory(0)); got != 1 {
		t.Fatalf("signal should still be recorded, got %d", got)
	}
	if got := len(c.TradeHistory(0)); got != 0 {
		t.Fatalf("no trade should be recorded, got %d", got)
	}
}

func TestLiveExitFailureKeepsPosition(t *testing.T) {
	cfg := testConfig()
	cfg.Mode = ModeLive
	gw := &recordingGateway{}
	c := NewController(cfg, stubStrategy{name: "test"}, nil, gw, fixedResolver{symbol: "NSE:NIFTY2560524500CE"}, nil)
	c.Start()

	if exec := c.ExecuteSignal(context.Background(), callSignal(100)); exec.Status != "success" {
		t.Fatalf("live entry failed: %s", exec.Message)
	}
	pos := c.OpenPosition()
	if pos == nil || pos.Symbol != "NSE:NIFTY2560524500CE" {
		t.Fatalf("live position should use resolved symbol, got %+v", pos)
	}

	gw.rejectMsg = "market closed"
	exec := c.ExecuteSignal(context.Background(), exitSignal(105))
	if exec.Status != "error" {
		t.Fatalf("status=%s, expected error on rejected exit order", exec.Status)
	}
	if c.OpenPosition() == nil {
		t.Fatal("failed exit must keep the position for retry")
	}
}

func TestCloseAllPaper(t *testing.T) {
	c := paperController(testConfig())
	c.Start()
	c.ExecuteSignal(context.Background(), callSignal(100))

	trades, err := c.CloseAllPositions(context.Background())
	if err != nil {
		t.Fatalf("CloseAllPositions: %v", err)
	}
	if len(trades) != 1 || trades[0].Type != TradeClose {
		t.Fatalf("expected one CLOSE trade, got %+v", trades)
	}
	if trades[0].PnL != 0 {
		t.Errorf("paper close pnl=%v, expected 0", trades[0].PnL)
	}
	if c.OpenPosition() != nil {
		t.Fatal("position should be flat after close-all")
	}

	// Flat close-all is a no-op.
	trades, err = c.CloseAllPositions(context.Background())
	if err != nil || len(trades) != 0 {
		t.Fatalf("flat close-all should be empty, got %v, %v", trades, err)
	}
}

func TestConcurrentExecutionKeepsLedgerConsistent(t *testing.T) {
	cfg := testConfig()
	strat := stubStrategy{name: "test", sig: callSignal(100)}
	c := NewController(cfg, strat, nil, nil, nil, nil)
	c.Start()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				c.RunIteration(context.Background())
			} else {
				c.ExecuteCommand(context.Background(), Command{
					Action: "EXIT",
					Symbol: "NSE:NIFTY50-INDEX",
					Price:  100,
				})
			}
		}(i)
	}
	wg.Wait()

	// Every ENTRY must be followed by a non-ENTRY before the next ENTRY:
	// positions are never silently overwritten.
	trades := c.TradeHistory(0)
	open := false
	for i, tr := range trades {
		switch tr.Type {
		case TradeEntry:
			if open {
				t.Fatalf("trade %d: consecutive ENTRY without an EXIT between", i)
			}
			open = true
		case TradeExit, TradeClose:
			if !open {
				t.Fatalf("trade %d: EXIT with no preceding ENTRY", i)
			}
			open = false
		}
	}
	if (c.OpenPosition() != nil) != open {
		t.Fatalf("ledger says open=%v but position slot disagrees", open)
	}
	if got := len(c.SignalHistory(0)); got != 100 {
		t.Fatalf("exactly one signal per execution, got %d", got)
	}
}

func TestCloseAllLiveFlattensBrokerBook(t *testing.T) {
	cfg := testConfig()
	cfg.Mode = ModeLive
	gw := &recordingGateway{positions: []broker.Position{
		{Symbol: "NSE:NIFTY2560524500CE", NetQty: 2, AvgPrice: 105, PnL: 10},
		{Symbol: "NSE:NIFTY2560524000PE", NetQty: -1, AvgPrice: 80, PnL: -5},
		{Symbol: "NSE:NIFTY2560523500CE", NetQty: 0},
	}}
	c := NewController(cfg, stubStrategy{name: "test"}, nil, gw, fixedResolver{symbol: "x"}, nil)
	c.Start()

	trades, err := c.CloseAllPositions(context.Background())
	if err != nil {
		t.Fatalf("CloseAllPositions: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 CLOSE trades for nonzero positions, got %d", len(trades))
	}
	for _, tr := range trades {
		if tr.Type != TradeClose {
			t.Errorf("trade type=%s, expected CLOSE", tr.Type)
		}
	}

	placed := gw.orders()
	if len(placed) != 2 {
		t.Fatalf("expected 2 flattening orders, got %d", len(placed))
	}
	if placed[0].Side != broker.SideSell || placed[0].Qty != 2 {
		t.Errorf("long position should be sold: %+v", placed[0])
	}
	if placed[1].Side != broker.SideBuy || placed[1].Qty != 1 {
		t.Errorf("short position should be bought back: %+v", placed[1])
	}
	if c.OpenPosition() != nil {
		t.Fatal("in-memory slot must be invalidated after live close-all")
	}
}

func TestLiveEntryFlattensPreviousPosition(t *testing.T) {
	cfg := testConfig()
	cfg.Mode = ModeLive
	gw := &recordingGateway{}
	c := NewController(cfg, stubStrategy{name: "test"}, nil, gw, fixedResolver{symbol: "NSE:NIFTY2560524500CE"}, nil)
	c.Start()

	c.ExecuteSignal(context.Background(), callSignal(100))
	sig := callSignal(104)
	sig.Action = ActionBuyPut
	sig.OptionKind = OptionPut
	c.resolver = fixedResolver{symbol: "NSE:NIFTY2560524000PE"}
	if exec := c.ExecuteSignal(context.Background(), sig); exec.Status != "success" {
		t.Fatalf("second live entry failed: %s", exec.Message)
	}

	placed := gw.orders()
	if len(placed) != 3 {
		t.Fatalf("expected entry, flatten, entry orders, got %d", len(placed))
	}
	if placed[1].Side != broker.SideSell || placed[1].Symbol != "NSE:NIFTY2560524500CE" {
		t.Errorf("second order should flatten the call: %+v", placed[1])
	}
	if placed[2].Side != broker.SideBuy || placed[2].Symbol != "NSE:NIFTY2560524000PE" {
		t.Errorf("third order should open the put: %+v", placed[2])
	}
}

func TestStatusSnapshot(t *testing.T) {
	c := paperController(testConfig())
	c.Start()
	c.ExecuteSignal(context.Background(), callSignal(100))

	st := c.Status()
	if !st.Running || !st.HasOpenPosition {
		t.Fatalf("unexpected status %+v", st)
	}
	if st.TotalTrades != 1 || st.TotalSignals != 1 {
		t.Fatalf("counts wrong: %+v", st)
	}
	if st.Mode != ModePaper {
		t.Fatalf("mode=%s, expected PAPER", st.Mode)
	}

	c.Stop()
	if c.Status().Running {
		t.Fatal("controller should report stopped")
	}
}

func TestHistoryLimits(t *testing.T) {
	c := paperController(testConfig())
	c.Start()
	for i := 0; i < 5; i++ {
		c.ExecuteSignal(context.Background(), exitSignal(100))
	}

	if got := len(c.SignalHistory(3)); got != 3 {
		t.Fatalf("limited history length=%d, expected 3", got)
	}
	if got := len(c.SignalHistory(0)); got != 5 {
		t.Fatalf("unlimited history length=%d, expected 5", got)
	}
}
