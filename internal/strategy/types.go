package strategy

import (
	"context"
	"time"

	"options-core/internal/indicators"
)

// Action is the decision carried by a signal.
type Action string

const (
	ActionHold    Action = "HOLD"
	ActionBuyCall Action = "BUY_CALL"
	ActionBuyPut  Action = "BUY_PUT"
	ActionExit    Action = "EXIT"
)

// OptionKind distinguishes calls from puts.
type OptionKind string

const (
	OptionCall OptionKind = "CALL"
	OptionPut  OptionKind = "PUT"
)

// VenueCode returns the venue's option-kind suffix (CE for calls, PE for puts).
func (k OptionKind) VenueCode() string {
	if k == OptionPut {
		return "PE"
	}
	return "CE"
}

// Mode selects simulated bookkeeping vs real order placement.
type Mode string

const (
	ModePaper Mode = "PAPER"
	ModeLive  Mode = "LIVE"
)

// Config holds the strategy parameters. It is immutable for the lifetime of
// one Controller; changing parameters means constructing a new Controller.
type Config struct {
	UnderlyingSymbol string  `yaml:"underlying_symbol"`
	FastPeriod       int     `yaml:"fast_period"`
	SlowPeriod       int     `yaml:"slow_period"`
	Timeframe        string  `yaml:"timeframe"`
	PositionSize     int     `yaml:"position_size"`
	StopLossPct      float64 `yaml:"stop_loss_pct"`
	TargetPct        float64 `yaml:"target_pct"`
	Mode             Mode    `yaml:"mode"`
}

// Signal is one evaluation outcome, computed by a strategy or synthesized
// from an external command. Immutable once created; appended to the signal
// history by the Controller.
type Signal struct {
	Timestamp    time.Time            `json:"timestamp"`
	Underlying   string               `json:"underlying"`
	CurrentPrice float64              `json:"current_price"`
	FastValue    float64              `json:"fast_value"`
	SlowValue    float64              `json:"slow_value"`
	Crossover    indicators.Crossover `json:"crossover"`
	Action       Action               `json:"action"`
	OptionKind   OptionKind           `json:"option_kind,omitempty"`
	Quantity     int                  `json:"quantity,omitempty"` // 0 means the configured position size
	Reason       string               `json:"reason"`
	Source       string               `json:"source"` // "scheduled" or "webhook"
}

// Position is the single open option position. At most one exists at any
// time.
type Position struct {
	Symbol     string     `json:"symbol"`
	Kind       OptionKind `json:"option_kind"`
	EntryPrice float64    `json:"entry_price"`
	Quantity   int        `json:"quantity"`
	EntryTime  time.Time  `json:"entry_time"`
	StopLoss   float64    `json:"stop_loss"`
	Target     float64    `json:"target"`
}

// TradeType classifies ledger entries.
type TradeType string

const (
	TradeEntry TradeType = "ENTRY"
	TradeExit  TradeType = "EXIT"
	TradeClose TradeType = "CLOSE"
)

// Trade is one immutable entry in the append-only trade ledger.
type Trade struct {
	ID        string    `json:"id"`
	Type      TradeType `json:"type"`
	Mode      Mode      `json:"mode"`
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Quantity  int       `json:"quantity"`
	PnL       float64   `json:"pnl,omitempty"`
	PnLPct    float64   `json:"pnl_pct,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ExecutionResult reports the outcome of executing one signal.
type ExecutionResult struct {
	Status  string `json:"status"` // "success" or "error"
	Message string `json:"message"`
	Trade   *Trade `json:"trade,omitempty"`
}

func successResult(msg string) ExecutionResult {
	return ExecutionResult{Status: "success", Message: msg}
}

func errorResult(msg string) ExecutionResult {
	return ExecutionResult{Status: "error", Message: msg}
}

// IterationResult bundles the signal and its execution for one cycle.
type IterationResult struct {
	Status    string           `json:"status"`
	Message   string           `json:"message,omitempty"`
	Signal    *Signal          `json:"signal,omitempty"`
	Execution *ExecutionResult `json:"execution,omitempty"`
}

// Status is a point-in-time controller snapshot.
type Status struct {
	Name            string `json:"name"`
	Running         bool   `json:"running"`
	HasOpenPosition bool   `json:"has_open_position"`
	TotalTrades     int    `json:"total_trades"`
	TotalSignals    int    `json:"total_signals"`
	Mode            Mode   `json:"mode"`
}

// Command is a validated external trading command from the webhook channel.
type Command struct {
	Action    string  `json:"action"` // BUY, SELL, EXIT
	Symbol    string  `json:"symbol"`
	Quantity  int     `json:"quantity"`
	OrderType string  `json:"order_type"`
	Price     float64 `json:"price"`
}

// Strategy produces signals; the Controller executes them. Implementations
// must not mutate shared state — the open position is passed as a snapshot.
type Strategy interface {
	Name() string
	GenerateSignal(ctx context.Context, open *Position) (Signal, error)
}

// OptionResolver selects a tradable option instrument for an underlying.
// Strike and expiry selection is venue-specific and provided externally;
// LIVE execution without a resolver is a configuration error.
type OptionResolver interface {
	ResolveOptionInstrument(ctx context.Context, underlying string, kind OptionKind, spot float64) (string, error)
}
