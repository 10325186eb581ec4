package strategy

import (
	"context"
	"fmt"

	"options-core/internal/indicators"
	"options-core/internal/market"
)

// minBarsMargin is the extra history required beyond the slow period before
// signals are considered meaningful.
const minBarsMargin = 5

// EMAOptions derives option-buying signals from an EMA crossover on the
// underlying index. A bullish cross buys a call, a bearish cross buys a put,
// and an opposite directional bias exits the open position.
type EMAOptions struct {
	cfg      Config
	provider market.HistoryProvider
}

func NewEMAOptions(cfg Config, provider market.HistoryProvider) *EMAOptions {
	return &EMAOptions{cfg: cfg, provider: provider}
}

func (s *EMAOptions) Name() string {
	return fmt.Sprintf("EMA_Options_%d_%d", s.cfg.FastPeriod, s.cfg.SlowPeriod)
}

// GenerateSignal fetches history for the underlying, computes the fast and
// slow EMAs and classifies the crossover state against the open position
// snapshot. It performs no mutation and no order placement.
func (s *EMAOptions) GenerateSignal(ctx context.Context, open *Position) (Signal, error) {
	lookback := s.cfg.SlowPeriod + 50
	candles, err := s.provider.History(ctx, s.cfg.UnderlyingSymbol, s.cfg.Timeframe, lookback)
	if err != nil {
		return Signal{}, fmt.Errorf("fetch history for %s: %w", s.cfg.UnderlyingSymbol, err)
	}

	if len(candles) < s.cfg.SlowPeriod+minBarsMargin {
		return Signal{
			Underlying: s.cfg.UnderlyingSymbol,
			Action:     ActionHold,
			Reason:     "insufficient data",
			Source:     "scheduled",
		}, nil
	}

	closes := market.CloseSeries(candles)
	fastEMA := indicators.EMA(closes, s.cfg.FastPeriod)
	slowEMA := indicators.EMA(closes, s.cfg.SlowPeriod)
	bias, cross := indicators.DetectCrossover(fastEMA, slowEMA)

	last := candles[len(candles)-1]
	sig := Signal{
		Timestamp:    last.Time,
		Underlying:   s.cfg.UnderlyingSymbol,
		CurrentPrice: last.Close,
		FastValue:    fastEMA.Last(),
		SlowValue:    slowEMA.Last(),
		Crossover:    cross,
		Source:       "scheduled",
	}

	switch cross {
	case indicators.CrossBullish:
		sig.Action = ActionBuyCall
		sig.OptionKind = OptionCall
		sig.Reason = "bullish EMA crossover"
	case indicators.CrossBearish:
		sig.Action = ActionBuyPut
		sig.OptionKind = OptionPut
		sig.Reason = "bearish EMA crossover"
	default:
		switch {
		case open != nil && opposesBias(open.Kind, bias):
			sig.Action = ActionExit
			sig.Reason = "trend turned against open position"
		case open != nil:
			sig.Action = ActionHold
			sig.Reason = "holding open position"
		default:
			sig.Action = ActionHold
			sig.Reason = "no crossover detected"
		}
	}

	return sig, nil
}

// opposesBias reports whether the current directional bias conflicts with
// the open position's kind.
func opposesBias(kind OptionKind, bias int) bool {
	return (kind == OptionCall && bias == -1) || (kind == OptionPut && bias == 1)
}
