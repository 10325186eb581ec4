package market

import (
	"context"
	"fmt"
	"time"

	"options-core/pkg/broker/fyers"
)

// FyersProvider adapts the Fyers data API into a HistoryProvider.
type FyersProvider struct {
	Client *fyers.Client
	// LookbackDays bounds the trailing window requested from the venue;
	// 10 days is plenty for intraday EMA warm-up.
	LookbackDays int
}

func NewFyersProvider(client *fyers.Client) *FyersProvider {
	return &FyersProvider{Client: client, LookbackDays: 10}
}

// History fetches candles and converts the venue's array encoding.
func (p *FyersProvider) History(ctx context.Context, symbol, timeframe string, limit int) ([]Candle, error) {
	result, err := p.Client.History(ctx, symbol, timeframe, p.LookbackDays)
	if err != nil {
		return nil, err
	}
	if !result.OK() {
		return nil, fmt.Errorf("history for %s: %s", symbol, result.Message)
	}

	candles := make([]Candle, 0, len(result.Candles))
	for _, raw := range result.Candles {
		if len(raw) < 6 {
			continue
		}
		candles = append(candles, Candle{
			Time:   time.Unix(int64(raw[0]), 0),
			Open:   raw[1],
			High:   raw[2],
			Low:    raw[3],
			Close:  raw[4],
			Volume: raw[5],
		})
	}

	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}
