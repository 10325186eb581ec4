package market

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// MockProvider generates synthetic random-walk candles for local development
// and paper trading. Each call continues the walk from the previous call, so
// consecutive iterations see an evolving price series.
type MockProvider struct {
	StartPrice float64
	Step       float64
	Timeframe  time.Duration

	mu    sync.Mutex
	rng   *rand.Rand
	lasts map[string]float64
}

func NewMockProvider(startPrice, step float64, seed int64) *MockProvider {
	if startPrice == 0 {
		startPrice = 100.0
	}
	if step == 0 {
		step = 0.5
	}
	return &MockProvider{
		StartPrice: startPrice,
		Step:       step,
		Timeframe:  5 * time.Minute,
		rng:        rand.New(rand.NewSource(seed)),
		lasts:      make(map[string]float64),
	}
}

// History synthesizes limit candles ending at the current time.
func (m *MockProvider) History(ctx context.Context, symbol, timeframe string, limit int) ([]Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	price, ok := m.lasts[symbol]
	if !ok {
		price = m.StartPrice
	}

	now := time.Now().Truncate(m.Timeframe)
	candles := make([]Candle, 0, limit)
	for i := limit - 1; i >= 0; i-- {
		open := price
		price += (m.rng.Float64()*2 - 1) * m.Step
		high := open
		low := open
		if price > high {
			high = price
		}
		if price < low {
			low = price
		}
		candles = append(candles, Candle{
			Time:   now.Add(-time.Duration(i) * m.Timeframe),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  price,
			Volume: 1000 + m.rng.Float64()*500,
		})
	}
	m.lasts[symbol] = price
	return candles, nil
}
