package market

import (
	"time"

	"options-core/internal/indicators"
)

// Candle represents a single price bar for the underlying.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// CloseSeries extracts the closing prices as an indicator input series.
func CloseSeries(candles []Candle) indicators.Series {
	s := make(indicators.Series, len(candles))
	for i, c := range candles {
		s[i] = indicators.Point{Time: c.Time, Value: c.Close}
	}
	return s
}
