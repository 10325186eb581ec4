package market

import "context"

// HistoryProvider fetches historical candles for a symbol. Implementations
// wrap a venue's market data API or synthesize data for paper trading.
type HistoryProvider interface {
	// History returns up to limit candles for the symbol at the given
	// timeframe (venue resolution string, e.g. "5" for 5 minutes), ordered
	// oldest first.
	History(ctx context.Context, symbol, timeframe string, limit int) ([]Candle, error)
}
