package indicators

// Crossover classifies the relationship change between a fast and a slow
// moving average on the most recent bar.
type Crossover string

const (
	CrossNone    Crossover = "none"
	CrossBullish Crossover = "bullish"
	CrossBearish Crossover = "bearish"
)

// DetectCrossover inspects the last two aligned points of the fast and slow
// series. It returns a directional bias (1 bullish, -1 bearish, 0 neutral)
// and the crossover kind, if any, on the current bar:
//
//	bullish: fast[prev] <= slow[prev] and fast[cur] > slow[cur]
//	bearish: fast[prev] >= slow[prev] and fast[cur] < slow[cur]
//
// With no crossover the bias is the sign of fast[cur] - slow[cur]. Either
// series having fewer than two points yields (0, CrossNone).
func DetectCrossover(fast, slow Series) (int, Crossover) {
	if len(fast) < 2 || len(slow) < 2 {
		return 0, CrossNone
	}

	fastCur := fast[len(fast)-1].Value
	fastPrev := fast[len(fast)-2].Value
	slowCur := slow[len(slow)-1].Value
	slowPrev := slow[len(slow)-2].Value

	switch {
	case fastPrev <= slowPrev && fastCur > slowCur:
		return 1, CrossBullish
	case fastPrev >= slowPrev && fastCur < slowCur:
		return -1, CrossBearish
	case fastCur > slowCur:
		return 1, CrossNone
	case fastCur < slowCur:
		return -1, CrossNone
	default:
		return 0, CrossNone
	}
}
