package indicators

import "time"

// Point is a single indicator value stamped with the bar time it was
// computed for.
type Point struct {
	Time  time.Time
	Value float64
}

// Series is an ordered sequence of indicator points, aligned 1:1 with the
// price bars it was computed from.
type Series []Point

// Last returns the most recent value, or 0 for an empty series.
func (s Series) Last() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Value
}

// EMA computes an exponential moving average over the input series using
// recursive smoothing with alpha = 2/(period+1). The first output value is
// seeded from the first input value, so the result has no warm-up gap and
// stays aligned with the input.
func EMA(in Series, period int) Series {
	if len(in) == 0 || period <= 0 {
		return nil
	}

	alpha := 2.0 / float64(period+1)
	out := make(Series, len(in))
	out[0] = in[0]
	for i := 1; i < len(in); i++ {
		prev := out[i-1].Value
		out[i] = Point{
			Time:  in[i].Time,
			Value: alpha*in[i].Value + (1-alpha)*prev,
		}
	}
	return out
}
