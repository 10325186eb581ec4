package market

import "time"

// ist is the exchange timezone (UTC+5:30).
var ist = time.FixedZone("IST", 5*3600+30*60)

// IsOpen reports whether the NSE regular session is trading at t:
// Monday to Friday, 09:15 to 15:30 IST. Exchange holidays are not tracked.
func IsOpen(t time.Time) bool {
	local := t.In(ist)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	minutes := local.Hour()*60 + local.Minute()
	sessionOpen := 9*60 + 15
	sessionClose := 15*60 + 30
	return minutes >= sessionOpen && minutes <= sessionClose
}
