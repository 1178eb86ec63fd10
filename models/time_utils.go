package models

import "time"

// TradingWindow describes when the daily cycle is allowed to start and
// when the market is considered open, in the exchange's timezone.
type TradingWindow struct {
	OpenHour  int // inclusive, 0-23
	CloseHour int // exclusive, 0-23
	Location  *time.Location
}

// InWindow reports whether t falls on a weekday within the configured
// hour range. A cycle that misses the window is skipped, not queued.
func (w TradingWindow) InWindow(t time.Time) bool {
	local := t.In(w.loc())
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	h := local.Hour()
	return h >= w.OpenHour && h < w.CloseHour
}

// MarketOpen reports whether the market is accepting orders at t. The
// executing step blocks on this predicate before submitting trades.
func (w TradingWindow) MarketOpen(t time.Time) bool {
	return w.InWindow(t)
}

func (w TradingWindow) loc() *time.Location {
	if w.Location != nil {
		return w.Location
	}
	return time.UTC
}
