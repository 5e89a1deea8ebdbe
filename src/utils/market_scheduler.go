package utils

import (
	"sync"
	"time"

	"quote-streamer/src/logger"
)

// MarketScheduler answers whether the configured exchange is in session. The
// answer is cached per minute since the generator asks on every tick.
type MarketScheduler struct {
	Calendar *TradingCalendar
	Logger   *logger.Logger

	mu         sync.Mutex
	cachedAt   time.Time
	cachedOpen bool
}

// -----------------------------------------------------------------------------

func NewMarketScheduler(mic string, l *logger.Logger) *MarketScheduler {
	cal := GetCalendar(mic)
	if cal.Fallback {
		l.Warning("MarketScheduler: no calendar for MIC '%s', using Mon-Fri 09:30-16:00 New York fallback", mic)
	} else {
		l.Info("MarketScheduler: using %s calendar", cal.MIC)
	}
	return &MarketScheduler{Calendar: cal, Logger: l}
}

// -----------------------------------------------------------------------------

// IsOpen reports whether the market is open at t.
func (ms *MarketScheduler) IsOpen(t time.Time) bool {
	minute := t.UTC().Truncate(time.Minute)

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if !ms.cachedAt.IsZero() && ms.cachedAt.Equal(minute) {
		return ms.cachedOpen
	}
	ms.cachedOpen = ms.Calendar.IsOpenOnMinute(minute)
	ms.cachedAt = minute
	return ms.cachedOpen
}
