package utils

import (
	"testing"
	"time"

	"quote-streamer/src/logger"
)

func TestFallbackCalendarSession(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("no tzdata: %v", err)
	}
	tc := &TradingCalendar{MIC: "test", Fallback: true, Timezone: ny}

	// Wednesday 2025-03-05
	open := time.Date(2025, 3, 5, 10, 0, 0, 0, ny)
	beforeOpen := time.Date(2025, 3, 5, 9, 29, 0, 0, ny)
	afterClose := time.Date(2025, 3, 5, 16, 0, 0, 0, ny)
	saturday := time.Date(2025, 3, 8, 11, 0, 0, 0, ny)

	if !tc.IsOpenOnMinute(open) {
		t.Error("expected open at 10:00 on a weekday")
	}
	if tc.IsOpenOnMinute(beforeOpen) {
		t.Error("expected closed before 09:30")
	}
	if tc.IsOpenOnMinute(afterClose) {
		t.Error("expected closed at 16:00")
	}
	if tc.IsOpenOnMinute(saturday) {
		t.Error("expected closed on Saturday")
	}
}

func TestMarketSchedulerWeekendClosed(t *testing.T) {
	ms := NewMarketScheduler("xnys", logger.NewNop())
	// Sunday 2025-03-09 15:00 UTC
	sunday := time.Date(2025, 3, 9, 15, 0, 0, 0, time.UTC)
	if ms.IsOpen(sunday) {
		t.Error("NYSE should be closed on Sunday")
	}
	// cached answer for the same minute
	if ms.IsOpen(sunday.Add(30 * time.Second)) {
		t.Error("cached answer changed within the same minute")
	}
}

func TestGetCalendarUnknownMICStillAnswers(t *testing.T) {
	cal := GetCalendar("zzzz")
	if cal == nil {
		t.Fatal("expected a calendar")
	}
	// Sunday 2025-03-09 18:00 UTC
	if cal.IsOpenOnMinute(time.Date(2025, 3, 9, 18, 0, 0, 0, time.UTC)) {
		t.Error("expected closed on Sunday")
	}
}
