package utils

import (
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

const defaultMIC = "xnys"

// Fallback session, New York local minutes since midnight
const (
	fallbackOpen  = 9*60 + 30
	fallbackClose = 16 * 60
)

// TradingCalendar answers session questions for one exchange, backed by
// scmhub/calendar or, when no calendar loads, a plain weekday session.
type TradingCalendar struct {
	MIC      string
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

// GetCalendar loads the calendar for an ISO 10383 MIC such as "xnys" or
// "xlon". Unknown codes use NYSE.
func GetCalendar(mic string) *TradingCalendar {
	mic = strings.ToLower(strings.TrimSpace(mic))
	if mic == "" {
		mic = defaultMIC
	}

	for _, code := range []string{mic, defaultMIC} {
		if cal := calendar.GetCalendar(code); cal != nil {
			return &TradingCalendar{MIC: code, Calendar: cal, Timezone: cal.Loc}
		}
	}

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return &TradingCalendar{MIC: defaultMIC, Fallback: true, Timezone: loc}
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) local(t time.Time) time.Time {
	if tc.Timezone == nil {
		return t
	}
	return t.In(tc.Timezone)
}

// IsTradingDay reports whether the exchange has a session on date.
func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	date = tc.local(date)
	if !tc.Fallback {
		return tc.Calendar.IsBusinessDay(date)
	}
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}

// IsOpenOnMinute reports whether the exchange is in session at t.
func (tc *TradingCalendar) IsOpenOnMinute(t time.Time) bool {
	t = tc.local(t)
	if !tc.Fallback {
		return tc.Calendar.IsOpen(t)
	}
	if !tc.IsTradingDay(t) {
		return false
	}
	m := t.Hour()*60 + t.Minute()
	return m >= fallbackOpen && m < fallbackClose
}
