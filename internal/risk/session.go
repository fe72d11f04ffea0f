package risk

import "time"

// MCX crude-oil session bounds in exchange-local time. The evening close
// extends to 23:55 from November through March when the US markets shift
// off daylight saving.
const (
	sessionOpenMinute    = 9 * 60
	sessionCloseRegular  = 23*60 + 30
	sessionCloseExtended = 23*60 + 55
)

// InSession reports whether the timestamp falls inside the MCX crude-oil
// trading window, Monday through Friday.
func InSession(ts time.Time) bool {
	switch ts.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	closeMinute := sessionCloseRegular
	switch ts.Month() {
	case time.November, time.December, time.January, time.February, time.March:
		closeMinute = sessionCloseExtended
	}

	minute := ts.Hour()*60 + ts.Minute()
	return minute >= sessionOpenMinute && minute <= closeMinute
}

// DayState tracks the daily loss cap for one simulation leg. It resets
// on calendar-date rollover only; a halt lasts until end of day.
type DayState struct {
	year    int
	month   time.Month
	day     int
	started bool

	startEquity float64
	halted      bool
}

// Roll resets the day trackers when the timestamp crosses into a new
// calendar date.
func (d *DayState) Roll(ts time.Time, equity float64) {
	y, m, day := ts.Date()
	if d.started && y == d.year && m == d.month && day == d.day {
		return
	}
	d.year, d.month, d.day = y, m, day
	d.started = true
	d.startEquity = equity
	d.halted = false
}

// CheckHalt trips the halt once equity has fallen to the daily loss cap
// relative to day-start equity. The halt only ever goes false to true
// within a day.
func (d *DayState) CheckHalt(equity, capPct float64) {
	if d.halted || d.startEquity == 0 {
		return
	}
	if (equity-d.startEquity)/d.startEquity <= capPct {
		d.halted = true
	}
}

// Halted reports whether new entries are blocked for the rest of the day.
func (d *DayState) Halted() bool {
	return d.halted
}

// StartEquity returns the equity recorded at the current day's open.
func (d *DayState) StartEquity() float64 {
	return d.startEquity
}
