package temporal

import (
	"sort"
	"time"
)

// HolidayCalendar is a set of civil dates with reduced activity.
// It is not safe for concurrent mutation; samplers only read it.
type HolidayCalendar struct {
	dates map[time.Time]struct{}
}

// NewHolidayCalendar returns a calendar holding the given dates.
func NewHolidayCalendar(dates ...time.Time) *HolidayCalendar {
	c := &HolidayCalendar{dates: make(map[time.Time]struct{}, len(dates))}
	for _, d := range dates {
		c.Add(d)
	}
	return c
}

// Add inserts a date. The time of day and location are ignored.
func (c *HolidayCalendar) Add(d time.Time) {
	c.dates[civil(d)] = struct{}{}
}

// Contains reports whether the date is a holiday.
func (c *HolidayCalendar) Contains(d time.Time) bool {
	if c == nil {
		return false
	}
	_, ok := c.dates[civil(d)]
	return ok
}

// Len returns the number of holidays.
func (c *HolidayCalendar) Len() int {
	if c == nil {
		return 0
	}
	return len(c.dates)
}

// Dates returns the holidays in ascending order.
func (c *HolidayCalendar) Dates() []time.Time {
	if c == nil {
		return nil
	}
	out := make([]time.Time, 0, len(c.dates))
	for d := range c.dates {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Merge adds every date of other to c.
func (c *HolidayCalendar) Merge(other *HolidayCalendar) {
	if other == nil {
		return
	}
	for d := range other.dates {
		c.dates[d] = struct{}{}
	}
}

// USFederalHolidays returns the US federal holidays of the given years, on
// their calendar dates (no weekend observance shift).
func USFederalHolidays(years ...int) *HolidayCalendar {
	c := NewHolidayCalendar()
	for _, y := range years {
		c.Add(date(y, time.January, 1))
		c.Add(nthWeekday(y, time.January, time.Monday, 3))  // Martin Luther King Jr. Day
		c.Add(nthWeekday(y, time.February, time.Monday, 3)) // Washington's Birthday
		c.Add(lastWeekday(y, time.May, time.Monday))        // Memorial Day
		c.Add(date(y, time.June, 19))
		c.Add(date(y, time.July, 4))
		c.Add(nthWeekday(y, time.September, time.Monday, 1)) // Labor Day
		c.Add(nthWeekday(y, time.October, time.Monday, 2))   // Columbus Day
		c.Add(date(y, time.November, 11))
		c.Add(nthWeekday(y, time.November, time.Thursday, 4)) // Thanksgiving
		c.Add(date(y, time.December, 25))
	}
	return c
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// nthWeekday returns the n-th (1-based) given weekday of a month.
func nthWeekday(y int, m time.Month, wd time.Weekday, n int) time.Time {
	first := date(y, m, 1)
	offset := (int(wd) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+7*(n-1))
}

// lastWeekday returns the last given weekday of a month.
func lastWeekday(y int, m time.Month, wd time.Weekday) time.Time {
	last := date(y, m+1, 0)
	offset := (int(last.Weekday()) - int(wd) + 7) % 7
	return last.AddDate(0, 0, -offset)
}

// civil truncates t to midnight UTC of its calendar date.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return date(y, m, d)
}
