package engine

import "time"

// dateLayout is the canonical date string used for ledger keys and seeds.
const dateLayout = "2006-01-02"

// dateOnly truncates a timestamp to its UTC calendar date.
func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// dateKey renders a timestamp as its canonical date string.
func dateKey(t time.Time) string {
	return dateOnly(t).Format(dateLayout)
}

// mondayOf returns the Monday of t's ISO week.
func mondayOf(t time.Time) time.Time {
	d := dateOnly(t)
	// time.Weekday puts Sunday at 0; ISO weeks start on Monday.
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// isWeekend reports whether t falls on Saturday or Sunday.
func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
