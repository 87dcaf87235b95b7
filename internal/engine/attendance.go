package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// MonthlyAttendance computes the share of working days (Mon–Fri) the teacher
// was present, from the first of ref's month through ref's day inclusive.
// The ledger scan is the source of truth; the optional cache is read-through
// over the same computation and is invalidated whenever attendance lands.
func (e *Engine) MonthlyAttendance(ctx context.Context, teacher string, ref time.Time) (AttendanceSummary, error) {
	if ref.IsZero() {
		return AttendanceSummary{}, ErrMissingDate
	}
	day := dateOnly(ref)

	if e.cache != nil {
		if cached, ok, err := e.cache.GetSummary(ctx, teacher, day); err != nil {
			slog.Warn("attendance cache read failed", "teacher", teacher, "error", err)
		} else if ok {
			return *cached, nil
		}
	}

	first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)

	workingDays := 0
	for d := first; !d.After(day); d = d.AddDate(0, 0, 1) {
		if !isWeekend(d) {
			workingDays++
		}
	}

	present, err := e.store.CountAttendance(ctx, teacher, first, day)
	if err != nil {
		return AttendanceSummary{}, fmt.Errorf("count attendance: %w", err)
	}

	percentage := 0
	if workingDays > 0 {
		percentage = int(math.Round(float64(present) / float64(workingDays) * 100))
		if percentage > 100 {
			percentage = 100
		}
	}

	summary := AttendanceSummary{
		Percentage:  percentage,
		DaysPresent: present,
		WorkingDays: workingDays,
		MonthLabel:  day.Format("January 2006"),
	}

	if e.cache != nil {
		if err := e.cache.SetSummary(ctx, teacher, day, summary); err != nil {
			slog.Warn("attendance cache write failed", "teacher", teacher, "error", err)
		}
	}
	return summary, nil
}

// invalidateAttendanceCache drops the cached month so the next read recomputes.
func (e *Engine) invalidateAttendanceCache(ctx context.Context, teacher string, date time.Time) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Invalidate(ctx, teacher, date); err != nil {
		slog.Warn("attendance cache invalidation failed", "teacher", teacher, "error", err)
	}
}
