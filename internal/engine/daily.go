package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/edupulse/engine/internal/curriculum"
)

// Messages returned by the daily selector's edge cases.
const (
	msgNoActivities  = "No activities found"
	msgAllCompleted  = "All activities completed"
	msgAssignedToday = "Activity assigned for today"
	msgDoneToday     = "Today's activity is completed"
)

// recencyWindowDays is how far back the selector avoids re-offering an
// activity that was already assigned.
const recencyWindowDays = 7

// DailyActivity returns the one activity presented to a teacher for the given
// day. Repeated calls on the same day return the identical result: a persisted
// ledger entry is authoritative, and before any entry exists the pick itself
// is deterministic in (date, teacher).
func (e *Engine) DailyActivity(ctx context.Context, teacher, class, subject string, today time.Time) (DailyResult, error) {
	if today.IsZero() {
		return DailyResult{}, ErrMissingDate
	}
	day := dateOnly(today)

	// A decided day is never reselected.
	if entry, found, err := e.store.GetAssignment(ctx, teacher, class, subject, day); err != nil {
		return DailyResult{}, fmt.Errorf("get assignment: %w", err)
	} else if found {
		return resultFromEntry(entry), nil
	}

	rec, err := e.GetOrInit(ctx, teacher, class, subject)
	if err != nil {
		return DailyResult{}, err
	}
	if rec.TotalActivities == 0 {
		return DailyResult{Date: day, Message: msgNoActivities}, nil
	}

	buckets := incompleteByType(rec)
	if len(buckets) == 0 {
		return DailyResult{Date: day, Message: msgAllCompleted}, nil
	}

	candidateTypes, err := e.candidateTypes(ctx, teacher, class, subject, day, buckets)
	if err != nil {
		return DailyResult{}, err
	}

	rng := dayRand(teacher, day)
	chosenType := candidateTypes[rng.IntN(len(candidateTypes))]

	pool, err := e.applyRecencyFilter(ctx, teacher, class, subject, day, buckets[chosenType])
	if err != nil {
		return DailyResult{}, err
	}
	pick := pool[rng.IntN(len(pool))]

	// First writer wins; a losing writer discards its pick and adopts the
	// stored entry so all concurrent callers observe one agreed-upon result.
	stored, won, err := e.store.PutAssignment(ctx, AssignmentEntry{
		Teacher:    teacher,
		Class:      class,
		Subject:    subject,
		Date:       day,
		Activity:   pick,
		Status:     StatusAssigned,
		AssignedAt: e.now(),
	})
	if err != nil {
		return DailyResult{}, fmt.Errorf("put assignment: %w", err)
	}
	if won {
		slog.Debug("daily activity assigned",
			"teacher", teacher,
			"class", class,
			"subject", subject,
			"date", dateKey(day),
			"activity_id", stored.Activity.ID,
		)
		e.logEvent(Event{
			Teacher:   teacher,
			Class:     class,
			Subject:   subject,
			EventType: EventActivityAssigned,
			Data: map[string]any{
				"date":          dateKey(day),
				"activity_id":   stored.Activity.ID,
				"activity_type": string(stored.Activity.Type),
			},
		})
	}
	return resultFromEntry(stored), nil
}

func resultFromEntry(entry *AssignmentEntry) DailyResult {
	activity := entry.Activity
	res := DailyResult{
		Date:     entry.Date,
		Activity: &activity,
		Message:  msgAssignedToday,
	}
	if entry.Status == StatusCompleted {
		res.Completed = true
		res.Message = msgDoneToday
	}
	return res
}

// incompleteByType partitions a record's incomplete activities into buckets
// keyed by activity type, preserving curriculum order within each bucket.
func incompleteByType(rec *ProgressRecord) map[curriculum.ActivityType][]AssignedActivity {
	buckets := make(map[curriculum.ActivityType][]AssignedActivity)
	for _, m := range rec.Modules {
		for _, a := range m.Activities {
			if a.Completed {
				continue
			}
			buckets[a.Type] = append(buckets[a.Type], AssignedActivity{
				ID:              a.ID,
				Type:            a.Type,
				Title:           a.Title,
				ModuleTitle:     m.Title,
				DurationMinutes: a.DurationMinutes,
			})
		}
	}
	return buckets
}

// candidateTypes lists the non-empty bucket types in fixed order, excluding
// yesterday's assigned type when an alternative exists. Repeating a type on
// consecutive days is allowed only when nothing else remains.
func (e *Engine) candidateTypes(ctx context.Context, teacher, class, subject string, day time.Time, buckets map[curriculum.ActivityType][]AssignedActivity) ([]curriculum.ActivityType, error) {
	var yesterdayType curriculum.ActivityType
	if prev, found, err := e.store.GetAssignment(ctx, teacher, class, subject, day.AddDate(0, 0, -1)); err != nil {
		return nil, fmt.Errorf("get previous assignment: %w", err)
	} else if found {
		yesterdayType = prev.Activity.Type
	}

	var types []curriculum.ActivityType
	for _, t := range curriculum.Types {
		if len(buckets[t]) > 0 && t != yesterdayType {
			types = append(types, t)
		}
	}
	if len(types) == 0 {
		// Only yesterday's type has activities left.
		types = append(types, yesterdayType)
	}
	return types, nil
}

// applyRecencyFilter prefers activities not assigned within the trailing
// week, falling back to the full bucket when the filter empties it.
func (e *Engine) applyRecencyFilter(ctx context.Context, teacher, class, subject string, day time.Time, bucket []AssignedActivity) ([]AssignedActivity, error) {
	recent, err := e.store.ListAssignments(ctx, teacher, class, subject, day.AddDate(0, 0, -recencyWindowDays), day.AddDate(0, 0, -1))
	if err != nil {
		return nil, fmt.Errorf("list recent assignments: %w", err)
	}
	recentIDs := make(map[string]struct{}, len(recent))
	for _, r := range recent {
		recentIDs[r.Activity.ID] = struct{}{}
	}

	var filtered []AssignedActivity
	for _, a := range bucket {
		if _, seen := recentIDs[a.ID]; !seen {
			filtered = append(filtered, a)
		}
	}
	if len(filtered) == 0 {
		return bucket, nil
	}
	return filtered, nil
}
