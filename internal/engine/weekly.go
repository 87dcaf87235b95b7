package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/edupulse/engine/internal/curriculum"
)

// WeeklySchedule builds the Monday–Friday schedule for the ISO week containing
// today. Days already decided in the ledger are reused verbatim; undecided
// days are filled with a generator seeded from (ISO year, ISO week, teacher),
// so the schedule is identical no matter which weekday triggers the build.
// New assignments are persisted for today and future days only.
func (e *Engine) WeeklySchedule(ctx context.Context, teacher, class, subject string, today time.Time) ([]DaySlot, error) {
	if today.IsZero() {
		return nil, ErrMissingDate
	}
	day := dateOnly(today)
	monday := mondayOf(day)
	friday := monday.AddDate(0, 0, 4)

	existing, err := e.store.ListAssignments(ctx, teacher, class, subject, monday, friday)
	if err != nil {
		return nil, fmt.Errorf("list week assignments: %w", err)
	}
	decided := make(map[string]*AssignmentEntry, len(existing))
	for i := range existing {
		decided[dateKey(existing[i].Date)] = &existing[i]
	}

	rec, err := e.GetOrInit(ctx, teacher, class, subject)
	if err != nil {
		return nil, err
	}
	buckets := incompleteByType(rec)

	isoYear, isoWeek := day.ISOWeek()
	rng := weekRand(teacher, isoYear, isoWeek)

	// usedIDs avoids assigning one activity to two days anywhere in the week;
	// usedTypes drives the left-to-right type-variety preference.
	usedIDs := make(map[string]struct{})
	for _, entry := range existing {
		usedIDs[entry.Activity.ID] = struct{}{}
	}
	usedTypes := make(map[curriculum.ActivityType]struct{})

	slots := make([]DaySlot, 0, 5)
	for i := 0; i < 5; i++ {
		date := monday.AddDate(0, 0, i)
		slot := DaySlot{
			Day:     date.Weekday().String(),
			Date:    date,
			IsPast:  date.Before(day),
			IsToday: date.Equal(day),
		}

		if entry, ok := decided[dateKey(date)]; ok {
			activity := entry.Activity
			slot.Activity = &activity
			slot.Completed = entry.Status == StatusCompleted
			usedTypes[entry.Activity.Type] = struct{}{}
			slots = append(slots, slot)
			continue
		}

		pick, ok := pickForWeek(rng, buckets, usedTypes, usedIDs)
		if !ok {
			// Nothing left to schedule for this day.
			slots = append(slots, slot)
			continue
		}

		if slot.IsPast {
			// Never fabricate retroactive ledger history; the slot still
			// shows what the seeded schedule holds for that day.
			slot.Activity = &pick
			usedTypes[pick.Type] = struct{}{}
			usedIDs[pick.ID] = struct{}{}
			slots = append(slots, slot)
			continue
		}

		stored, _, err := e.store.PutAssignment(ctx, AssignmentEntry{
			Teacher:    teacher,
			Class:      class,
			Subject:    subject,
			Date:       date,
			Activity:   pick,
			Status:     StatusAssigned,
			AssignedAt: e.now(),
		})
		if err != nil {
			return nil, fmt.Errorf("put week assignment: %w", err)
		}
		activity := stored.Activity
		slot.Activity = &activity
		slot.Completed = stored.Status == StatusCompleted
		usedTypes[stored.Activity.Type] = struct{}{}
		usedIDs[stored.Activity.ID] = struct{}{}
		slots = append(slots, slot)
	}

	return slots, nil
}

// pickForWeek selects one activity for an undecided weekday. Types unused so
// far in the week are preferred; once every type is used, the type with the
// most remaining activities wins. All ties resolve through the seeded
// generator's draw, not insertion order. Within the chosen type, activities
// not already assigned elsewhere this week are preferred.
func pickForWeek(rng *rand.Rand, buckets map[curriculum.ActivityType][]AssignedActivity, usedTypes map[curriculum.ActivityType]struct{}, usedIDs map[string]struct{}) (AssignedActivity, bool) {
	remaining := func(t curriculum.ActivityType) []AssignedActivity {
		var out []AssignedActivity
		for _, a := range buckets[t] {
			if _, used := usedIDs[a.ID]; !used {
				out = append(out, a)
			}
		}
		return out
	}

	// First preference: a type not yet used this week that still has
	// unassigned activities.
	var fresh []curriculum.ActivityType
	for _, t := range curriculum.Types {
		if _, used := usedTypes[t]; used {
			continue
		}
		if len(remaining(t)) > 0 {
			fresh = append(fresh, t)
		}
	}

	var chosen curriculum.ActivityType
	switch {
	case len(fresh) > 0:
		chosen = fresh[rng.IntN(len(fresh))]
	default:
		// Every type is used (or exhausted): take the type with the most
		// remaining activities, falling back to full buckets when every
		// incomplete activity is already on the schedule.
		best, bestCount := bestByCount(rng, remaining)
		if bestCount > 0 {
			chosen = best
		} else {
			full := func(t curriculum.ActivityType) []AssignedActivity { return buckets[t] }
			chosen, bestCount = bestByCount(rng, full)
			if bestCount == 0 {
				return AssignedActivity{}, false
			}
			pool := buckets[chosen]
			return pool[rng.IntN(len(pool))], true
		}
	}

	pool := remaining(chosen)
	return pool[rng.IntN(len(pool))], true
}

// bestByCount returns the type whose pool function yields the most
// activities, resolving ties with a seeded draw.
func bestByCount(rng *rand.Rand, pool func(curriculum.ActivityType) []AssignedActivity) (curriculum.ActivityType, int) {
	bestCount := 0
	var ties []curriculum.ActivityType
	for _, t := range curriculum.Types {
		n := len(pool(t))
		switch {
		case n > bestCount:
			bestCount = n
			ties = ties[:0]
			ties = append(ties, t)
		case n == bestCount && n > 0:
			ties = append(ties, t)
		}
	}
	if bestCount == 0 {
		return "", 0
	}
	return ties[rng.IntN(len(ties))], bestCount
}
