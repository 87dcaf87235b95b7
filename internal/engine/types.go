package engine

import (
	"time"

	"github.com/edupulse/engine/internal/curriculum"
)

// Assignment and attendance statuses.
const (
	StatusAssigned  = "assigned"
	StatusCompleted = "completed"
	StatusPresent   = "present"
)

// ActivityProgress is one activity of a teacher's progress record.
type ActivityProgress struct {
	ID              string                  `json:"id"`
	Type            curriculum.ActivityType `json:"type"`
	Title           string                  `json:"title"`
	DurationMinutes int                     `json:"duration_minutes"`
	Completed       bool                    `json:"completed"`
	CompletedAt     *time.Time              `json:"completed_at,omitempty"`
}

// ModuleProgress mirrors one curriculum module with per-activity completion.
type ModuleProgress struct {
	Title               string             `json:"title"`
	CompletedActivities int                `json:"completed_activities"`
	Activities          []ActivityProgress `json:"activities"`
}

// ProgressRecord is a teacher's completion state against one curriculum.
// Counters are always recomputed from the per-activity flags.
type ProgressRecord struct {
	Teacher             string           `json:"teacher"`
	Class               string           `json:"class"`
	Subject             string           `json:"subject"`
	Modules             []ModuleProgress `json:"modules"`
	CompletedActivities int              `json:"completed_activities"`
	TotalActivities     int              `json:"total_activities"`
	ProgressPercent     int              `json:"progress_percentage"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// newProgressRecord deep-copies a curriculum into a fresh progress record.
func newProgressRecord(teacher string, cur curriculum.Curriculum, now time.Time) *ProgressRecord {
	rec := &ProgressRecord{
		Teacher:   teacher,
		Class:     cur.Class,
		Subject:   cur.Subject,
		Modules:   make([]ModuleProgress, 0, len(cur.Modules)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, m := range cur.Modules {
		mp := ModuleProgress{
			Title:      m.Title,
			Activities: make([]ActivityProgress, 0, len(m.Activities)),
		}
		for _, a := range m.Activities {
			mp.Activities = append(mp.Activities, ActivityProgress{
				ID:              a.ID,
				Type:            a.Type,
				Title:           a.Title,
				DurationMinutes: a.DurationMinutes,
			})
		}
		rec.Modules = append(rec.Modules, mp)
	}
	rec.recompute()
	return rec
}

// recompute rebuilds the derived counters from the per-activity flags.
func (r *ProgressRecord) recompute() {
	total, done := 0, 0
	for i := range r.Modules {
		m := &r.Modules[i]
		m.CompletedActivities = 0
		for _, a := range m.Activities {
			total++
			if a.Completed {
				m.CompletedActivities++
				done++
			}
		}
	}
	r.TotalActivities = total
	r.CompletedActivities = done
	if total == 0 {
		r.ProgressPercent = 0
	} else {
		r.ProgressPercent = done * 100 / total
	}
}

// markCompleted flags the first incomplete occurrence of activityID and
// refreshes the counters. Returns false without mutation when the id is
// unknown or already completed.
func (r *ProgressRecord) markCompleted(activityID string, at time.Time) bool {
	for i := range r.Modules {
		for j := range r.Modules[i].Activities {
			a := &r.Modules[i].Activities[j]
			if a.ID != activityID || a.Completed {
				continue
			}
			ts := at
			a.Completed = true
			a.CompletedAt = &ts
			r.UpdatedAt = at
			r.recompute()
			return true
		}
	}
	return false
}

// clone returns a deep copy so stored records are never aliased by callers.
func (r *ProgressRecord) clone() *ProgressRecord {
	cp := *r
	cp.Modules = make([]ModuleProgress, len(r.Modules))
	for i, m := range r.Modules {
		mm := m
		mm.Activities = make([]ActivityProgress, len(m.Activities))
		copy(mm.Activities, m.Activities)
		for j, a := range mm.Activities {
			if a.CompletedAt != nil {
				ts := *a.CompletedAt
				mm.Activities[j].CompletedAt = &ts
			}
		}
		cp.Modules[i] = mm
	}
	return &cp
}

// AssignedActivity is the activity payload carried by ledger entries,
// daily results and schedule slots.
type AssignedActivity struct {
	ID              string                  `json:"id"`
	Type            curriculum.ActivityType `json:"type"`
	Title           string                  `json:"title"`
	ModuleTitle     string                  `json:"module_title"`
	DurationMinutes int                     `json:"duration_minutes"`
}

// AssignmentEntry is one row of the assignment ledger: the activity offered
// to a teacher on one calendar day. At most one entry exists per
// (teacher, class, subject, date).
type AssignmentEntry struct {
	Teacher     string           `json:"teacher"`
	Class       string           `json:"class"`
	Subject     string           `json:"subject"`
	Date        time.Time        `json:"date"`
	Activity    AssignedActivity `json:"activity"`
	Status      string           `json:"status"`
	AssignedAt  time.Time        `json:"assigned_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// AttendanceEntry marks a teacher present on one calendar day.
type AttendanceEntry struct {
	Teacher  string    `json:"teacher"`
	Date     time.Time `json:"date"`
	Status   string    `json:"status"`
	MarkedAt time.Time `json:"marked_at"`
}

// DailyResult is the outcome of a daily activity lookup.
type DailyResult struct {
	Date      time.Time         `json:"date"`
	Completed bool              `json:"completed"`
	Activity  *AssignedActivity `json:"activity,omitempty"`
	Message   string            `json:"message"`
}

// DaySlot is one weekday of a weekly schedule.
type DaySlot struct {
	Day       string            `json:"day"`
	Date      time.Time         `json:"date"`
	Activity  *AssignedActivity `json:"activity,omitempty"`
	IsPast    bool              `json:"is_past"`
	IsToday   bool              `json:"is_today"`
	Completed bool              `json:"completed"`
}

// AttendanceSummary is the monthly attendance computation result.
type AttendanceSummary struct {
	Percentage  int    `json:"percentage"`
	DaysPresent int    `json:"days_present"`
	WorkingDays int    `json:"working_days"`
	MonthLabel  string `json:"month_label"`
}
