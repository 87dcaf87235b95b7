// Package engine implements the curriculum progress and activity scheduling
// core: progress materialization, deterministic daily and weekly activity
// selection, idempotent completion recording and monthly attendance math.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/edupulse/engine/internal/curriculum"
)

// ErrMissingDate is returned when a caller passes a zero reference date.
// Scheduling determinism depends on the date, so it is never defaulted.
var ErrMissingDate = errors.New("engine: reference date is required")

// Catalog serves read-only curriculum lookups. curriculum.Loader satisfies it.
type Catalog interface {
	Get(class, subject string) (curriculum.Curriculum, bool)
}

// Config holds dependencies for the engine.
type Config struct {
	Store           Store
	Catalog         Catalog
	Events          EventLogger
	AttendanceCache AttendanceCache // optional read-through cache
	Now             func() time.Time
}

// Engine is the scheduling and progress core. It holds no per-teacher state;
// all coordination happens through the store's insert-if-absent primitives.
type Engine struct {
	store   Store
	catalog Catalog
	events  EventLogger
	cache   AttendanceCache
	now     func() time.Time
}

// New creates an engine. A nil store defaults to an in-memory store and a nil
// event logger to a no-op logger.
func New(cfg Config) *Engine {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = emptyCatalog{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		store:   store,
		catalog: catalog,
		events:  events,
		cache:   cfg.AttendanceCache,
		now:     now,
	}
}

type emptyCatalog struct{}

func (emptyCatalog) Get(string, string) (curriculum.Curriculum, bool) {
	return curriculum.Curriculum{}, false
}

// GetOrInit returns the teacher's progress record for (class, subject),
// materializing it from the catalog on first access. A missing curriculum
// yields a well-formed zero-valued record rather than an error; the zero
// record is not persisted so a later-seeded curriculum can still materialize.
func (e *Engine) GetOrInit(ctx context.Context, teacher, class, subject string) (*ProgressRecord, error) {
	rec, found, err := e.store.GetProgress(ctx, teacher, class, subject)
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	if found {
		return rec, nil
	}

	cur, ok := e.catalog.Get(class, subject)
	if !ok {
		now := e.now()
		return &ProgressRecord{
			Teacher:   teacher,
			Class:     class,
			Subject:   subject,
			CreatedAt: now,
			UpdatedAt: now,
		}, nil
	}

	fresh := newProgressRecord(teacher, cur, e.now())
	stored, err := e.store.CreateProgress(ctx, fresh)
	if err != nil {
		return nil, fmt.Errorf("create progress: %w", err)
	}
	slog.Info("progress record initialized",
		"teacher", teacher,
		"class", class,
		"subject", subject,
		"total_activities", stored.TotalActivities,
	)
	return stored, nil
}

// MarkCompleted records the completion of an activity. It returns false when
// the activity id is unknown or already completed; duplicate submissions are
// an expected outcome, not an error. A successful completion also marks the
// teacher present for the day and closes today's ledger entry when it
// references the same activity.
func (e *Engine) MarkCompleted(ctx context.Context, teacher, class, subject, activityID string) (bool, error) {
	rec, err := e.GetOrInit(ctx, teacher, class, subject)
	if err != nil {
		return false, err
	}

	now := e.now()
	if !rec.markCompleted(activityID, now) {
		return false, nil
	}
	if err := e.store.ReplaceProgress(ctx, rec); err != nil {
		return false, fmt.Errorf("replace progress: %w", err)
	}

	today := dateOnly(now)

	inserted, err := e.store.PutAttendance(ctx, AttendanceEntry{
		Teacher:  teacher,
		Date:     today,
		Status:   StatusPresent,
		MarkedAt: now,
	})
	if err != nil {
		return false, fmt.Errorf("record attendance: %w", err)
	}
	if inserted {
		e.invalidateAttendanceCache(ctx, teacher, today)
		e.logEvent(Event{
			Teacher:   teacher,
			Class:     class,
			Subject:   subject,
			EventType: EventAttendanceMarked,
			Data:      map[string]any{"date": dateKey(today)},
		})
	}

	entry, found, err := e.store.GetAssignment(ctx, teacher, class, subject, today)
	if err != nil {
		return false, fmt.Errorf("get assignment: %w", err)
	}
	if found && entry.Status == StatusAssigned && entry.Activity.ID == activityID {
		if _, err := e.store.CompleteAssignment(ctx, teacher, class, subject, today, now); err != nil {
			return false, fmt.Errorf("complete assignment: %w", err)
		}
	}

	e.logEvent(Event{
		Teacher:   teacher,
		Class:     class,
		Subject:   subject,
		EventType: EventActivityCompleted,
		Data: map[string]any{
			"activity_id":         activityID,
			"progress_percentage": rec.ProgressPercent,
		},
	})
	return true, nil
}

// logEvent records an analytics event; failures never fail the operation.
func (e *Engine) logEvent(event Event) {
	if err := e.events.LogEvent(event); err != nil {
		slog.Warn("event logging failed", "type", event.EventType, "error", err)
	}
}
