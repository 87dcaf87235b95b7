package engine_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/edupulse/engine/internal/curriculum"
	"github.com/edupulse/engine/internal/engine"
)

// staticCatalog is a Catalog backed by a plain map for tests.
type staticCatalog map[string]curriculum.Curriculum

func (c staticCatalog) Get(class, subject string) (curriculum.Curriculum, bool) {
	cur, ok := c[curriculum.Key(class, subject)]
	return cur, ok
}

// scienceCurriculum builds a 20-activity curriculum with four activities of
// each of the five types.
func scienceCurriculum() curriculum.Curriculum {
	cur := curriculum.Curriculum{Class: "class9", Subject: "science"}
	for m := 0; m < 4; m++ {
		mod := curriculum.Module{Title: fmt.Sprintf("Module %d", m+1)}
		for i, typ := range curriculum.Types {
			mod.Activities = append(mod.Activities, curriculum.Activity{
				ID:              fmt.Sprintf("sci-%d-%d", m+1, i+1),
				Type:            typ,
				Title:           fmt.Sprintf("Activity %d.%d", m+1, i+1),
				DurationMinutes: 15,
			})
		}
		cur.Modules = append(cur.Modules, mod)
	}
	return cur
}

// monday is a fixed reference Monday used across tests.
var monday = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func newTestEngine(store engine.Store, now time.Time) *engine.Engine {
	return engine.New(engine.Config{
		Store: store,
		Catalog: staticCatalog{
			curriculum.Key("class9", "science"): scienceCurriculum(),
		},
		Now: func() time.Time { return now },
	})
}

func TestGetOrInit_MaterializesFromCatalog(t *testing.T) {
	eng := newTestEngine(engine.NewMemoryStore(), monday)

	rec, err := eng.GetOrInit(context.Background(), "t1@school.test", "class9", "science")
	if err != nil {
		t.Fatalf("GetOrInit() error = %v", err)
	}
	if rec.TotalActivities != 20 {
		t.Errorf("TotalActivities = %d, want 20", rec.TotalActivities)
	}
	if rec.CompletedActivities != 0 {
		t.Errorf("CompletedActivities = %d, want 0", rec.CompletedActivities)
	}
	if rec.ProgressPercent != 0 {
		t.Errorf("ProgressPercent = %d, want 0", rec.ProgressPercent)
	}
	if len(rec.Modules) != 4 {
		t.Errorf("Modules = %d, want 4", len(rec.Modules))
	}
}

func TestGetOrInit_MissingCurriculum(t *testing.T) {
	eng := newTestEngine(engine.NewMemoryStore(), monday)

	rec, err := eng.GetOrInit(context.Background(), "t1@school.test", "class12", "history")
	if err != nil {
		t.Fatalf("GetOrInit() error = %v", err)
	}
	if rec == nil {
		t.Fatal("GetOrInit() returned nil record for missing curriculum")
	}
	if rec.TotalActivities != 0 || rec.ProgressPercent != 0 {
		t.Errorf("zero record has totals %d/%d%%, want 0/0%%", rec.TotalActivities, rec.ProgressPercent)
	}
}

func TestGetOrInit_ReturnsSameRecordOnSecondCall(t *testing.T) {
	store := engine.NewMemoryStore()
	eng := newTestEngine(store, monday)
	ctx := context.Background()

	first, err := eng.GetOrInit(ctx, "t1@school.test", "class9", "science")
	if err != nil {
		t.Fatalf("GetOrInit() error = %v", err)
	}

	if _, err := eng.MarkCompleted(ctx, "t1@school.test", "class9", "science", "sci-1-1"); err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}

	second, err := eng.GetOrInit(ctx, "t1@school.test", "class9", "science")
	if err != nil {
		t.Fatalf("GetOrInit() error = %v", err)
	}
	if second.CompletedActivities != 1 {
		t.Errorf("second fetch CompletedActivities = %d, want 1", second.CompletedActivities)
	}
	if first.CreatedAt != second.CreatedAt {
		t.Errorf("CreatedAt changed between fetches: %v vs %v", first.CreatedAt, second.CreatedAt)
	}
}

func TestMarkCompleted_UpdatesCounters(t *testing.T) {
	eng := newTestEngine(engine.NewMemoryStore(), monday)
	ctx := context.Background()

	ok, err := eng.MarkCompleted(ctx, "t1@school.test", "class9", "science", "sci-1-1")
	if err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}
	if !ok {
		t.Fatal("MarkCompleted() = false, want true")
	}

	rec, err := eng.GetOrInit(ctx, "t1@school.test", "class9", "science")
	if err != nil {
		t.Fatalf("GetOrInit() error = %v", err)
	}
	if rec.CompletedActivities != 1 {
		t.Errorf("CompletedActivities = %d, want 1", rec.CompletedActivities)
	}
	if rec.ProgressPercent != 5 {
		t.Errorf("ProgressPercent = %d, want 5", rec.ProgressPercent)
	}
	if rec.Modules[0].CompletedActivities != 1 {
		t.Errorf("module counter = %d, want 1", rec.Modules[0].CompletedActivities)
	}
}

func TestMarkCompleted_DuplicateIsNoOp(t *testing.T) {
	eng := newTestEngine(engine.NewMemoryStore(), monday)
	ctx := context.Background()

	if _, err := eng.MarkCompleted(ctx, "t1@school.test", "class9", "science", "sci-1-1"); err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}

	ok, err := eng.MarkCompleted(ctx, "t1@school.test", "class9", "science", "sci-1-1")
	if err != nil {
		t.Fatalf("duplicate MarkCompleted() error = %v", err)
	}
	if ok {
		t.Error("duplicate MarkCompleted() = true, want false")
	}

	rec, _ := eng.GetOrInit(ctx, "t1@school.test", "class9", "science")
	if rec.CompletedActivities != 1 {
		t.Errorf("CompletedActivities after duplicate = %d, want 1", rec.CompletedActivities)
	}
}

func TestMarkCompleted_UnknownActivity(t *testing.T) {
	eng := newTestEngine(engine.NewMemoryStore(), monday)

	ok, err := eng.MarkCompleted(context.Background(), "t1@school.test", "class9", "science", "nope-999")
	if err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}
	if ok {
		t.Error("MarkCompleted(unknown id) = true, want false")
	}
}

func TestMarkCompleted_RecordsAttendanceOnce(t *testing.T) {
	store := engine.NewMemoryStore()
	eng := newTestEngine(store, monday)
	ctx := context.Background()

	if _, err := eng.MarkCompleted(ctx, "t1@school.test", "class9", "science", "sci-1-1"); err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}
	if _, err := eng.MarkCompleted(ctx, "t1@school.test", "class9", "science", "sci-1-2"); err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}

	count, err := store.CountAttendance(ctx, "t1@school.test", monday, monday)
	if err != nil {
		t.Fatalf("CountAttendance() error = %v", err)
	}
	if count != 1 {
		t.Errorf("attendance entries for the day = %d, want 1", count)
	}
}

func TestProgressMonotonicity(t *testing.T) {
	eng := newTestEngine(engine.NewMemoryStore(), monday)
	ctx := context.Background()

	prev := -1
	for m := 1; m <= 4; m++ {
		for i := 1; i <= 5; i++ {
			id := fmt.Sprintf("sci-%d-%d", m, i)
			if _, err := eng.MarkCompleted(ctx, "t1@school.test", "class9", "science", id); err != nil {
				t.Fatalf("MarkCompleted(%s) error = %v", id, err)
			}
			rec, err := eng.GetOrInit(ctx, "t1@school.test", "class9", "science")
			if err != nil {
				t.Fatalf("GetOrInit() error = %v", err)
			}
			if rec.ProgressPercent < prev {
				t.Fatalf("ProgressPercent decreased: %d -> %d", prev, rec.ProgressPercent)
			}
			prev = rec.ProgressPercent
		}
	}
	if prev != 100 {
		t.Errorf("final ProgressPercent = %d, want 100", prev)
	}
}
