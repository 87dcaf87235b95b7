package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/edupulse/engine/internal/curriculum"
	"github.com/edupulse/engine/internal/engine"
)

func TestWeeklySchedule_FiveWeekdaySlots(t *testing.T) {
	eng := newTestEngine(engine.NewMemoryStore(), monday)

	slots, err := eng.WeeklySchedule(context.Background(), "t1@school.test", "class9", "science", monday)
	if err != nil {
		t.Fatalf("WeeklySchedule() error = %v", err)
	}
	if len(slots) != 5 {
		t.Fatalf("slots = %d, want 5", len(slots))
	}

	wantDays := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}
	for i, slot := range slots {
		if slot.Day != wantDays[i] {
			t.Errorf("slot %d day = %s, want %s", i, slot.Day, wantDays[i])
		}
		if slot.Activity == nil {
			t.Errorf("slot %d has no activity", i)
		}
	}
	if !slots[0].IsToday {
		t.Error("Monday slot should be marked today")
	}
	if slots[1].IsPast || slots[4].IsPast {
		t.Error("future slots marked past")
	}
}

func TestWeeklySchedule_TypeVariety(t *testing.T) {
	eng := newTestEngine(engine.NewMemoryStore(), monday)

	slots, err := eng.WeeklySchedule(context.Background(), "t1@school.test", "class9", "science", monday)
	if err != nil {
		t.Fatalf("WeeklySchedule() error = %v", err)
	}

	types := make(map[curriculum.ActivityType]struct{})
	for _, slot := range slots {
		types[slot.Activity.Type] = struct{}{}
	}
	if len(types) != 5 {
		t.Errorf("distinct types in week = %d, want 5", len(types))
	}
}

func TestWeeklySchedule_NoDuplicateActivities(t *testing.T) {
	eng := newTestEngine(engine.NewMemoryStore(), monday)

	slots, err := eng.WeeklySchedule(context.Background(), "t1@school.test", "class9", "science", monday)
	if err != nil {
		t.Fatalf("WeeklySchedule() error = %v", err)
	}

	seen := make(map[string]struct{})
	for _, slot := range slots {
		if _, dup := seen[slot.Activity.ID]; dup {
			t.Errorf("activity %s assigned to two days", slot.Activity.ID)
		}
		seen[slot.Activity.ID] = struct{}{}
	}
}

func TestWeeklySchedule_IdempotentAcrossDays(t *testing.T) {
	store := engine.NewMemoryStore()
	ctx := context.Background()

	first, err := newTestEngine(store, monday).
		WeeklySchedule(ctx, "t1@school.test", "class9", "science", monday)
	if err != nil {
		t.Fatalf("Monday WeeklySchedule() error = %v", err)
	}

	wednesday := monday.AddDate(0, 0, 2)
	second, err := newTestEngine(store, wednesday).
		WeeklySchedule(ctx, "t1@school.test", "class9", "science", wednesday)
	if err != nil {
		t.Fatalf("Wednesday WeeklySchedule() error = %v", err)
	}

	for i := range first {
		if first[i].Activity.ID != second[i].Activity.ID {
			t.Errorf("slot %d changed between builds: %s vs %s", i, first[i].Activity.ID, second[i].Activity.ID)
		}
	}
	if !second[2].IsToday {
		t.Error("Wednesday slot should be marked today on the second build")
	}
	if !second[0].IsPast || !second[1].IsPast {
		t.Error("Monday and Tuesday should be past on the second build")
	}
}

func TestWeeklySchedule_NeverWritesRetroactiveHistory(t *testing.T) {
	store := engine.NewMemoryStore()
	ctx := context.Background()
	wednesday := monday.AddDate(0, 0, 2)

	slots, err := newTestEngine(store, wednesday).
		WeeklySchedule(ctx, "t1@school.test", "class9", "science", wednesday)
	if err != nil {
		t.Fatalf("WeeklySchedule() error = %v", err)
	}
	if slots[0].Activity == nil || slots[1].Activity == nil {
		t.Fatal("past slots should still show scheduled activities")
	}

	for _, date := range []time.Time{monday, monday.AddDate(0, 0, 1)} {
		if _, found, err := store.GetAssignment(ctx, "t1@school.test", "class9", "science", date); err != nil {
			t.Fatalf("GetAssignment() error = %v", err)
		} else if found {
			t.Errorf("ledger entry fabricated for past day %s", date.Format("2006-01-02"))
		}
	}
	for i := 2; i < 5; i++ {
		date := monday.AddDate(0, 0, i)
		if _, found, err := store.GetAssignment(ctx, "t1@school.test", "class9", "science", date); err != nil {
			t.Fatalf("GetAssignment() error = %v", err)
		} else if !found {
			t.Errorf("no ledger entry persisted for %s", date.Format("2006-01-02"))
		}
	}
}

func TestWeeklySchedule_ReusesDailyAssignment(t *testing.T) {
	store := engine.NewMemoryStore()
	eng := newTestEngine(store, monday)
	ctx := context.Background()

	daily, err := eng.DailyActivity(ctx, "t1@school.test", "class9", "science", monday)
	if err != nil {
		t.Fatalf("DailyActivity() error = %v", err)
	}

	slots, err := eng.WeeklySchedule(ctx, "t1@school.test", "class9", "science", monday)
	if err != nil {
		t.Fatalf("WeeklySchedule() error = %v", err)
	}
	if slots[0].Activity.ID != daily.Activity.ID {
		t.Errorf("Monday slot = %s, want the daily pick %s", slots[0].Activity.ID, daily.Activity.ID)
	}
}

func TestWeeklySchedule_ShowsCompletedDays(t *testing.T) {
	store := engine.NewMemoryStore()
	eng := newTestEngine(store, monday)
	ctx := context.Background()

	daily, err := eng.DailyActivity(ctx, "t1@school.test", "class9", "science", monday)
	if err != nil {
		t.Fatalf("DailyActivity() error = %v", err)
	}
	if _, err := eng.MarkCompleted(ctx, "t1@school.test", "class9", "science", daily.Activity.ID); err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}

	slots, err := eng.WeeklySchedule(ctx, "t1@school.test", "class9", "science", monday)
	if err != nil {
		t.Fatalf("WeeklySchedule() error = %v", err)
	}
	if !slots[0].Completed {
		t.Error("Monday slot should be completed")
	}
	if slots[1].Completed {
		t.Error("Tuesday slot should not be completed")
	}
}

func TestWeeklySchedule_SmallCurriculumAllowsRepeats(t *testing.T) {
	cur := curriculum.Curriculum{
		Class:   "class9",
		Subject: "maths",
		Modules: []curriculum.Module{{
			Title: "Algebra",
			Activities: []curriculum.Activity{
				{ID: "m-1", Type: curriculum.TypeQuiz, Title: "Q1"},
				{ID: "m-2", Type: curriculum.TypeVideo, Title: "V1"},
			},
		}},
	}
	eng := newEngineWithCurriculum(cur, engine.NewMemoryStore(), monday)

	slots, err := eng.WeeklySchedule(context.Background(), "t1@school.test", "class9", "maths", monday)
	if err != nil {
		t.Fatalf("WeeklySchedule() error = %v", err)
	}
	for i, slot := range slots {
		if slot.Activity == nil {
			t.Errorf("slot %d empty; with fewer activities than days, repeats are expected", i)
		}
	}
}

func TestWeeklySchedule_ZeroDateRejected(t *testing.T) {
	eng := newTestEngine(engine.NewMemoryStore(), monday)

	if _, err := eng.WeeklySchedule(context.Background(), "t1@school.test", "class9", "science", time.Time{}); err == nil {
		t.Fatal("WeeklySchedule(zero date) should fail")
	}
}
