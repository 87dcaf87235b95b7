package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/edupulse/engine/internal/curriculum"
	"github.com/edupulse/engine/internal/engine"
)

func sampleEntry(activityID string, date time.Time) engine.AssignmentEntry {
	return engine.AssignmentEntry{
		Teacher: "t1@school.test",
		Class:   "class9",
		Subject: "science",
		Date:    date,
		Activity: engine.AssignedActivity{
			ID:          activityID,
			Type:        curriculum.TypeQuiz,
			Title:       "Quiz",
			ModuleTitle: "Module 1",
		},
		Status:     engine.StatusAssigned,
		AssignedAt: date,
	}
}

func TestMemoryStore_PutAssignment_FirstWriterWins(t *testing.T) {
	store := engine.NewMemoryStore()
	ctx := context.Background()

	stored, won, err := store.PutAssignment(ctx, sampleEntry("a-1", monday))
	if err != nil {
		t.Fatalf("PutAssignment() error = %v", err)
	}
	if !won || stored.Activity.ID != "a-1" {
		t.Fatalf("first write: won=%v id=%s, want won with a-1", won, stored.Activity.ID)
	}

	// A second writer with a different pick must lose and observe the winner.
	stored, won, err = store.PutAssignment(ctx, sampleEntry("a-2", monday))
	if err != nil {
		t.Fatalf("second PutAssignment() error = %v", err)
	}
	if won {
		t.Error("second write should lose")
	}
	if stored.Activity.ID != "a-1" {
		t.Errorf("loser observed %s, want the winner a-1", stored.Activity.ID)
	}
}

func TestMemoryStore_CompleteAssignment(t *testing.T) {
	store := engine.NewMemoryStore()
	ctx := context.Background()

	if _, _, err := store.PutAssignment(ctx, sampleEntry("a-1", monday)); err != nil {
		t.Fatalf("PutAssignment() error = %v", err)
	}

	done, err := store.CompleteAssignment(ctx, "t1@school.test", "class9", "science", monday, monday.Add(time.Hour))
	if err != nil {
		t.Fatalf("CompleteAssignment() error = %v", err)
	}
	if !done {
		t.Fatal("CompleteAssignment() = false, want true")
	}

	entry, found, err := store.GetAssignment(ctx, "t1@school.test", "class9", "science", monday)
	if err != nil || !found {
		t.Fatalf("GetAssignment() = %v, %v", found, err)
	}
	if entry.Status != engine.StatusCompleted {
		t.Errorf("status = %s, want completed", entry.Status)
	}
	if entry.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}

	// Completing twice is a no-op.
	done, err = store.CompleteAssignment(ctx, "t1@school.test", "class9", "science", monday, monday.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("second CompleteAssignment() error = %v", err)
	}
	if done {
		t.Error("second CompleteAssignment() = true, want false")
	}
}

func TestMemoryStore_ListAssignments_RangeAndOrder(t *testing.T) {
	store := engine.NewMemoryStore()
	ctx := context.Background()

	wednesday := monday.AddDate(0, 0, 2)
	friday := monday.AddDate(0, 0, 4)
	for _, d := range []time.Time{friday, monday, wednesday} {
		if _, _, err := store.PutAssignment(ctx, sampleEntry("a-"+d.Format("02"), d)); err != nil {
			t.Fatalf("PutAssignment() error = %v", err)
		}
	}

	entries, err := store.ListAssignments(ctx, "t1@school.test", "class9", "science", monday, wednesday)
	if err != nil {
		t.Fatalf("ListAssignments() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if !entries[0].Date.Before(entries[1].Date) {
		t.Error("entries not ordered by date")
	}
}

func TestMemoryStore_PutAttendance_Deduplicates(t *testing.T) {
	store := engine.NewMemoryStore()
	ctx := context.Background()

	entry := engine.AttendanceEntry{
		Teacher:  "t1@school.test",
		Date:     monday,
		Status:   engine.StatusPresent,
		MarkedAt: monday,
	}
	inserted, err := store.PutAttendance(ctx, entry)
	if err != nil || !inserted {
		t.Fatalf("PutAttendance() = %v, %v; want inserted", inserted, err)
	}

	// Same day later in the afternoon: first writer wins.
	entry.MarkedAt = monday.Add(6 * time.Hour)
	inserted, err = store.PutAttendance(ctx, entry)
	if err != nil {
		t.Fatalf("second PutAttendance() error = %v", err)
	}
	if inserted {
		t.Error("second PutAttendance() inserted, want dedup")
	}

	count, err := store.CountAttendance(ctx, "t1@school.test", monday, monday)
	if err != nil {
		t.Fatalf("CountAttendance() error = %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestMemoryStore_ProgressRoundTrip(t *testing.T) {
	store := engine.NewMemoryStore()
	ctx := context.Background()

	_, found, err := store.GetProgress(ctx, "t1@school.test", "class9", "science")
	if err != nil {
		t.Fatalf("GetProgress() error = %v", err)
	}
	if found {
		t.Fatal("GetProgress() found a record in an empty store")
	}

	rec := &engine.ProgressRecord{
		Teacher: "t1@school.test",
		Class:   "class9",
		Subject: "science",
		Modules: []engine.ModuleProgress{{
			Title: "Module 1",
			Activities: []engine.ActivityProgress{
				{ID: "a-1", Type: curriculum.TypeQuiz, Title: "Quiz"},
			},
		}},
		TotalActivities: 1,
	}
	stored, err := store.CreateProgress(ctx, rec)
	if err != nil {
		t.Fatalf("CreateProgress() error = %v", err)
	}

	// Mutating the returned record must not leak into the store.
	stored.Modules[0].Activities[0].Completed = true

	fetched, found, err := store.GetProgress(ctx, "t1@school.test", "class9", "science")
	if err != nil || !found {
		t.Fatalf("GetProgress() = %v, %v", found, err)
	}
	if fetched.Modules[0].Activities[0].Completed {
		t.Error("store aliased the caller's record")
	}
}

func TestMemoryStore_CreateProgress_KeepsExisting(t *testing.T) {
	store := engine.NewMemoryStore()
	ctx := context.Background()

	first := &engine.ProgressRecord{Teacher: "t1@school.test", Class: "class9", Subject: "science", TotalActivities: 20}
	if _, err := store.CreateProgress(ctx, first); err != nil {
		t.Fatalf("CreateProgress() error = %v", err)
	}

	second := &engine.ProgressRecord{Teacher: "t1@school.test", Class: "class9", Subject: "science", TotalActivities: 99}
	stored, err := store.CreateProgress(ctx, second)
	if err != nil {
		t.Fatalf("second CreateProgress() error = %v", err)
	}
	if stored.TotalActivities != 20 {
		t.Errorf("stored TotalActivities = %d, want the first writer's 20", stored.TotalActivities)
	}
}
