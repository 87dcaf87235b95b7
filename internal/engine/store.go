package engine

import (
	"context"
	"sync"
	"time"
)

// Store is the persistence collaborator for progress records, the assignment
// ledger and attendance entries. Insert-if-absent methods are atomic:
// the first writer wins and later writers observe the stored value.
type Store interface {
	// Progress records.
	GetProgress(ctx context.Context, teacher, class, subject string) (*ProgressRecord, bool, error)
	// CreateProgress inserts rec unless a record already exists for its key,
	// and returns the stored record either way.
	CreateProgress(ctx context.Context, rec *ProgressRecord) (*ProgressRecord, error)
	// ReplaceProgress overwrites the full document for rec's key.
	ReplaceProgress(ctx context.Context, rec *ProgressRecord) error

	// Assignment ledger.
	GetAssignment(ctx context.Context, teacher, class, subject string, date time.Time) (*AssignmentEntry, bool, error)
	// PutAssignment inserts entry unless one exists for its (teacher, class,
	// subject, date) key. It returns the stored entry and whether this write won.
	PutAssignment(ctx context.Context, entry AssignmentEntry) (*AssignmentEntry, bool, error)
	// ListAssignments returns entries with from <= date <= to, ordered by date.
	ListAssignments(ctx context.Context, teacher, class, subject string, from, to time.Time) ([]AssignmentEntry, error)
	// CompleteAssignment transitions a day's entry from assigned to completed
	// in place. Returns false when no assigned entry exists for the key.
	CompleteAssignment(ctx context.Context, teacher, class, subject string, date, completedAt time.Time) (bool, error)

	// Attendance entries.
	// PutAttendance inserts entry unless one exists for (teacher, date).
	// Returns whether this write inserted.
	PutAttendance(ctx context.Context, entry AttendanceEntry) (bool, error)
	// CountAttendance counts distinct present dates with from <= date <= to.
	CountAttendance(ctx context.Context, teacher string, from, to time.Time) (int, error)
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu          sync.RWMutex
	progress    map[string]*ProgressRecord
	assignments map[string]*AssignmentEntry
	attendance  map[string]*AttendanceEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		progress:    make(map[string]*ProgressRecord),
		assignments: make(map[string]*AssignmentEntry),
		attendance:  make(map[string]*AttendanceEntry),
	}
}

func progressKey(teacher, class, subject string) string {
	return teacher + "|" + class + "|" + subject
}

func assignmentKey(teacher, class, subject string, date time.Time) string {
	return teacher + "|" + class + "|" + subject + "|" + dateKey(date)
}

func attendanceKey(teacher string, date time.Time) string {
	return teacher + "|" + dateKey(date)
}

func (s *MemoryStore) GetProgress(_ context.Context, teacher, class, subject string) (*ProgressRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.progress[progressKey(teacher, class, subject)]
	if !ok {
		return nil, false, nil
	}
	return rec.clone(), true, nil
}

func (s *MemoryStore) CreateProgress(_ context.Context, rec *ProgressRecord) (*ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := progressKey(rec.Teacher, rec.Class, rec.Subject)
	if existing, ok := s.progress[key]; ok {
		return existing.clone(), nil
	}
	s.progress[key] = rec.clone()
	return rec.clone(), nil
}

func (s *MemoryStore) ReplaceProgress(_ context.Context, rec *ProgressRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.progress[progressKey(rec.Teacher, rec.Class, rec.Subject)] = rec.clone()
	return nil
}

func (s *MemoryStore) GetAssignment(_ context.Context, teacher, class, subject string, date time.Time) (*AssignmentEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.assignments[assignmentKey(teacher, class, subject, date)]
	if !ok {
		return nil, false, nil
	}
	cp := *entry
	return &cp, true, nil
}

func (s *MemoryStore) PutAssignment(_ context.Context, entry AssignmentEntry) (*AssignmentEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.Date = dateOnly(entry.Date)
	key := assignmentKey(entry.Teacher, entry.Class, entry.Subject, entry.Date)
	if existing, ok := s.assignments[key]; ok {
		cp := *existing
		return &cp, false, nil
	}
	stored := entry
	s.assignments[key] = &stored
	cp := stored
	return &cp, true, nil
}

func (s *MemoryStore) ListAssignments(_ context.Context, teacher, class, subject string, from, to time.Time) ([]AssignmentEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from, to = dateOnly(from), dateOnly(to)
	var out []AssignmentEntry
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if entry, ok := s.assignments[assignmentKey(teacher, class, subject, d)]; ok {
			out = append(out, *entry)
		}
	}
	return out, nil
}

func (s *MemoryStore) CompleteAssignment(_ context.Context, teacher, class, subject string, date, completedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.assignments[assignmentKey(teacher, class, subject, date)]
	if !ok || entry.Status != StatusAssigned {
		return false, nil
	}
	ts := completedAt
	entry.Status = StatusCompleted
	entry.CompletedAt = &ts
	return true, nil
}

func (s *MemoryStore) PutAttendance(_ context.Context, entry AttendanceEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.Date = dateOnly(entry.Date)
	key := attendanceKey(entry.Teacher, entry.Date)
	if _, ok := s.attendance[key]; ok {
		return false, nil
	}
	stored := entry
	s.attendance[key] = &stored
	return true, nil
}

func (s *MemoryStore) CountAttendance(_ context.Context, teacher string, from, to time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from, to = dateOnly(from), dateOnly(to)
	count := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if entry, ok := s.attendance[attendanceKey(teacher, d)]; ok && entry.Status == StatusPresent {
			count++
		}
	}
	return count, nil
}
