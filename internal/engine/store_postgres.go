package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store implementation. Insert-if-absent
// is expressed as INSERT ... ON CONFLICT DO NOTHING followed by a re-read of
// the winner, never as read-then-write.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

// schema holds the DDL for the engine's tables.
const schema = `
CREATE TABLE IF NOT EXISTS progress_records (
    teacher_email TEXT NOT NULL,
    class_level   TEXT NOT NULL,
    subject       TEXT NOT NULL,
    record        JSONB NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (teacher_email, class_level, subject)
);

CREATE TABLE IF NOT EXISTS assignment_ledger (
    teacher_email  TEXT NOT NULL,
    class_level    TEXT NOT NULL,
    subject        TEXT NOT NULL,
    assigned_on    DATE NOT NULL,
    activity_id    TEXT NOT NULL,
    activity_type  TEXT NOT NULL,
    activity_title TEXT NOT NULL,
    module_title   TEXT NOT NULL,
    duration_min   INT NOT NULL DEFAULT 0,
    status         TEXT NOT NULL,
    assigned_at    TIMESTAMPTZ NOT NULL,
    completed_at   TIMESTAMPTZ,
    PRIMARY KEY (teacher_email, class_level, subject, assigned_on)
);

CREATE TABLE IF NOT EXISTS attendance_entries (
    teacher_email TEXT NOT NULL,
    attended_on   DATE NOT NULL,
    status        TEXT NOT NULL,
    marked_at     TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (teacher_email, attended_on)
);

CREATE TABLE IF NOT EXISTS engine_events (
    id            BIGSERIAL PRIMARY KEY,
    teacher_email TEXT NOT NULL,
    class_level   TEXT NOT NULL DEFAULT '',
    subject       TEXT NOT NULL DEFAULT '',
    event_type    TEXT NOT NULL,
    data          JSONB NOT NULL DEFAULT '{}',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates the engine's tables when they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetProgress(ctx context.Context, teacher, class, subject string) (*ProgressRecord, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT record FROM progress_records
		 WHERE teacher_email = $1 AND class_level = $2 AND subject = $3`,
		teacher, class, subject,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select progress: %w", err)
	}

	var rec ProgressRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false, fmt.Errorf("decode progress record: %w", err)
	}
	return &rec, true, nil
}

func (s *PostgresStore) CreateProgress(ctx context.Context, rec *ProgressRecord) (*ProgressRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode progress record: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO progress_records (teacher_email, class_level, subject, record, created_at, updated_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5, $6)
		 ON CONFLICT (teacher_email, class_level, subject) DO NOTHING`,
		rec.Teacher, rec.Class, rec.Subject, string(raw), rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert progress: %w", err)
	}

	stored, found, err := s.GetProgress(ctx, rec.Teacher, rec.Class, rec.Subject)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("progress record vanished after insert")
	}
	return stored, nil
}

func (s *PostgresStore) ReplaceProgress(ctx context.Context, rec *ProgressRecord) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode progress record: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO progress_records (teacher_email, class_level, subject, record, created_at, updated_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5, $6)
		 ON CONFLICT (teacher_email, class_level, subject)
		 DO UPDATE SET record = EXCLUDED.record, updated_at = EXCLUDED.updated_at`,
		rec.Teacher, rec.Class, rec.Subject, string(raw), rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("replace progress: %w", err)
	}
	return nil
}

const assignmentColumns = `teacher_email, class_level, subject, assigned_on,
	activity_id, activity_type, activity_title, module_title, duration_min,
	status, assigned_at, completed_at`

func scanAssignment(row pgx.Row) (*AssignmentEntry, error) {
	var entry AssignmentEntry
	err := row.Scan(
		&entry.Teacher, &entry.Class, &entry.Subject, &entry.Date,
		&entry.Activity.ID, &entry.Activity.Type, &entry.Activity.Title,
		&entry.Activity.ModuleTitle, &entry.Activity.DurationMinutes,
		&entry.Status, &entry.AssignedAt, &entry.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	entry.Date = dateOnly(entry.Date)
	return &entry, nil
}

func (s *PostgresStore) GetAssignment(ctx context.Context, teacher, class, subject string, date time.Time) (*AssignmentEntry, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM assignment_ledger
		 WHERE teacher_email = $1 AND class_level = $2 AND subject = $3 AND assigned_on = $4`,
		teacher, class, subject, dateOnly(date),
	)
	entry, err := scanAssignment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select assignment: %w", err)
	}
	return entry, true, nil
}

func (s *PostgresStore) PutAssignment(ctx context.Context, entry AssignmentEntry) (*AssignmentEntry, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO assignment_ledger (`+assignmentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (teacher_email, class_level, subject, assigned_on) DO NOTHING`,
		entry.Teacher, entry.Class, entry.Subject, dateOnly(entry.Date),
		entry.Activity.ID, entry.Activity.Type, entry.Activity.Title,
		entry.Activity.ModuleTitle, entry.Activity.DurationMinutes,
		entry.Status, entry.AssignedAt, entry.CompletedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert assignment: %w", err)
	}
	won := tag.RowsAffected() > 0

	// Losing writers adopt the stored entry.
	stored, found, err := s.GetAssignment(ctx, entry.Teacher, entry.Class, entry.Subject, entry.Date)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, fmt.Errorf("assignment vanished after insert")
	}
	return stored, won, nil
}

func (s *PostgresStore) ListAssignments(ctx context.Context, teacher, class, subject string, from, to time.Time) ([]AssignmentEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+assignmentColumns+` FROM assignment_ledger
		 WHERE teacher_email = $1 AND class_level = $2 AND subject = $3
		   AND assigned_on BETWEEN $4 AND $5
		 ORDER BY assigned_on`,
		teacher, class, subject, dateOnly(from), dateOnly(to),
	)
	if err != nil {
		return nil, fmt.Errorf("select assignments: %w", err)
	}
	defer rows.Close()

	var entries []AssignmentEntry
	for rows.Next() {
		entry, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) CompleteAssignment(ctx context.Context, teacher, class, subject string, date, completedAt time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx,
		`UPDATE assignment_ledger
		 SET status = $1, completed_at = $2
		 WHERE teacher_email = $3 AND class_level = $4 AND subject = $5
		   AND assigned_on = $6 AND status = $7`,
		StatusCompleted, completedAt, teacher, class, subject, dateOnly(date), StatusAssigned,
	)
	if err != nil {
		return false, fmt.Errorf("complete assignment: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) PutAttendance(ctx context.Context, entry AttendanceEntry) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO attendance_entries (teacher_email, attended_on, status, marked_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (teacher_email, attended_on) DO NOTHING`,
		entry.Teacher, dateOnly(entry.Date), entry.Status, entry.MarkedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert attendance: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) CountAttendance(ctx context.Context, teacher string, from, to time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT attended_on) FROM attendance_entries
		 WHERE teacher_email = $1 AND status = $2 AND attended_on BETWEEN $3 AND $4`,
		teacher, StatusPresent, dateOnly(from), dateOnly(to),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count attendance: %w", err)
	}
	return count, nil
}
