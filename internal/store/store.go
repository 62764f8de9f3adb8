package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/avkuzmin/schedule-parser/internal/directory"
	"github.com/avkuzmin/schedule-parser/internal/timetable"
)

// RunStatus is the lifecycle state of one parser run.
type RunStatus string

const (
	RunStarted RunStatus = "started"
	RunSuccess RunStatus = "success"
	RunPartial RunStatus = "partial"
	RunFailed  RunStatus = "failed"
)

// RunSummary carries the final counters of a parser run.
type RunSummary struct {
	Status       RunStatus
	Message      string
	GroupsTotal  int
	GroupsOK     int
	GroupsFailed int
	EventsSaved  int
}

// Store wraps a Postgres connection pool.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres through the pgx stdlib driver and verifies the
// connection. The caller owns the returned pool and must close it.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return db, nil
}

// New creates a Store over an existing pool.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateRun records the start of a parser run and returns its identifier.
func (s *Store) CreateRun(ctx context.Context) (uuid.UUID, error) {
	id := uuid.New()
	const query = `
INSERT INTO parser_runs (id, status, started_at)
VALUES ($1, $2, now())
`
	if _, err := s.db.ExecContext(ctx, query, id, RunStarted); err != nil {
		return uuid.Nil, fmt.Errorf("creating parser run: %w", err)
	}
	return id, nil
}

// FinishRun stamps a run with its final status and counters.
func (s *Store) FinishRun(ctx context.Context, id uuid.UUID, summary RunSummary) error {
	const query = `
UPDATE parser_runs
SET finished_at = now(),
    status = $2,
    message = $3,
    groups_total = $4,
    groups_ok = $5,
    groups_failed = $6,
    events_saved = $7
WHERE id = $1
`
	_, err := s.db.ExecContext(ctx, query,
		id, summary.Status, nullableString(summary.Message),
		summary.GroupsTotal, summary.GroupsOK, summary.GroupsFailed, summary.EventsSaved,
	)
	if err != nil {
		return fmt.Errorf("finishing parser run %s: %w", id, err)
	}
	return nil
}

// UpsertGroups inserts or refreshes directory groups by code.
func (s *Store) UpsertGroups(ctx context.Context, groups []directory.Group) error {
	if len(groups) == 0 {
		return nil
	}
	const query = `
INSERT INTO groups (code, page_url, active)
VALUES ($1, $2, TRUE)
ON CONFLICT (code)
DO UPDATE SET
  page_url = EXCLUDED.page_url,
  active = TRUE,
  updated_at = now()
`
	for _, g := range groups {
		if _, err := s.db.ExecContext(ctx, query, g.Code, g.URL); err != nil {
			return fmt.Errorf("upserting group %s: %w", g.Code, err)
		}
	}
	return nil
}

// GroupID resolves a group code to its database id.
func (s *Store) GroupID(ctx context.Context, code string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM groups WHERE code = $1`, code).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("resolving group %s: %w", code, err)
	}
	return id, nil
}

// ReplaceEventsForGroup replaces a group's events within [from, to]: prior
// rows in the window are deleted, the new set is deduplicated, reference
// rows are upserted and the survivors bulk-inserted, all in one
// transaction. Returns the number of inserted events.
func (s *Store) ReplaceEventsForGroup(ctx context.Context, groupID int64, from, to time.Time, events []timetable.Event) (int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const deleteQuery = `
DELETE FROM lesson_events
WHERE group_id = $1
  AND event_date BETWEEN $2 AND $3
`
	if _, err := tx.ExecContext(ctx, deleteQuery, groupID, dateOnly(from), dateOnly(to)); err != nil {
		return 0, fmt.Errorf("deleting prior events: %w", err)
	}

	unique := Dedup(events)

	const insertQuery = `
INSERT INTO lesson_events (
  event_date, group_id, slot_number, subgroup,
  subject_id, teacher_id, room_id,
  lesson_type,
  source_group_url, source_journal_url, source_teacher_url, source_room_url,
  subject_text, teacher_text, room_text,
  updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now())
`
	for _, ev := range unique {
		subjectID, teacherID, roomID, err := s.resolveRefs(ctx, tx, ev)
		if err != nil {
			return 0, err
		}
		_, err = tx.ExecContext(ctx, insertQuery,
			dateOnly(ev.Date), groupID, ev.Slot, ev.Subgroup,
			subjectID, teacherID, roomID,
			nullableString(ev.LessonType),
			ev.GroupURL, nullableString(ev.JournalURL), nullableString(ev.TeacherURL), nullableString(ev.RoomURL),
			ev.Subject, nullableString(ev.Teacher), nullableString(ev.Room),
		)
		if err != nil {
			return 0, fmt.Errorf("inserting event %s slot %d: %w", ev.Date.Format(dateKeyFormat), ev.Slot, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing events: %w", err)
	}
	return len(unique), nil
}

// resolveRefs upserts the subject/teacher/room reference rows an event
// mentions and returns their ids. Absent names yield NULL references.
func (s *Store) resolveRefs(ctx context.Context, tx *sql.Tx, ev timetable.Event) (subjectID, teacherID, roomID sql.NullInt64, err error) {
	if ev.Subject != "" {
		const query = `
INSERT INTO subjects (name)
VALUES ($1)
ON CONFLICT (name) DO UPDATE SET updated_at = now()
RETURNING id
`
		if err = tx.QueryRowContext(ctx, query, ev.Subject).Scan(&subjectID.Int64); err != nil {
			return subjectID, teacherID, roomID, fmt.Errorf("upserting subject %q: %w", ev.Subject, err)
		}
		subjectID.Valid = true
	}
	if ev.Teacher != "" {
		// Keep the first known source URL for a teacher.
		const query = `
INSERT INTO teachers (name, source_url)
VALUES ($1, $2)
ON CONFLICT (name)
DO UPDATE SET
  source_url = COALESCE(teachers.source_url, EXCLUDED.source_url),
  updated_at = now()
RETURNING id
`
		if err = tx.QueryRowContext(ctx, query, ev.Teacher, nullableString(ev.TeacherURL)).Scan(&teacherID.Int64); err != nil {
			return subjectID, teacherID, roomID, fmt.Errorf("upserting teacher %q: %w", ev.Teacher, err)
		}
		teacherID.Valid = true
	}
	if ev.Room != "" {
		const query = `
INSERT INTO rooms (name, source_url)
VALUES ($1, $2)
ON CONFLICT (name)
DO UPDATE SET
  source_url = COALESCE(rooms.source_url, EXCLUDED.source_url),
  updated_at = now()
RETURNING id
`
		if err = tx.QueryRowContext(ctx, query, ev.Room, nullableString(ev.RoomURL)).Scan(&roomID.Int64); err != nil {
			return subjectID, teacherID, roomID, fmt.Errorf("upserting room %q: %w", ev.Room, err)
		}
		roomID.Valid = true
	}
	return subjectID, teacherID, roomID, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
