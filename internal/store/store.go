// File: internal/store/store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aonoki/unifetch/internal/portal"
)

// DBPool abstracts pgxpool.Pool so the store can be mocked in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Key addresses one student's records: institution-assigned enrollment year,
// student identifier, and the academic year being written.
type Key struct {
	EnrollmentYear int
	StudentID      string
	AcademicYear   int
}

// KeyFor derives the enrollment year from the student identifier's two-digit
// prefix (e.g. "2437109t" enrolled in 2024).
func KeyFor(studentID string, academicYear int) (Key, error) {
	if len(studentID) < 2 {
		return Key{}, fmt.Errorf("student id %q too short to carry an enrollment year", studentID)
	}
	yy, err := strconv.Atoi(studentID[:2])
	if err != nil {
		return Key{}, fmt.Errorf("student id %q has no numeric enrollment prefix", studentID)
	}
	return Key{
		EnrollmentYear: 2000 + yy,
		StudentID:      studentID,
		AcademicYear:   academicYear,
	}, nil
}

// Store persists normalized records into Postgres. Upserts are idempotent on
// each record type's identity key, so re-running a fetch converges instead of
// duplicating.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{pool: pool, log: logger.Named("store")}, nil
}

// InitSchema creates the tables if they do not exist yet.
func (s *Store) InitSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS assignments (
			student_id      TEXT NOT NULL,
			enrollment_year INT NOT NULL,
			course          TEXT NOT NULL,
			title           TEXT NOT NULL,
			deadline        TEXT NOT NULL,
			url             TEXT NOT NULL,
			PRIMARY KEY (student_id, url)
		);`,
		`CREATE TABLE IF NOT EXISTS timetable (
			student_id      TEXT NOT NULL,
			enrollment_year INT NOT NULL,
			academic_year   INT NOT NULL,
			quarter         INT NOT NULL,
			code            TEXT NOT NULL,
			day             TEXT NOT NULL,
			period          INT NOT NULL,
			teacher         TEXT NOT NULL,
			title           TEXT NOT NULL,
			room            TEXT,
			PRIMARY KEY (student_id, academic_year, quarter, code, day, period)
		);`,
		`CREATE TABLE IF NOT EXISTS shared_rooms (
			academic_year INT NOT NULL,
			quarter       INT NOT NULL,
			code          TEXT NOT NULL,
			room          TEXT NOT NULL,
			PRIMARY KEY (academic_year, quarter, code)
		);`,
	}
	for _, stmt := range ddl {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// PutAssignments upserts one run's assignment list.
func (s *Store) PutAssignments(ctx context.Context, key Key, recs []portal.AssignmentRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	const q = `
		INSERT INTO assignments (student_id, enrollment_year, course, title, deadline, url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (student_id, url) DO UPDATE SET
			course   = EXCLUDED.course,
			title    = EXCLUDED.title,
			deadline = EXCLUDED.deadline;`
	for _, r := range recs {
		if _, err := tx.Exec(ctx, q, key.StudentID, key.EnrollmentYear, r.Course, r.Title, r.Deadline, r.URL); err != nil {
			return fmt.Errorf("failed to upsert assignment %q: %w", r.URL, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// PutTimetable upserts one run's timetable, quarter by quarter in parallel.
// A shared (cross-user) room record, when present, overrides the per-user
// scraped room for the same lesson code.
func (s *Store) PutTimetable(ctx context.Context, key Key, recs []portal.TimetableRecord) error {
	if len(recs) == 0 {
		return nil
	}

	byQuarter := make(map[int][]portal.TimetableRecord)
	for _, r := range recs {
		byQuarter[r.Quarter] = append(byQuarter[r.Quarter], r)
	}

	g, gctx := errgroup.WithContext(ctx)
	for quarter, rows := range byQuarter {
		g.Go(func() error {
			return s.putQuarter(gctx, key, quarter, rows)
		})
	}
	return g.Wait()
}

func (s *Store) putQuarter(ctx context.Context, key Key, quarter int, rows []portal.TimetableRecord) error {
	shared, err := s.SharedRooms(ctx, key.AcademicYear, quarter)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	const q = `
		INSERT INTO timetable (student_id, enrollment_year, academic_year, quarter, code, day, period, teacher, title, room)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (student_id, academic_year, quarter, code, day, period) DO UPDATE SET
			teacher = EXCLUDED.teacher,
			title   = EXCLUDED.title,
			room    = EXCLUDED.room;`
	for _, r := range rows {
		room := r.Room
		if override, ok := shared[r.Code]; ok {
			room = override
		}
		if _, err := tx.Exec(ctx, q,
			key.StudentID, key.EnrollmentYear, key.AcademicYear, quarter,
			r.Code, r.Day, r.Period, r.Teacher, r.Title, room); err != nil {
			return fmt.Errorf("failed to upsert timetable row %s/%s/%d: %w", r.Code, r.Day, r.Period, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SharedRooms returns the cross-user room overrides for one quarter, keyed by
// lesson code.
func (s *Store) SharedRooms(ctx context.Context, academicYear, quarter int) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT code, room FROM shared_rooms
		WHERE academic_year = $1 AND quarter = $2;`, academicYear, quarter)
	if err != nil {
		return nil, fmt.Errorf("failed to query shared rooms: %w", err)
	}
	defer rows.Close()

	shared := make(map[string]string)
	for rows.Next() {
		var code, room string
		if err := rows.Scan(&code, &room); err != nil {
			return nil, fmt.Errorf("failed to scan shared room row: %w", err)
		}
		shared[code] = room
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return shared, nil
}
