package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/presenca-digital/presenca-api/internal/models"
)

// AttendanceRepository handles persistence for attendance records. The
// attendances table carries a unique index on (session_id, student_id); every
// insert relies on it so concurrent writers cannot produce duplicates.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const attendanceColumns = `id, session_id, student_id, class_code, status, check_in_time, method, via_facial, recorded_by, date, created_at`

const attendanceInsert = `INSERT INTO attendances (id, session_id, student_id, class_code, status, check_in_time, method, via_facial, recorded_by, date, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (session_id, student_id) DO NOTHING
RETURNING id`

// Insert atomically creates a record unless one already exists for the
// (session, student) pair. Returns false when the pair was already taken.
func (r *AttendanceRepository) Insert(ctx context.Context, record *models.Attendance) (bool, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if record.Date.IsZero() {
		record.Date = record.CreatedAt
	}
	var insertedID string
	err := r.db.QueryRowxContext(ctx, attendanceInsert,
		record.ID, record.SessionID, record.StudentID, record.ClassCode, record.Status,
		record.CheckInTime, record.Method, record.ViaFacial, record.RecordedBy,
		record.Date, record.CreatedAt).Scan(&insertedID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("insert attendance: %w", err)
	}
	return true, nil
}

// ExistsForStudent reports whether the (session, student) pair is registered.
func (r *AttendanceRepository) ExistsForStudent(ctx context.Context, sessionID, studentID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM attendances WHERE session_id = $1 AND student_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, sessionID, studentID); err != nil {
		return false, fmt.Errorf("check attendance existence: %w", err)
	}
	return exists, nil
}

// ListBySession returns every record scoped to the session.
func (r *AttendanceRepository) ListBySession(ctx context.Context, sessionID string) ([]models.Attendance, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendances WHERE session_id = $1 ORDER BY created_at ASC`, attendanceColumns)
	var records []models.Attendance
	if err := r.db.SelectContext(ctx, &records, query, sessionID); err != nil {
		return nil, fmt.Errorf("list attendance by session: %w", err)
	}
	return records, nil
}

// ListByClassAndRange returns records for a class code within the inclusive
// date bounds.
func (r *AttendanceRepository) ListByClassAndRange(ctx context.Context, classCode string, start, end time.Time) ([]models.Attendance, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendances WHERE class_code = $1 AND date >= $2 AND date <= $3 ORDER BY date ASC`, attendanceColumns)
	var records []models.Attendance
	if err := r.db.SelectContext(ctx, &records, query, classCode, start, end); err != nil {
		return nil, fmt.Errorf("list attendance by class range: %w", err)
	}
	return records, nil
}

// BulkInsert writes the given records inside one transaction, skipping pairs
// that already exist. Returns the number of rows actually created.
func (r *AttendanceRepository) BulkInsert(ctx context.Context, records []models.Attendance) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin bulk attendance: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()
	now := time.Now().UTC()
	created := 0
	for i := range records {
		rec := &records[i]
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		if rec.Date.IsZero() {
			rec.Date = now
		}
		var insertedID string
		err := tx.QueryRowxContext(ctx, attendanceInsert,
			rec.ID, rec.SessionID, rec.StudentID, rec.ClassCode, rec.Status,
			rec.CheckInTime, rec.Method, rec.ViaFacial, rec.RecordedBy,
			rec.Date, rec.CreatedAt).Scan(&insertedID)
		if err != nil {
			if err == sql.ErrNoRows {
				continue
			}
			return 0, fmt.Errorf("bulk insert attendance: %w", err)
		}
		created++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit bulk attendance: %w", err)
	}
	commit = true
	return created, nil
}

// DeleteBySession removes every record scoped to the session and returns the
// number of deleted rows.
func (r *AttendanceRepository) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendances WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("delete attendance by session: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete attendance rows affected: %w", err)
	}
	return deleted, nil
}
