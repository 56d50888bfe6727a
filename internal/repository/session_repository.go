package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/presenca-digital/presenca-api/internal/models"
)

// SessionRepository handles persistence for class sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, name, class_id, class_code, teacher_id, date, status, last_edited_by, last_edited_at, created_at, updated_at`

// Create inserts a new session row.
func (r *SessionRepository) Create(ctx context.Context, session *models.ClassSession) error {
	now := time.Now().UTC()
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	session.CreatedAt = now
	session.UpdatedAt = now
	query := `INSERT INTO class_sessions (id, name, class_id, class_code, teacher_id, date, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.db.ExecContext(ctx, query,
		session.ID, session.Name, session.ClassID, session.ClassCode, session.TeacherID,
		session.Date, session.Status, session.CreatedAt, session.UpdatedAt); err != nil {
		return fmt.Errorf("create class session: %w", err)
	}
	return nil
}

// FindByID returns a session by id. Returns sql.ErrNoRows when absent.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.ClassSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM class_sessions WHERE id = $1`, sessionColumns)
	var session models.ClassSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// List returns sessions matching the filter with a total count.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.ClassSession, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.ClassID != "" {
		where = append(where, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.TeacherID != "" {
		where = append(where, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM class_sessions WHERE %s ORDER BY date DESC LIMIT %d OFFSET %d`,
		sessionColumns, whereClause, size, offset)
	var sessions []models.ClassSession
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list class sessions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM class_sessions WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count class sessions: %w", err)
	}
	return sessions, total, nil
}

// UpdateStatus sets the session status and, when an actor is supplied, stamps
// the audit fields. Returns sql.ErrNoRows when the session does not exist.
func (r *SessionRepository) UpdateStatus(ctx context.Context, id string, status models.SessionStatus, actor *string, at time.Time) (*models.ClassSession, error) {
	query := fmt.Sprintf(`UPDATE class_sessions
SET status = $2,
    last_edited_by = COALESCE($3, last_edited_by),
    last_edited_at = CASE WHEN $3 IS NULL THEN last_edited_at ELSE $4 END,
    updated_at = $4
WHERE id = $1
RETURNING %s`, sessionColumns)
	var session models.ClassSession
	if err := r.db.GetContext(ctx, &session, query, id, status, actor, at); err != nil {
		return nil, err
	}
	return &session, nil
}

// StampAudit records the acting user on the session without touching status.
func (r *SessionRepository) StampAudit(ctx context.Context, id, actor string, at time.Time) error {
	query := `UPDATE class_sessions SET last_edited_by = $2, last_edited_at = $3, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, actor, at); err != nil {
		return fmt.Errorf("stamp session audit: %w", err)
	}
	return nil
}
