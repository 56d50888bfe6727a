package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/presenca-digital/presenca-api/internal/models"
)

// StudentRepository handles persistence for students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, name, registration, facial_id, classes, active, created_at, updated_at`

// FindByID returns a student by id. Returns sql.ErrNoRows when absent.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE id = $1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByFacialID resolves a student from the facial-matching identifier.
func (r *StudentRepository) FindByFacialID(ctx context.Context, facialID string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE facial_id = $1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, facialID); err != nil {
		return nil, err
	}
	return &student, nil
}

// ListByClassCode returns the roster: every student whose membership set
// contains the upper-cased class code.
func (r *StudentRepository) ListByClassCode(ctx context.Context, classCode string) ([]models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE UPPER($1) = ANY(classes) ORDER BY name ASC`, studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, classCode); err != nil {
		return nil, fmt.Errorf("list students by class: %w", err)
	}
	return students, nil
}

// List returns students matching the filter with a total count.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR registration ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.ClassCode != "" {
		where = append(where, fmt.Sprintf("UPPER($%d) = ANY(classes)", len(args)+1))
		args = append(args, filter.ClassCode)
	}
	if filter.Active != nil {
		where = append(where, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM students WHERE %s ORDER BY name ASC LIMIT %d OFFSET %d`,
		studentColumns, whereClause, size, offset)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM students WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// Create inserts a new student. Membership codes are stored upper case.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	for i, code := range student.Classes {
		student.Classes[i] = strings.ToUpper(code)
	}
	student.CreatedAt = now
	student.UpdatedAt = now
	query := `INSERT INTO students (id, name, registration, facial_id, classes, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query,
		student.ID, student.Name, student.Registration, student.FacialID,
		pq.Array(student.Classes), student.Active, student.CreatedAt, student.UpdatedAt); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies student fields including memberships.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	for i, code := range student.Classes {
		student.Classes[i] = strings.ToUpper(code)
	}
	student.UpdatedAt = time.Now().UTC()
	query := `UPDATE students SET name = $2, registration = $3, classes = $4, active = $5, updated_at = $6 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query,
		student.ID, student.Name, student.Registration,
		pq.Array(student.Classes), student.Active, student.UpdatedAt); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// SetFacialID stores the facial enrollment identifier for a student.
func (r *StudentRepository) SetFacialID(ctx context.Context, id, facialID string) error {
	query := `UPDATE students SET facial_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, facialID, time.Now().UTC()); err != nil {
		return fmt.Errorf("set facial id: %w", err)
	}
	return nil
}

// Delete removes a student by id.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}
