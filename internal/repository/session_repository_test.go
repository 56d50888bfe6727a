package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presenca-digital/presenca-api/internal/models"
)

func sessionRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "class_id", "class_code", "teacher_id", "date", "status", "last_edited_by", "last_edited_at", "created_at", "updated_at"}).
		AddRow("s1", "Matemática", "c1", "3A", "t1", now, "open", nil, nil, now, now)
}

func TestSessionRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec("INSERT INTO class_sessions").
		WithArgs(sqlmock.AnyArg(), "Matemática", "c1", "3A", "t1", sqlmock.AnyArg(), models.SessionStatusOpen, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	session := &models.ClassSession{
		Name:      "Matemática",
		ClassID:   "c1",
		ClassCode: "3A",
		TeacherID: "t1",
		Date:      time.Now().UTC(),
		Status:    models.SessionStatusOpen,
	}
	err := repo.Create(context.Background(), session)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM class_sessions WHERE id").
		WithArgs("s1").
		WillReturnRows(sessionRows(time.Now().UTC()))

	session, err := repo.FindByID(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "3A", session.ClassCode)
	assert.Equal(t, models.SessionStatusOpen, session.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM class_sessions WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryList(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM class_sessions WHERE 1=1 AND class_id").
		WithArgs("c1").
		WillReturnRows(sessionRows(time.Now().UTC()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM class_sessions WHERE 1=1 AND class_id = $1")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	sessions, total, err := repo.List(context.Background(), models.SessionFilter{ClassID: "c1"})
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryUpdateStatusWithActor(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "name", "class_id", "class_code", "teacher_id", "date", "status", "last_edited_by", "last_edited_at", "created_at", "updated_at"}).
		AddRow("s1", "Matemática", "c1", "3A", "t1", now, "closed", "u1", now, now, now)
	actor := "u1"
	mock.ExpectQuery("UPDATE class_sessions").
		WithArgs("s1", models.SessionStatusClosed, "u1", sqlmock.AnyArg()).
		WillReturnRows(rows)

	session, err := repo.UpdateStatus(context.Background(), "s1", models.SessionStatusClosed, &actor, now)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusClosed, session.Status)
	require.NotNil(t, session.LastEditedBy)
	assert.Equal(t, "u1", *session.LastEditedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryUpdateStatusMissing(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery("UPDATE class_sessions").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.UpdateStatus(context.Background(), "missing", models.SessionStatusClosed, nil, time.Now().UTC())
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryStampAudit(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec("UPDATE class_sessions SET last_edited_by").
		WithArgs("s1", "u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.StampAudit(context.Background(), "s1", "u1", time.Now().UTC())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
