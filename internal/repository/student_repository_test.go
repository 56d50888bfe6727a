package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudentRepositoryFindByFacialID(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "name", "registration", "facial_id", "classes", "active", "created_at", "updated_at"}).
		AddRow("a1", "Ana", "2026001", "face-1", "{3A,4B}", true, now, now)
	mock.ExpectQuery("SELECT (.+) FROM students WHERE facial_id").
		WithArgs("face-1").
		WillReturnRows(rows)

	student, err := repo.FindByFacialID(context.Background(), "face-1")
	require.NoError(t, err)
	assert.Equal(t, "a1", student.ID)
	assert.Equal(t, []string{"3A", "4B"}, []string(student.Classes))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByFacialIDMissing(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM students WHERE facial_id").
		WithArgs("face-zz").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByFacialID(context.Background(), "face-zz")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListByClassCode(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "name", "registration", "facial_id", "classes", "active", "created_at", "updated_at"}).
		AddRow("a1", "Ana", "2026001", nil, "{3A}", true, now, now).
		AddRow("a2", "Bruno", "2026002", "face-2", "{3A}", true, now, now)
	mock.ExpectQuery("SELECT (.+) FROM students WHERE UPPER").
		WithArgs("3A").
		WillReturnRows(rows)

	students, err := repo.ListByClassCode(context.Background(), "3A")
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Nil(t, students[0].FacialID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
