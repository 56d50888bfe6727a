package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presenca-digital/presenca-api/internal/models"
)

func newAttendanceMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAttendanceRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery("INSERT INTO attendances").
		WithArgs(sqlmock.AnyArg(), "s1", "a1", "3A", models.PresenceStatusPresente,
			sqlmock.AnyArg(), models.PresenceMethodFacial, true, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("rec-1"))

	now := time.Now().UTC()
	inserted, err := repo.Insert(context.Background(), &models.Attendance{
		SessionID:   "s1",
		StudentID:   "a1",
		ClassCode:   "3A",
		Status:      models.PresenceStatusPresente,
		CheckInTime: &now,
		Method:      models.PresenceMethodFacial,
		ViaFacial:   true,
	})
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryInsertConflict(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	// ON CONFLICT DO NOTHING yields no RETURNING row for a duplicate pair
	mock.ExpectQuery("INSERT INTO attendances").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	inserted, err := repo.Insert(context.Background(), &models.Attendance{
		SessionID: "s1",
		StudentID: "a1",
		ClassCode: "3A",
		Status:    models.PresenceStatusPresente,
		Method:    models.PresenceMethodManual,
	})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryExistsForStudent(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM attendances WHERE session_id = $1 AND student_id = $2)")).
		WithArgs("s1", "a1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsForStudent(context.Background(), "s1", "a1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListBySession(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "session_id", "student_id", "class_code", "status", "check_in_time", "method", "via_facial", "recorded_by", "date", "created_at"}).
		AddRow("r1", "s1", "a1", "3A", "presente", now, "facial", true, nil, now, now).
		AddRow("r2", "s1", "a2", "3A", "ausente", nil, "manual", false, "u1", now, now)
	mock.ExpectQuery("SELECT (.+) FROM attendances WHERE session_id").
		WithArgs("s1").
		WillReturnRows(rows)

	records, err := repo.ListBySession(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, models.PresenceStatusPresente, records[0].Status)
	assert.Nil(t, records[1].CheckInTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListByClassAndRange(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "session_id", "student_id", "class_code", "status", "check_in_time", "method", "via_facial", "recorded_by", "date", "created_at"}).
		AddRow("r1", "s1", "a1", "3A", "presente", start, "facial", true, nil, start, start)
	mock.ExpectQuery("SELECT (.+) FROM attendances WHERE class_code").
		WithArgs("3A", start, end).
		WillReturnRows(rows)

	records, err := repo.ListByClassAndRange(context.Background(), "3A", start, end)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryBulkInsertSkipsConflicts(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO attendances").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("r1"))
	mock.ExpectQuery("INSERT INTO attendances").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	created, err := repo.BulkInsert(context.Background(), []models.Attendance{
		{SessionID: "s1", StudentID: "a1", ClassCode: "3A", Status: models.PresenceStatusAusente, Method: models.PresenceMethodManual},
		{SessionID: "s1", StudentID: "a2", ClassCode: "3A", Status: models.PresenceStatusAusente, Method: models.PresenceMethodManual},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryBulkInsertEmpty(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	created, err := repo.BulkInsert(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryDeleteBySession(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM attendances WHERE session_id = $1")).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 7))

	deleted, err := repo.DeleteBySession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
