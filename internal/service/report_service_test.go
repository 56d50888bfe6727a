package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/presenca-digital/presenca-api/internal/models"
	appErrors "github.com/presenca-digital/presenca-api/pkg/errors"
)

type mockReportAttendanceStore struct {
	bySession  map[string][]models.Attendance
	bulkSkip   int
	bulkCalled []models.Attendance
}

func (m *mockReportAttendanceStore) ListBySession(ctx context.Context, sessionID string) ([]models.Attendance, error) {
	return m.bySession[sessionID], nil
}

func (m *mockReportAttendanceStore) BulkInsert(ctx context.Context, records []models.Attendance) (int, error) {
	m.bulkCalled = append(m.bulkCalled, records...)
	created := len(records) - m.bulkSkip
	if created < 0 {
		created = 0
	}
	return created, nil
}

type mockStudentLister struct {
	roster map[string][]models.Student
}

func (m *mockStudentLister) ListByClassCode(ctx context.Context, classCode string) ([]models.Student, error) {
	return m.roster[classCode], nil
}

func rosterStudent(id, name string, classes ...string) models.Student {
	return models.Student{ID: id, Name: name, Classes: pq.StringArray(classes), Active: true}
}

func reportFixture() (*mockSessionRepo, *mockClassReader, *mockStudentLister, *mockReportAttendanceStore) {
	sessions := &mockSessionRepo{sessions: map[string]*models.ClassSession{
		"s1": {
			ID:        "s1",
			Name:      "Matemática",
			ClassID:   "c1",
			ClassCode: "3A",
			TeacherID: "t1",
			Date:      time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
			Status:    models.SessionStatusOpen,
		},
	}}
	classes := &mockClassReader{classes: map[string]*models.Class{
		"c1": {ID: "c1", Code: "3A", Course: "Informática"},
	}}
	students := &mockStudentLister{roster: map[string][]models.Student{
		"3A": {
			rosterStudent("a1", "Ana", "3A"),
			rosterStudent("a2", "Bruno", "3A"),
			rosterStudent("a3", "Clara", "3A"),
		},
	}}
	store := &mockReportAttendanceStore{bySession: map[string][]models.Attendance{
		"s1": {
			{ID: "r1", SessionID: "s1", StudentID: "a1", ClassCode: "3A", Status: models.PresenceStatusPresente},
			{ID: "r2", SessionID: "s1", StudentID: "a2", ClassCode: "3A", Status: models.PresenceStatusAtrasado},
		},
	}}
	return sessions, classes, students, store
}

func TestFullReportBySession(t *testing.T) {
	sessions, classes, students, store := reportFixture()
	svc := NewReportService(sessions, classes, students, store, &mockInvalidatingCache{}, zap.NewNop())

	report, err := svc.FullReportBySession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", report.Session.ID)
	// every recorded entry counts as registered, regardless of status
	assert.Len(t, report.Presentes, 2)
	require.Len(t, report.Ausentes, 1)
	assert.Equal(t, "a3", report.Ausentes[0].ID)
}

func TestFullReportEmptyRoster(t *testing.T) {
	sessions, classes, _, store := reportFixture()
	students := &mockStudentLister{}
	svc := NewReportService(sessions, classes, students, store, &mockInvalidatingCache{}, zap.NewNop())

	report, err := svc.FullReportBySession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, report.Presentes, 2)
	assert.Empty(t, report.Ausentes)
}

func TestFullReportSessionNotFound(t *testing.T) {
	_, classes, students, store := reportFixture()
	svc := NewReportService(&mockSessionRepo{}, classes, students, store, &mockInvalidatingCache{}, zap.NewNop())

	_, err := svc.FullReportBySession(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	assert.Equal(t, "Sessão não encontrada.", err.(*appErrors.Error).Message)
}

func TestFullReportClassGone(t *testing.T) {
	sessions, _, students, store := reportFixture()
	svc := NewReportService(sessions, &mockClassReader{}, students, store, &mockInvalidatingCache{}, zap.NewNop())

	_, err := svc.FullReportBySession(context.Background(), "s1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	assert.Equal(t, "Turma da sessão não encontrada.", err.(*appErrors.Error).Message)
}

func TestMarkAbsencesForSession(t *testing.T) {
	sessions, classes, students, store := reportFixture()
	cache := &mockInvalidatingCache{}
	svc := NewReportService(sessions, classes, students, store, cache, zap.NewNop())

	result, err := svc.MarkAbsencesForSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	require.Len(t, store.bulkCalled, 1)
	record := store.bulkCalled[0]
	assert.Equal(t, "a3", record.StudentID)
	assert.Equal(t, models.PresenceStatusAusente, record.Status)
	assert.Equal(t, models.PresenceMethodManual, record.Method)
	assert.False(t, record.ViaFacial)
	assert.Nil(t, record.CheckInTime)
	assert.Equal(t, []string{"3A"}, cache.invalidated)
}

func TestMarkAbsencesNothingMissing(t *testing.T) {
	sessions, classes, students, store := reportFixture()
	store.bySession["s1"] = append(store.bySession["s1"],
		models.Attendance{ID: "r3", SessionID: "s1", StudentID: "a3", Status: models.PresenceStatusAusente})
	cache := &mockInvalidatingCache{}
	svc := NewReportService(sessions, classes, students, store, cache, zap.NewNop())

	result, err := svc.MarkAbsencesForSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Empty(t, store.bulkCalled)
	assert.Empty(t, cache.invalidated)
}

func TestMarkAbsencesIdempotent(t *testing.T) {
	sessions, classes, students, store := reportFixture()
	svc := NewReportService(sessions, classes, students, store, &mockInvalidatingCache{}, zap.NewNop())

	first, err := svc.MarkAbsencesForSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Created)

	// simulate the first run having landed
	store.bySession["s1"] = append(store.bySession["s1"],
		models.Attendance{ID: "r3", SessionID: "s1", StudentID: "a3", Status: models.PresenceStatusAusente})

	second, err := svc.MarkAbsencesForSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
}

func TestMarkAbsencesCountsOnlyInsertedRows(t *testing.T) {
	sessions, classes, students, store := reportFixture()
	store.bySession["s1"] = nil
	store.bulkSkip = 1
	svc := NewReportService(sessions, classes, students, store, &mockInvalidatingCache{}, zap.NewNop())

	result, err := svc.MarkAbsencesForSession(context.Background(), "s1")
	require.NoError(t, err)
	// three roster students, one row lost to a concurrent registration
	assert.Equal(t, 2, result.Created)
}

func TestExportSessionReportCSV(t *testing.T) {
	sessions, classes, students, store := reportFixture()
	svc := NewReportService(sessions, classes, students, store, &mockInvalidatingCache{}, zap.NewNop())

	payload, filename, err := svc.ExportSessionReport(context.Background(), "s1", ReportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "relatorio-3a-2026-03-10.csv", filename)

	content := string(payload)
	assert.Contains(t, content, "Ana")
	assert.Contains(t, content, "Clara")
	assert.Contains(t, content, string(models.PresenceStatusAusente))
	assert.True(t, strings.Contains(content, "Aluno"))
}

func TestExportSessionReportPDF(t *testing.T) {
	sessions, classes, students, store := reportFixture()
	svc := NewReportService(sessions, classes, students, store, &mockInvalidatingCache{}, zap.NewNop())

	payload, filename, err := svc.ExportSessionReport(context.Background(), "s1", ReportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "relatorio-3a-2026-03-10.pdf", filename)
	assert.True(t, len(payload) > 0)
}

func TestExportSessionReportInvalidFormat(t *testing.T) {
	sessions, classes, students, store := reportFixture()
	svc := NewReportService(sessions, classes, students, store, &mockInvalidatingCache{}, zap.NewNop())

	_, _, err := svc.ExportSessionReport(context.Background(), "s1", ReportFormat("xlsx"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
