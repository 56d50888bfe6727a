package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/presenca-digital/presenca-api/internal/models"
	appErrors "github.com/presenca-digital/presenca-api/pkg/errors"
)

type mockSessionRepo struct {
	sessions   map[string]*models.ClassSession
	listResult []models.ClassSession
	listTotal  int
	audits     []string
}

func (m *mockSessionRepo) Create(ctx context.Context, session *models.ClassSession) error {
	if m.sessions == nil {
		m.sessions = make(map[string]*models.ClassSession)
	}
	if session.ID == "" {
		session.ID = "generated"
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	cp := *session
	m.sessions[session.ID] = &cp
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*models.ClassSession, error) {
	if session, ok := m.sessions[id]; ok {
		cp := *session
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSessionRepo) List(ctx context.Context, filter models.SessionFilter) ([]models.ClassSession, int, error) {
	return m.listResult, m.listTotal, nil
}

func (m *mockSessionRepo) UpdateStatus(ctx context.Context, id string, status models.SessionStatus, actor *string, at time.Time) (*models.ClassSession, error) {
	session, ok := m.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	session.Status = status
	session.UpdatedAt = at
	if actor != nil {
		session.LastEditedBy = actor
		stamped := at
		session.LastEditedAt = &stamped
	}
	cp := *session
	return &cp, nil
}

func (m *mockSessionRepo) StampAudit(ctx context.Context, id, actor string, at time.Time) error {
	m.audits = append(m.audits, actor)
	if session, ok := m.sessions[id]; ok {
		session.LastEditedBy = &actor
		stamped := at
		session.LastEditedAt = &stamped
	}
	return nil
}

type mockClassReader struct {
	classes map[string]*models.Class
}

func (m *mockClassReader) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if class, ok := m.classes[id]; ok {
		cp := *class
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type mockAttendanceStore struct {
	deleted map[string]int64
}

func (m *mockAttendanceStore) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	return m.deleted[sessionID], nil
}

type mockInvalidatingCache struct {
	invalidated []string
}

func (m *mockInvalidatingCache) InvalidateClass(ctx context.Context, classCode string) {
	m.invalidated = append(m.invalidated, classCode)
}

func newSessionService(repo *mockSessionRepo, classes *mockClassReader, attendance *mockAttendanceStore, cache *mockInvalidatingCache) *SessionService {
	return NewSessionService(repo, classes, attendance, cache, validator.New(), zap.NewNop())
}

func TestSessionOpen(t *testing.T) {
	repo := &mockSessionRepo{}
	classes := &mockClassReader{classes: map[string]*models.Class{
		"c1": {ID: "c1", Code: "3A", Course: "Informática"},
	}}
	svc := newSessionService(repo, classes, &mockAttendanceStore{}, &mockInvalidatingCache{})

	session, err := svc.Open(context.Background(), OpenSessionRequest{
		Name:      "Matemática",
		ClassID:   "c1",
		TeacherID: "t1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusOpen, session.Status)
	assert.Equal(t, "3A", session.ClassCode)
	assert.False(t, session.Date.IsZero())
	assert.Len(t, repo.sessions, 1)
}

func TestSessionOpenUnknownClass(t *testing.T) {
	svc := newSessionService(&mockSessionRepo{}, &mockClassReader{}, &mockAttendanceStore{}, &mockInvalidatingCache{})

	_, err := svc.Open(context.Background(), OpenSessionRequest{
		Name:      "Matemática",
		ClassID:   "missing",
		TeacherID: "t1",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	assert.Equal(t, "Turma não encontrada.", err.(*appErrors.Error).Message)
}

func TestSessionOpenAllowsParallelSessions(t *testing.T) {
	repo := &mockSessionRepo{}
	classes := &mockClassReader{classes: map[string]*models.Class{
		"c1": {ID: "c1", Code: "3A", Course: "Informática"},
	}}
	svc := newSessionService(repo, classes, &mockAttendanceStore{}, &mockInvalidatingCache{})

	first, err := svc.Open(context.Background(), OpenSessionRequest{Name: "Manhã", ClassID: "c1", TeacherID: "t1"})
	require.NoError(t, err)
	first.ID = "s1"
	repo.sessions["s1"] = first

	second, err := svc.Open(context.Background(), OpenSessionRequest{Name: "Tarde", ClassID: "c1", TeacherID: "t2"})
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusOpen, second.Status)
}

func TestSessionClose(t *testing.T) {
	repo := &mockSessionRepo{sessions: map[string]*models.ClassSession{
		"s1": {ID: "s1", ClassCode: "3A", Status: models.SessionStatusOpen},
	}}
	svc := newSessionService(repo, &mockClassReader{}, &mockAttendanceStore{}, &mockInvalidatingCache{})

	actor := "u1"
	session, err := svc.Close(context.Background(), "s1", &actor)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusClosed, session.Status)
	require.NotNil(t, session.LastEditedBy)
	assert.Equal(t, "u1", *session.LastEditedBy)
	assert.NotNil(t, session.LastEditedAt)
}

func TestSessionCloseAlreadyClosedRestamps(t *testing.T) {
	previous := "u1"
	repo := &mockSessionRepo{sessions: map[string]*models.ClassSession{
		"s1": {ID: "s1", ClassCode: "3A", Status: models.SessionStatusClosed, LastEditedBy: &previous},
	}}
	svc := newSessionService(repo, &mockClassReader{}, &mockAttendanceStore{}, &mockInvalidatingCache{})

	actor := "u2"
	session, err := svc.Close(context.Background(), "s1", &actor)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusClosed, session.Status)
	require.NotNil(t, session.LastEditedBy)
	assert.Equal(t, "u2", *session.LastEditedBy)
}

func TestSessionCloseNotFound(t *testing.T) {
	svc := newSessionService(&mockSessionRepo{}, &mockClassReader{}, &mockAttendanceStore{}, &mockInvalidatingCache{})

	_, err := svc.Close(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	assert.Equal(t, "Sessão não encontrada.", err.(*appErrors.Error).Message)
}

func TestSessionResetAttendances(t *testing.T) {
	repo := &mockSessionRepo{sessions: map[string]*models.ClassSession{
		"s1": {ID: "s1", ClassCode: "3A", Status: models.SessionStatusOpen},
	}}
	store := &mockAttendanceStore{deleted: map[string]int64{"s1": 12}}
	cache := &mockInvalidatingCache{}
	svc := newSessionService(repo, &mockClassReader{}, store, cache)

	result, err := svc.ResetAttendances(context.Background(), "s1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Presenças resetadas com sucesso.", result.Message)
	assert.Equal(t, []string{"u1"}, repo.audits)
	assert.Equal(t, []string{"3A"}, cache.invalidated)
	assert.Equal(t, models.SessionStatusOpen, repo.sessions["s1"].Status)
}

func TestSessionResetNotFound(t *testing.T) {
	svc := newSessionService(&mockSessionRepo{}, &mockClassReader{}, &mockAttendanceStore{}, &mockInvalidatingCache{})

	_, err := svc.ResetAttendances(context.Background(), "missing", "u1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestSessionList(t *testing.T) {
	repo := &mockSessionRepo{
		listResult: []models.ClassSession{{ID: "s1"}, {ID: "s2"}},
		listTotal:  2,
	}
	svc := newSessionService(repo, &mockClassReader{}, &mockAttendanceStore{}, &mockInvalidatingCache{})

	sessions, pagination, err := svc.List(context.Background(), models.SessionFilter{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
	require.NotNil(t, pagination)
	assert.Equal(t, 2, pagination.TotalCount)
}
