package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/presenca-digital/presenca-api/internal/models"
	appErrors "github.com/presenca-digital/presenca-api/pkg/errors"
)

type sessionRepository interface {
	Create(ctx context.Context, session *models.ClassSession) error
	FindByID(ctx context.Context, id string) (*models.ClassSession, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.ClassSession, int, error)
	UpdateStatus(ctx context.Context, id string, status models.SessionStatus, actor *string, at time.Time) (*models.ClassSession, error)
	StampAudit(ctx context.Context, id, actor string, at time.Time) error
}

type sessionClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type sessionAttendanceStore interface {
	DeleteBySession(ctx context.Context, sessionID string) (int64, error)
}

type sessionCache interface {
	InvalidateClass(ctx context.Context, classCode string)
}

// SessionService owns the class-session lifecycle: open, close, reset.
// Nothing prevents several sessions being open for the same class at once;
// each is an independent attendance scope.
type SessionService struct {
	repo       sessionRepository
	classes    sessionClassReader
	attendance sessionAttendanceStore
	cache      sessionCache
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewSessionService constructs the session service.
func NewSessionService(repo sessionRepository, classes sessionClassReader, attendance sessionAttendanceStore, cache sessionCache, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{repo: repo, classes: classes, attendance: attendance, cache: cache, validator: validate, logger: logger}
}

// OpenSessionRequest is the payload for opening a session.
type OpenSessionRequest struct {
	Name      string    `json:"name" validate:"required"`
	ClassID   string    `json:"class_id" validate:"required"`
	TeacherID string    `json:"teacher_id" validate:"required"`
	Date      time.Time `json:"date"`
}

// Open creates a session in the open state. The class code is denormalised
// from the directory record so attendance rows never re-derive it.
func (s *SessionService) Open(ctx context.Context, req OpenSessionRequest) (*models.ClassSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}

	class, err := s.classes.FindByID(ctx, req.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, msgClassNotFound)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve class")
	}

	date := req.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	session := &models.ClassSession{
		Name:      req.Name,
		ClassID:   class.ID,
		ClassCode: strings.ToUpper(class.Code),
		TeacherID: req.TeacherID,
		Date:      date,
		Status:    models.SessionStatusOpen,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open session")
	}

	s.logger.Info("session opened",
		zap.String("session_id", session.ID),
		zap.String("class_code", session.ClassCode),
		zap.String("teacher_id", session.TeacherID))
	return session, nil
}

// Get returns a session by id.
func (s *SessionService) Get(ctx context.Context, id string) (*models.ClassSession, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, msgSessionNotFound)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

// List returns sessions with pagination metadata.
func (s *SessionService) List(ctx context.Context, filter models.SessionFilter) ([]models.ClassSession, *models.Pagination, error) {
	sessions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	return sessions, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Close sets the session to closed. Closing an already-closed session
// re-applies the close; when an actor is supplied the audit fields are
// (re-)stamped.
func (s *SessionService) Close(ctx context.Context, sessionID string, actingUserID *string) (*models.ClassSession, error) {
	session, err := s.repo.UpdateStatus(ctx, sessionID, models.SessionStatusClosed, actingUserID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, msgSessionNotFound)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close session")
	}

	s.logger.Info("session closed", zap.String("session_id", session.ID))
	return session, nil
}

// ResetAttendances deletes every attendance record scoped to the session and
// stamps the acting user. The session status is left untouched.
func (s *SessionService) ResetAttendances(ctx context.Context, sessionID, actingUserID string) (*models.ResetResult, error) {
	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, msgSessionNotFound)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve session")
	}

	deleted, err := s.attendance.DeleteBySession(ctx, session.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset attendances")
	}
	if err := s.repo.StampAudit(ctx, session.ID, actingUserID, time.Now().UTC()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stamp session audit")
	}
	if s.cache != nil {
		s.cache.InvalidateClass(ctx, session.ClassCode)
	}

	s.logger.Info("session attendances reset",
		zap.String("session_id", session.ID),
		zap.Int64("deleted", deleted),
		zap.String("acting_user", actingUserID))
	return &models.ResetResult{Message: msgAttendancesReset}, nil
}
