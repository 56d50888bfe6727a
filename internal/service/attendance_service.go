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

type attendanceRepository interface {
	Insert(ctx context.Context, record *models.Attendance) (bool, error)
	ExistsForStudent(ctx context.Context, sessionID, studentID string) (bool, error)
	ListByClassAndRange(ctx context.Context, classCode string, start, end time.Time) ([]models.Attendance, error)
}

type attendanceSessionReader interface {
	FindByID(ctx context.Context, id string) (*models.ClassSession, error)
}

type attendanceStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByFacialID(ctx context.Context, facialID string) (*models.Student, error)
}

type attendanceCache interface {
	GetToday(ctx context.Context, classCode string, dest interface{}) error
	SetToday(ctx context.Context, classCode string, value interface{}, ttl time.Duration) error
	InvalidateClass(ctx context.Context, classCode string)
}

// AttendanceService records presence events against open sessions. Both entry
// points run the same precondition pipeline: session exists, session open,
// student resolves, student belongs to the class, pair not yet registered.
// The final insert is atomic against the (session, student) unique index, so
// two racing calls cannot both succeed.
type AttendanceService struct {
	repo      attendanceRepository
	sessions  attendanceSessionReader
	students  attendanceStudentReader
	cache     attendanceCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, sessions attendanceSessionReader, students attendanceStudentReader, cache attendanceCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AttendanceService{repo: repo, sessions: sessions, students: students, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
	svc.validator.RegisterValidation("presence_status", func(fl validator.FieldLevel) bool {
		return models.PresenceStatus(fl.Field().String()).Valid()
	})
	return svc
}

// ManualPresenceRequest is the payload for manually recorded attendance.
type ManualPresenceRequest struct {
	SessionID  string `json:"session_id" validate:"required"`
	StudentID  string `json:"student_id" validate:"required"`
	Status     string `json:"status" validate:"required,presence_status"`
	RecordedBy string `json:"recorded_by" validate:"required"`
	ClassCode  string `json:"class_code" validate:"required"`
}

// MarkPresenceByFace records a presence resolved through the facial-matching
// identifier. The resulting record is always "presente" with check-in now.
func (s *AttendanceService) MarkPresenceByFace(ctx context.Context, facialID, sessionID, classCode string) (*models.Attendance, error) {
	session, err := s.resolveOpenSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	student, err := s.students.FindByFacialID(ctx, facialID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, msgStudentNotFound)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student by facial id")
	}

	code := strings.ToUpper(classCode)
	if err := s.checkRegistrable(ctx, session, student, code); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &models.Attendance{
		SessionID:   session.ID,
		StudentID:   student.ID,
		ClassCode:   code,
		Status:      models.PresenceStatusPresente,
		CheckInTime: &now,
		Method:      models.PresenceMethodFacial,
		ViaFacial:   true,
		Date:        now,
	}
	return s.insert(ctx, record)
}

// MarkPresenceManual records attendance entered by a staff member. CheckIn
// time is omitted when the status is "ausente".
func (s *AttendanceService) MarkPresenceManual(ctx context.Context, req ManualPresenceRequest) (*models.Attendance, error) {
	status := models.PresenceStatus(req.Status)
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, msgInvalidStatus)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	session, err := s.resolveOpenSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, msgStudentNotFound)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student")
	}

	code := strings.ToUpper(req.ClassCode)
	if err := s.checkRegistrable(ctx, session, student, code); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &models.Attendance{
		SessionID:  session.ID,
		StudentID:  student.ID,
		ClassCode:  code,
		Status:     status,
		Method:     models.PresenceMethodManual,
		ViaFacial:  false,
		RecordedBy: &req.RecordedBy,
		Date:       now,
	}
	if status != models.PresenceStatusAusente {
		record.CheckInTime = &now
	}
	return s.insert(ctx, record)
}

// GetTodayByClass returns the class's records within the current local
// calendar day. Results are served from cache when available.
func (s *AttendanceService) GetTodayByClass(ctx context.Context, classCode string) ([]models.Attendance, error) {
	code := strings.ToUpper(classCode)

	if s.cache != nil {
		var cached []models.Attendance
		if err := s.cache.GetToday(ctx, code, &cached); err == nil {
			return cached, nil
		}
	}

	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, int(999*time.Millisecond), now.Location())

	records, err := s.repo.ListByClassAndRange(ctx, code, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list today's attendance")
	}

	if s.cache != nil {
		if err := s.cache.SetToday(ctx, code, records, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache today's attendance", zap.String("class_code", code), zap.Error(err))
		}
	}
	return records, nil
}

// GetRangeByClass returns the class's records within the inclusive bounds.
func (s *AttendanceService) GetRangeByClass(ctx context.Context, classCode string, start, end time.Time) ([]models.Attendance, error) {
	records, err := s.repo.ListByClassAndRange(ctx, strings.ToUpper(classCode), start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance range")
	}
	return records, nil
}

func (s *AttendanceService) resolveOpenSession(ctx context.Context, sessionID string) (*models.ClassSession, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, msgSessionNotFound)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve session")
	}
	if !session.Open() {
		return nil, appErrors.Clone(appErrors.ErrConflict, msgSessionClosed)
	}
	return session, nil
}

func (s *AttendanceService) checkRegistrable(ctx context.Context, session *models.ClassSession, student *models.Student, classCode string) error {
	if !student.MemberOf(classCode) {
		return appErrors.Clone(appErrors.ErrConflict, msgStudentNotInClass)
	}
	exists, err := s.repo.ExistsForStudent(ctx, session.ID, student.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing attendance")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, msgAlreadyRegistered)
	}
	return nil
}

func (s *AttendanceService) insert(ctx context.Context, record *models.Attendance) (*models.Attendance, error) {
	inserted, err := s.repo.Insert(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	if !inserted {
		// a concurrent call won the unique-index race
		return nil, appErrors.Clone(appErrors.ErrConflict, msgAlreadyRegistered)
	}
	if s.cache != nil {
		s.cache.InvalidateClass(ctx, record.ClassCode)
	}
	s.logger.Info("attendance recorded",
		zap.String("session_id", record.SessionID),
		zap.String("student_id", record.StudentID),
		zap.String("status", string(record.Status)),
		zap.String("method", string(record.Method)))
	return record, nil
}
