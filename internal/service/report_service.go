package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/presenca-digital/presenca-api/internal/models"
	appErrors "github.com/presenca-digital/presenca-api/pkg/errors"
	"github.com/presenca-digital/presenca-api/pkg/export"
)

type reportSessionReader interface {
	FindByID(ctx context.Context, id string) (*models.ClassSession, error)
}

type reportClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type reportStudentLister interface {
	ListByClassCode(ctx context.Context, classCode string) ([]models.Student, error)
}

type reportAttendanceStore interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.Attendance, error)
	BulkInsert(ctx context.Context, records []models.Attendance) (int, error)
}

type reportCache interface {
	InvalidateClass(ctx context.Context, classCode string)
}

// ReportFormat selects the rendering of an exported session report.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ReportService derives absence data for sessions: the presentes/ausentes
// report and the bulk materialisation of "ausente" records.
type ReportService struct {
	sessions   reportSessionReader
	classes    reportClassReader
	students   reportStudentLister
	attendance reportAttendanceStore
	cache      reportCache
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	logger     *zap.Logger
}

// NewReportService constructs the report service.
func NewReportService(sessions reportSessionReader, classes reportClassReader, students reportStudentLister, attendance reportAttendanceStore, cache reportCache, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		sessions:   sessions,
		classes:    classes,
		students:   students,
		attendance: attendance,
		cache:      cache,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		logger:     logger,
	}
}

// FullReportBySession resolves the session's roster and partitions it into
// recorded entries (Presentes, every status) and students with no entry
// (Ausentes).
func (s *ReportService) FullReportBySession(ctx context.Context, sessionID string) (*models.SessionReport, error) {
	session, roster, attendances, err := s.resolve(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	registered := make(map[string]struct{}, len(attendances))
	for _, record := range attendances {
		registered[record.StudentID] = struct{}{}
	}

	absentees := make([]models.Student, 0)
	for _, student := range roster {
		if _, ok := registered[student.ID]; !ok {
			absentees = append(absentees, student)
		}
	}

	return &models.SessionReport{
		Session:   session,
		Presentes: attendances,
		Ausentes:  absentees,
	}, nil
}

// MarkAbsencesForSession bulk-inserts an "ausente" record for every roster
// student with no entry in the session. The insert skips pairs that gained a
// record concurrently, so Created reflects rows actually written.
func (s *ReportService) MarkAbsencesForSession(ctx context.Context, sessionID string) (*models.AbsenceResult, error) {
	session, roster, attendances, err := s.resolve(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	registered := make(map[string]struct{}, len(attendances))
	for _, record := range attendances {
		registered[record.StudentID] = struct{}{}
	}

	now := time.Now().UTC()
	toCreate := make([]models.Attendance, 0)
	for _, student := range roster {
		if _, ok := registered[student.ID]; ok {
			continue
		}
		toCreate = append(toCreate, models.Attendance{
			SessionID: session.ID,
			StudentID: student.ID,
			ClassCode: session.ClassCode,
			Status:    models.PresenceStatusAusente,
			Method:    models.PresenceMethodManual,
			ViaFacial: false,
			Date:      now,
		})
	}

	created := 0
	if len(toCreate) > 0 {
		created, err = s.attendance.BulkInsert(ctx, toCreate)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to insert absences")
		}
		if s.cache != nil {
			s.cache.InvalidateClass(ctx, session.ClassCode)
		}
	}

	s.logger.Info("absences reconciled",
		zap.String("session_id", session.ID),
		zap.Int("created", created))
	return &models.AbsenceResult{Created: created}, nil
}

// ExportSessionReport renders the session report in the requested format and
// returns the payload with a suggested filename.
func (s *ReportService) ExportSessionReport(ctx context.Context, sessionID string, format ReportFormat) ([]byte, string, error) {
	session, roster, attendances, err := s.resolve(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}

	table := buildReportTable(session, roster, attendances)
	var payload []byte
	switch format {
	case ReportFormatCSV:
		payload, err = s.csv.Render(table)
	case ReportFormatPDF:
		payload, err = s.pdf.Render(table)
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "Formato inválido.")
	}
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}

	filename := fmt.Sprintf("relatorio-%s-%s.%s",
		strings.ToLower(session.ClassCode),
		session.Date.Format("2006-01-02"),
		format)
	return payload, filename, nil
}

func (s *ReportService) resolve(ctx context.Context, sessionID string) (*models.ClassSession, []models.Student, []models.Attendance, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil, appErrors.Clone(appErrors.ErrNotFound, msgSessionNotFound)
		}
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve session")
	}

	class, err := s.classes.FindByID(ctx, session.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil, appErrors.Clone(appErrors.ErrNotFound, msgSessionClassNotFound)
		}
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve class")
	}

	roster, err := s.students.ListByClassCode(ctx, strings.ToUpper(class.Code))
	if err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	attendances, err := s.attendance.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session attendance")
	}
	return session, roster, attendances, nil
}

func buildReportTable(session *models.ClassSession, roster []models.Student, attendances []models.Attendance) export.Table {
	names := make(map[string]string, len(roster))
	for _, student := range roster {
		names[student.ID] = student.Name
	}

	table := export.Table{
		Title:   fmt.Sprintf("Presenças %s (%s)", session.Name, session.ClassCode),
		Columns: []string{"Aluno", "Status", "Check-in", "Método"},
	}
	registered := make(map[string]struct{}, len(attendances))
	for _, record := range attendances {
		registered[record.StudentID] = struct{}{}
		name := names[record.StudentID]
		if name == "" {
			name = record.StudentID
		}
		checkIn := ""
		if record.CheckInTime != nil {
			checkIn = record.CheckInTime.Format("15:04:05")
		}
		table.Rows = append(table.Rows, []string{name, string(record.Status), checkIn, string(record.Method)})
	}
	for _, student := range roster {
		if _, ok := registered[student.ID]; ok {
			continue
		}
		table.Rows = append(table.Rows, []string{student.Name, string(models.PresenceStatusAusente), "", ""})
	}
	return table
}
