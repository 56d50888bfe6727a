package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/presenca-digital/presenca-api/internal/service"
	appErrors "github.com/presenca-digital/presenca-api/pkg/errors"
	"github.com/presenca-digital/presenca-api/pkg/response"
)

// AttendanceHandler exposes presence-marking and attendance query endpoints.
type AttendanceHandler struct {
	service *service.AttendanceService
}

// NewAttendanceHandler constructs an attendance handler.
func NewAttendanceHandler(svc *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// FacialPresenceRequest is the payload for facial check-in.
type FacialPresenceRequest struct {
	FacialID  string `json:"facial_id" binding:"required"`
	SessionID string `json:"session_id" binding:"required"`
	ClassCode string `json:"class_code" binding:"required"`
}

// MarkByFace godoc
// @Summary Record presence from a facial match
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body FacialPresenceRequest true "Facial check-in payload"
// @Success 201 {object} response.Envelope
// @Router /attendance/face [post]
func (h *AttendanceHandler) MarkByFace(c *gin.Context) {
	var req FacialPresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.service.MarkPresenceByFace(c.Request.Context(), req.FacialID, req.SessionID, req.ClassCode)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// MarkManual godoc
// @Summary Record presence entered by a staff member
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.ManualPresenceRequest true "Manual presence payload"
// @Success 201 {object} response.Envelope
// @Router /attendance/manual [post]
func (h *AttendanceHandler) MarkManual(c *gin.Context) {
	var req service.ManualPresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if req.RecordedBy == "" {
		req.RecordedBy = currentUserID(c)
	}
	record, err := h.service.MarkPresenceManual(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Today godoc
// @Summary List a class's attendance for the current day
// @Tags Attendance
// @Produce json
// @Param classCode path string true "Class code"
// @Success 200 {object} response.Envelope
// @Router /attendance/today/{classCode} [get]
func (h *AttendanceHandler) Today(c *gin.Context) {
	records, err := h.service.GetTodayByClass(c.Request.Context(), c.Param("classCode"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Range godoc
// @Summary List a class's attendance within a date range
// @Tags Attendance
// @Produce json
// @Param classCode path string true "Class code"
// @Param start query string true "Range start (RFC 3339 or YYYY-MM-DD)"
// @Param end query string true "Range end (RFC 3339 or YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/range/{classCode} [get]
func (h *AttendanceHandler) Range(c *gin.Context) {
	start, err := parseDateParam(c.Query("start"), false)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "Data inicial inválida."))
		return
	}
	end, err := parseDateParam(c.Query("end"), true)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "Data final inválida."))
		return
	}

	records, err := h.service.GetRangeByClass(c.Request.Context(), c.Param("classCode"), start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// parseDateParam accepts RFC 3339 timestamps or plain dates. Plain end dates
// extend to the last instant of the day so the range stays inclusive.
func parseDateParam(raw string, endOfDay bool) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	day, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		return day.Add(24*time.Hour - time.Millisecond), nil
	}
	return day, nil
}
