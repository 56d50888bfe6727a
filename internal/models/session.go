package models

import "time"

// SessionStatus is the lifecycle state of a class session.
type SessionStatus string

const (
	SessionStatusOpen   SessionStatus = "open"
	SessionStatusClosed SessionStatus = "closed"
)

// ClassSession is a single scheduled occurrence of a class meeting during
// which attendance is taken. Sessions are never deleted; close/reset only
// mutate status and audit fields.
type ClassSession struct {
	ID           string        `db:"id" json:"id"`
	Name         string        `db:"name" json:"name"`
	ClassID      string        `db:"class_id" json:"class_id"`
	ClassCode    string        `db:"class_code" json:"class_code"`
	TeacherID    string        `db:"teacher_id" json:"teacher_id"`
	Date         time.Time     `db:"date" json:"date"`
	Status       SessionStatus `db:"status" json:"status"`
	LastEditedBy *string       `db:"last_edited_by" json:"last_edited_by,omitempty"`
	LastEditedAt *time.Time    `db:"last_edited_at" json:"last_edited_at,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// Open reports whether the session still accepts attendance records.
func (s *ClassSession) Open() bool {
	return s.Status == SessionStatusOpen
}

// SessionFilter scopes session listing queries.
type SessionFilter struct {
	ClassID   string
	TeacherID string
	Status    *SessionStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
}
