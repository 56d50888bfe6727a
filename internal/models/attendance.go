package models

import "time"

// PresenceStatus classifies an attendance record.
type PresenceStatus string

const (
	PresenceStatusPresente PresenceStatus = "presente"
	PresenceStatusAtrasado PresenceStatus = "atrasado"
	PresenceStatusAusente  PresenceStatus = "ausente"
)

// Valid returns true when the status is a supported value.
func (s PresenceStatus) Valid() bool {
	switch s {
	case PresenceStatusPresente, PresenceStatusAtrasado, PresenceStatusAusente:
		return true
	default:
		return false
	}
}

// PresenceMethod records how an attendance entry was produced.
type PresenceMethod string

const (
	PresenceMethodFacial PresenceMethod = "facial"
	PresenceMethodManual PresenceMethod = "manual"
)

// Attendance is one presence/absence record for a (session, student) pair.
// The pair is unique: the table carries a unique index on
// (session_id, student_id) and inserts go through ON CONFLICT DO NOTHING.
type Attendance struct {
	ID          string         `db:"id" json:"id"`
	SessionID   string         `db:"session_id" json:"session_id"`
	StudentID   string         `db:"student_id" json:"student_id"`
	ClassCode   string         `db:"class_code" json:"class_code"`
	Status      PresenceStatus `db:"status" json:"status"`
	CheckInTime *time.Time     `db:"check_in_time" json:"check_in_time,omitempty"`
	Method      PresenceMethod `db:"method" json:"method"`
	ViaFacial   bool           `db:"via_facial" json:"via_facial"`
	RecordedBy  *string        `db:"recorded_by" json:"recorded_by,omitempty"`
	Date        time.Time      `db:"date" json:"date"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// SessionReport pairs a session with its recorded entries and the roster
// students that have none. Presentes carries every recorded entry regardless
// of status; only Ausentes is a computed set.
type SessionReport struct {
	Session   *ClassSession `json:"session"`
	Presentes []Attendance  `json:"presentes"`
	Ausentes  []Student     `json:"ausentes"`
}

// AbsenceResult reports how many absence records a reconciliation created.
type AbsenceResult struct {
	Created int `json:"created"`
}

// ResetResult carries the confirmation message of an attendance reset.
type ResetResult struct {
	Message string `json:"message"`
}
