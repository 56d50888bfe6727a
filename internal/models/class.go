package models

import (
	"time"

	"github.com/lib/pq"
)

// Class represents a turma: a cohort of students identified by a short code.
// Codes are canonicalised to upper case on write and compared upper-cased
// everywhere; the code is immutable after creation.
type Class struct {
	ID        string         `db:"id" json:"id"`
	Code      string         `db:"code" json:"code"`
	Course    string         `db:"course" json:"course"`
	Shift     string         `db:"shift" json:"shift"`
	Year      int            `db:"year" json:"year"`
	Teachers  pq.StringArray `db:"teachers" json:"teachers"`
	Rooms     pq.StringArray `db:"rooms" json:"rooms"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	Search   string
	Shift    string
	Year     int
	Page     int
	PageSize int
}
