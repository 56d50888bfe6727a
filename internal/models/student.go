package models

import (
	"time"

	"github.com/lib/pq"
)

// Student represents a learner registered in the institution. Classes holds
// the upper-cased codes of every turma the student belongs to; FacialID is
// the opaque identifier issued by the facial-matching provider and stays nil
// until the student is enrolled for face check-in.
type Student struct {
	ID           string         `db:"id" json:"id"`
	Name         string         `db:"name" json:"name"`
	Registration string         `db:"registration" json:"registration"`
	FacialID     *string        `db:"facial_id" json:"facial_id,omitempty"`
	Classes      pq.StringArray `db:"classes" json:"classes"`
	Active       bool           `db:"active" json:"active"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// MemberOf reports whether the student belongs to the given class code.
// Comparison is done on the canonical upper-case form.
func (s *Student) MemberOf(classCode string) bool {
	for _, code := range s.Classes {
		if code == classCode {
			return true
		}
	}
	return false
}

// StudentFilter encapsulates search parameters for listing students.
type StudentFilter struct {
	Search    string
	ClassCode string
	Active    *bool
	Page      int
	PageSize  int
}
