package models

import (
	"errors"
	"time"
)

// ErrDuplicateSubjectCode is returned by storage when another subject already holds the code.
var ErrDuplicateSubjectCode = errors.New("subject code is already in use")

// Subject represents an academic subject and its declared teaching load.
type Subject struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	YearlyHours int       `db:"yearly_hours" json:"yearly_hours"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// TermCeilingMinutes splits the yearly hours evenly across the two halves.
// It returns 0 when no hours are declared.
func (s Subject) TermCeilingMinutes() int {
	if s.YearlyHours <= 0 {
		return 0
	}
	return s.YearlyHours * 60 / 2
}
