package models

import (
	"fmt"
	"time"
)

// Term is one half (semester) of a school year.
type Term struct {
	Year int `json:"year"`
	Half int `json:"half"`
}

// NewTerm validates a term against the academic window around now.
func NewTerm(year, half int, now time.Time) (Term, error) {
	term := Term{Year: year, Half: half}
	if err := term.Validate(now); err != nil {
		return Term{}, err
	}
	return term, nil
}

// Validate checks half is 1 or 2 and year lies within one year of now.
func (t Term) Validate(now time.Time) error {
	if t.Half != 1 && t.Half != 2 {
		return NewValidationError("half", CodeInvalidTerm, fmt.Sprintf("half must be 1 or 2, got %d", t.Half))
	}
	current := now.Year()
	if t.Year < current-1 || t.Year > current+1 {
		return NewValidationError("year", CodeInvalidTerm, fmt.Sprintf("year %d must be between %d and %d", t.Year, current-1, current+1))
	}
	return nil
}

func (t Term) String() string {
	return fmt.Sprintf("%d/%d", t.Year, t.Half)
}

// Bounds returns the calendar window of the term: half 1 runs January to June,
// half 2 July to December. end is exclusive.
func (t Term) Bounds() (start, end time.Time) {
	month := time.January
	if t.Half == 2 {
		month = time.July
	}
	start = time.Date(t.Year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 6, 0)
}

// FirstOn returns the first date within the term that falls on day.
func (t Term) FirstOn(day Weekday) time.Time {
	start, _ := t.Bounds()
	offset := (int(day) - int(start.Weekday()) + 7) % 7
	return start.AddDate(0, 0, offset)
}
