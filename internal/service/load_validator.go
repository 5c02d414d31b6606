package service

import (
	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// DefaultTeacherCeilingMinutes is the weekly teaching ceiling (40 hours).
const DefaultTeacherCeilingMinutes = 2400

// TeacherWeeklyMinutes sums the active minutes a teacher holds in a term.
func TeacherWeeklyMinutes(teacherID string, year, half int, entries []models.ScheduleEntry) int {
	return TeacherWeeklyMinutesExcluding(teacherID, year, half, entries, "")
}

// TeacherWeeklyMinutesExcluding is TeacherWeeklyMinutes without the entry identified by excludeID.
func TeacherWeeklyMinutesExcluding(teacherID string, year, half int, entries []models.ScheduleEntry, excludeID string) int {
	total := 0
	for _, e := range entries {
		if !countable(e, year, half, excludeID) || e.TeacherID() != teacherID {
			continue
		}
		total += e.DurationMinutes()
	}
	return total
}

// WithinTeacherCeiling reports whether addedMinutes still fit under ceilingMinutes.
// A non-positive ceiling falls back to DefaultTeacherCeilingMinutes.
func WithinTeacherCeiling(teacherID string, year, half int, entries []models.ScheduleEntry, addedMinutes, ceilingMinutes int) bool {
	return WithinTeacherCeilingExcluding(teacherID, year, half, entries, "", addedMinutes, ceilingMinutes)
}

// WithinTeacherCeilingExcluding is WithinTeacherCeiling without the entry identified by excludeID.
func WithinTeacherCeilingExcluding(teacherID string, year, half int, entries []models.ScheduleEntry, excludeID string, addedMinutes, ceilingMinutes int) bool {
	if ceilingMinutes <= 0 {
		ceilingMinutes = DefaultTeacherCeilingMinutes
	}
	return TeacherWeeklyMinutesExcluding(teacherID, year, half, entries, excludeID)+addedMinutes <= ceilingMinutes
}

// SubjectTermMinutes sums the active minutes a class spends on a subject in a term.
func SubjectTermMinutes(classID, subjectID string, year, half int, entries []models.ScheduleEntry) int {
	return SubjectTermMinutesExcluding(classID, subjectID, year, half, entries, "")
}

// SubjectTermMinutesExcluding is SubjectTermMinutes without the entry identified by excludeID.
func SubjectTermMinutesExcluding(classID, subjectID string, year, half int, entries []models.ScheduleEntry, excludeID string) int {
	total := 0
	for _, e := range entries {
		if !countable(e, year, half, excludeID) || e.ClassID() != classID || e.SubjectID() != subjectID {
			continue
		}
		total += e.DurationMinutes()
	}
	return total
}

// SubjectCeilingMinutes is the term ceiling of a subject declaring subjectYearlyHours.
func SubjectCeilingMinutes(subjectYearlyHours int) int {
	return models.Subject{YearlyHours: subjectYearlyHours}.TermCeilingMinutes()
}

// WithinSubjectCeiling reports whether addedMinutes keep the class under half of the subject's yearly hours.
func WithinSubjectCeiling(classID, subjectID string, year, half int, entries []models.ScheduleEntry, addedMinutes, subjectYearlyHours int) bool {
	return WithinSubjectCeilingExcluding(classID, subjectID, year, half, entries, "", addedMinutes, subjectYearlyHours)
}

// WithinSubjectCeilingExcluding is WithinSubjectCeiling without the entry identified by excludeID.
func WithinSubjectCeilingExcluding(classID, subjectID string, year, half int, entries []models.ScheduleEntry, excludeID string, addedMinutes, subjectYearlyHours int) bool {
	current := SubjectTermMinutesExcluding(classID, subjectID, year, half, entries, excludeID)
	return current+addedMinutes <= SubjectCeilingMinutes(subjectYearlyHours)
}

func countable(e models.ScheduleEntry, year, half int, excludeID string) bool {
	if !e.Active() {
		return false
	}
	if excludeID != "" && e.ID() == excludeID {
		return false
	}
	term := e.Term()
	return term.Year == year && term.Half == half
}
