package service

import (
	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// ConflictPolicy selects which shared resources count as a double booking.
// Teacher and room overlaps always conflict; CheckClass additionally rejects a class
// booked twice at overlapping times.
type ConflictPolicy struct {
	CheckClass bool
}

// FindConflicts returns the entries of existing that clash with candidate under the default policy.
func FindConflicts(candidate models.ScheduleEntry, existing []models.ScheduleEntry, excludeID string) []models.ScheduleEntry {
	return ConflictPolicy{}.FindConflicts(candidate, existing, excludeID)
}

// FindConflicts scans existing linearly and keeps its order. Inactive entries, other terms,
// excludeID and the candidate itself are skipped, so the input does not need pre-filtering.
func (p ConflictPolicy) FindConflicts(candidate models.ScheduleEntry, existing []models.ScheduleEntry, excludeID string) []models.ScheduleEntry {
	var conflicts []models.ScheduleEntry
	for _, entry := range existing {
		if excludeID != "" && entry.ID() == excludeID {
			continue
		}
		if p.Conflicts(candidate, entry) {
			conflicts = append(conflicts, entry)
		}
	}
	return conflicts
}

// Conflicts reports whether a and b cannot both be active.
func (p ConflictPolicy) Conflicts(a, b models.ScheduleEntry) bool {
	if a.ConflictsWith(b) {
		return true
	}
	return p.CheckClass && a.ClassOverlaps(b)
}

// ConflictDimension names the resource two clashing entries share, preferring teacher, then room, then class.
func ConflictDimension(candidate, other models.ScheduleEntry) models.ConflictDimension {
	switch {
	case candidate.TeacherID() == other.TeacherID():
		return models.DimensionTeacher
	case candidate.SharesRoomWith(other):
		return models.DimensionRoom
	default:
		return models.DimensionClass
	}
}
