package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type scheduleEntryReader interface {
	FindByID(ctx context.Context, id string) (models.ScheduleEntry, error)
	FindActiveEntries(ctx context.Context, year, half int) ([]models.ScheduleEntry, error)
	FindActiveEntriesByTeacher(ctx context.Context, teacherID string, year, half int) ([]models.ScheduleEntry, error)
	FindActiveEntriesByRoom(ctx context.Context, room string, year, half int) ([]models.ScheduleEntry, error)
	FindActiveEntriesByClass(ctx context.Context, classID string, year, half int) ([]models.ScheduleEntry, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// SchedulingConfig tunes the rules applied by SchedulingService.
type SchedulingConfig struct {
	TeacherCeilingMinutes int
	Policy                ConflictPolicy
	Catalogue             models.PeriodCatalogue
	Rooms                 []string
}

// TeacherLoad summarises a teacher's committed minutes in a term.
type TeacherLoad struct {
	TeacherID      string `json:"teacher_id"`
	Year           int    `json:"year"`
	Half           int    `json:"half"`
	Minutes        int    `json:"minutes"`
	CeilingMinutes int    `json:"ceiling_minutes"`
	Entries        int    `json:"entries"`
}

// SchedulingService decides whether a create or modify operation on a schedule entry may proceed
// and answers free slot and free room queries. It keeps no state between calls.
type SchedulingService struct {
	repo     scheduleEntryReader
	subjects subjectReader
	cfg      SchedulingConfig
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewSchedulingService wires the scheduling rules.
func NewSchedulingService(repo scheduleEntryReader, subjects subjectReader, cfg SchedulingConfig, metrics *MetricsService, logger *zap.Logger) *SchedulingService {
	if cfg.TeacherCeilingMinutes <= 0 {
		cfg.TeacherCeilingMinutes = DefaultTeacherCeilingMinutes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchedulingService{repo: repo, subjects: subjects, cfg: cfg, metrics: metrics, logger: logger}
}

// TeacherCeilingMinutes exposes the configured weekly ceiling.
func (s *SchedulingService) TeacherCeilingMinutes() int {
	return s.cfg.TeacherCeilingMinutes
}

// CanCreate checks a candidate against the active entries of its term. Every violated rule is
// reported; the error is reserved for lookup failures.
func (s *SchedulingService) CanCreate(ctx context.Context, candidate models.ScheduleEntry) (bool, []models.ScheduleViolation, error) {
	violations, err := s.Validate(ctx, candidate, "")
	if err != nil {
		return false, nil, err
	}
	return len(violations) == 0, violations, nil
}

// CanReschedule checks moving an existing entry to slot, ignoring the entry's current booking.
func (s *SchedulingService) CanReschedule(ctx context.Context, entryID string, slot models.TimeSlot) (bool, []models.ScheduleViolation, error) {
	entry, err := s.load(ctx, entryID)
	if err != nil {
		return false, nil, err
	}
	if !entry.Active() {
		return false, nil, appErrors.Clone(appErrors.ErrInvalidState, "cancelled schedule entries cannot be rescheduled")
	}
	moved, _, err := entry.ChangeTimeSlot(slot)
	if err != nil {
		return false, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	violations, err := s.Validate(ctx, moved, entryID)
	if err != nil {
		return false, nil, err
	}
	return len(violations) == 0, violations, nil
}

// Validate runs conflict and load rules for candidate against the term snapshot, skipping excludeID.
func (s *SchedulingService) Validate(ctx context.Context, candidate models.ScheduleEntry, excludeID string) ([]models.ScheduleViolation, error) {
	term := candidate.Term()
	existing, err := s.repo.FindActiveEntries(ctx, term.Year, term.Half)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term schedule")
	}

	var violations []models.ScheduleViolation
	for _, other := range s.cfg.Policy.FindConflicts(candidate, existing, excludeID) {
		violations = append(violations, models.NewConflictViolation(ConflictDimension(candidate, other), other))
	}

	added := candidate.DurationMinutes()
	if ceiling := s.TeacherCeilingMinutes(); !WithinTeacherCeilingExcluding(candidate.TeacherID(), term.Year, term.Half, existing, excludeID, added, ceiling) {
		current := TeacherWeeklyMinutesExcluding(candidate.TeacherID(), term.Year, term.Half, existing, excludeID)
		violations = append(violations, models.NewLoadViolation(models.ViolationTeacherLoadCeiling, current, added, ceiling))
	}

	subject, err := s.subject(ctx, candidate.SubjectID())
	if err != nil {
		return nil, err
	}
	if ceiling := subject.TermCeilingMinutes(); ceiling > 0 && !WithinSubjectCeilingExcluding(candidate.ClassID(), candidate.SubjectID(), term.Year, term.Half, existing, excludeID, added, subject.YearlyHours) {
		current := SubjectTermMinutesExcluding(candidate.ClassID(), candidate.SubjectID(), term.Year, term.Half, existing, excludeID)
		violations = append(violations, models.NewLoadViolation(models.ViolationSubjectLoadCeiling, current, added, ceiling))
	}

	s.metrics.RecordValidation(violations)
	if len(violations) > 0 {
		s.logger.Debug("schedule entry rejected",
			zap.String("entry_id", candidate.ID()),
			zap.String("term", term.String()),
			zap.Int("violations", len(violations)),
		)
	}
	return violations, nil
}

// FreeSlotsForTeacher returns the catalogue periods of day that the teacher has not booked, in period order.
func (s *SchedulingService) FreeSlotsForTeacher(ctx context.Context, teacherID string, day models.Weekday, year, half int) ([]models.TimeSlot, error) {
	if !day.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid day of week")
	}
	booked, err := s.repo.FindActiveEntriesByTeacher(ctx, teacherID, year, half)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher schedule")
	}
	free := make([]models.TimeSlot, 0, len(s.cfg.Catalogue.Periods))
	for _, slot := range s.cfg.Catalogue.SlotsFor(day) {
		if !overlapsAny(slot, booked, year, half) {
			free = append(free, slot)
		}
	}
	return free, nil
}

// FreeRooms returns the candidate rooms without an overlapping active booking. Candidates are trimmed and
// de-duplicated case-insensitively with their first spelling and order kept. An empty candidate list
// falls back to the configured rooms.
func (s *SchedulingService) FreeRooms(ctx context.Context, slot models.TimeSlot, year, half int, candidateRooms []string) ([]string, error) {
	if slot.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "time slot is required")
	}
	if len(candidateRooms) == 0 {
		candidateRooms = s.cfg.Rooms
	}
	existing, err := s.repo.FindActiveEntries(ctx, year, half)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term schedule")
	}
	busy := make(map[string]struct{})
	for _, e := range existing {
		if e.Room() == "" || !e.Active() || e.Term() != (models.Term{Year: year, Half: half}) {
			continue
		}
		if e.TimeSlot().Overlaps(slot) {
			busy[strings.ToLower(e.Room())] = struct{}{}
		}
	}

	seen := make(map[string]struct{}, len(candidateRooms))
	free := make([]string, 0, len(candidateRooms))
	for _, room := range candidateRooms {
		room = strings.TrimSpace(room)
		if room == "" {
			continue
		}
		key := strings.ToLower(room)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, taken := busy[key]; !taken {
			free = append(free, room)
		}
	}
	return free, nil
}

// DetectAllConflicts compares every pair of active entries of a term and reports each clashing pair once.
func (s *SchedulingService) DetectAllConflicts(ctx context.Context, year, half int) ([]models.ConflictPair, error) {
	entries, err := s.repo.FindActiveEntries(ctx, year, half)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term schedule")
	}
	pairs := make([]models.ConflictPair, 0)
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if s.cfg.Policy.Conflicts(entries[i], entries[j]) {
				pairs = append(pairs, models.ConflictPair{
					First:     entries[i],
					Second:    entries[j],
					Dimension: ConflictDimension(entries[i], entries[j]),
				})
			}
		}
	}
	s.logger.Info("term conflict sweep finished",
		zap.Int("year", year),
		zap.Int("half", half),
		zap.Int("entries", len(entries)),
		zap.Int("pairs", len(pairs)),
	)
	return pairs, nil
}

// TeacherTimetable lists a teacher's active entries of a term in slot order.
func (s *SchedulingService) TeacherTimetable(ctx context.Context, teacherID string, year, half int) ([]models.ScheduleEntry, error) {
	entries, err := s.repo.FindActiveEntriesByTeacher(ctx, teacherID, year, half)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher schedule")
	}
	return sortedBySlot(entries), nil
}

// RoomTimetable lists the active bookings of a room in a term in slot order.
func (s *SchedulingService) RoomTimetable(ctx context.Context, room string, year, half int) ([]models.ScheduleEntry, error) {
	room = strings.TrimSpace(room)
	if room == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "room is required")
	}
	entries, err := s.repo.FindActiveEntriesByRoom(ctx, room, year, half)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room schedule")
	}
	return sortedBySlot(entries), nil
}

// ClassTimetable lists a class's active entries of a term in slot order.
func (s *SchedulingService) ClassTimetable(ctx context.Context, classID string, year, half int) ([]models.ScheduleEntry, error) {
	entries, err := s.repo.FindActiveEntriesByClass(ctx, classID, year, half)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class schedule")
	}
	return sortedBySlot(entries), nil
}

// TeacherLoad reports the teacher's committed minutes against the weekly ceiling.
func (s *SchedulingService) TeacherLoad(ctx context.Context, teacherID string, year, half int) (*TeacherLoad, error) {
	entries, err := s.repo.FindActiveEntriesByTeacher(ctx, teacherID, year, half)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher schedule")
	}
	return &TeacherLoad{
		TeacherID:      teacherID,
		Year:           year,
		Half:           half,
		Minutes:        TeacherWeeklyMinutes(teacherID, year, half, entries),
		CeilingMinutes: s.TeacherCeilingMinutes(),
		Entries:        len(entries),
	}, nil
}

func (s *SchedulingService) load(ctx context.Context, id string) (models.ScheduleEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ScheduleEntry{}, appErrors.Clone(appErrors.ErrNotFound, "schedule entry not found")
		}
		return models.ScheduleEntry{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule entry")
	}
	return entry, nil
}

// subject returns a zero Subject when the subject is unknown or the lookup is not wired.
// A zero term ceiling skips the subject hours check.
func (s *SchedulingService) subject(ctx context.Context, subjectID string) (models.Subject, error) {
	if s.subjects == nil {
		return models.Subject{}, nil
	}
	subject, err := s.subjects.FindByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Debug("subject not registered, skipping term hours check", zap.String("subject_id", subjectID))
			return models.Subject{}, nil
		}
		return models.Subject{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if subject == nil {
		return models.Subject{}, nil
	}
	if subject.TermCeilingMinutes() == 0 {
		s.logger.Debug("subject declares no yearly hours, skipping term hours check", zap.String("subject_id", subjectID))
	}
	return *subject, nil
}

func overlapsAny(slot models.TimeSlot, entries []models.ScheduleEntry, year, half int) bool {
	term := models.Term{Year: year, Half: half}
	for _, e := range entries {
		if e.Active() && e.Term() == term && e.TimeSlot().Overlaps(slot) {
			return true
		}
	}
	return false
}

func sortedBySlot(entries []models.ScheduleEntry) []models.ScheduleEntry {
	out := make([]models.ScheduleEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TimeSlot().Less(out[j].TimeSlot())
	})
	return out
}
