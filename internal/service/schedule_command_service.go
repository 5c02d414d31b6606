package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type scheduleEntryRepository interface {
	scheduleEntryReader
	List(ctx context.Context, filter models.ScheduleEntryFilter) ([]models.ScheduleEntry, int, error)
	ListEvents(ctx context.Context, entryID string) ([]models.ScheduleEvent, error)
	Save(ctx context.Context, entry models.ScheduleEntry, events ...models.ScheduleEvent) error
}

type termReportInvalidator interface {
	InvalidateTerm(ctx context.Context, term models.Term)
}

// ScheduleCommandService applies create and modify requests: it builds the new state, asks
// SchedulingService whether it may be committed, and persists it with its events.
type ScheduleCommandService struct {
	repo      scheduleEntryRepository
	rules     *SchedulingService
	reports   termReportInvalidator
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewScheduleCommandService instantiates ScheduleCommandService.
func NewScheduleCommandService(repo scheduleEntryRepository, rules *SchedulingService, reports termReportInvalidator, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *ScheduleCommandService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleCommandService{
		repo:      repo,
		rules:     rules,
		reports:   reports,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Check runs the create rules without persisting anything.
func (s *ScheduleCommandService) Check(ctx context.Context, req dto.CreateScheduleEntryRequest) (*dto.ValidationResult, error) {
	entry, _, err := s.build(req)
	if err != nil {
		return nil, err
	}
	ok, violations, err := s.rules.CanCreate(ctx, entry)
	if err != nil {
		return nil, err
	}
	result := dto.NewValidationResult(ok, violations)
	return &result, nil
}

// CheckReschedule runs the reschedule rules for an existing entry without persisting anything.
func (s *ScheduleCommandService) CheckReschedule(ctx context.Context, id string, req dto.RescheduleRequest) (*dto.ValidationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time slot payload")
	}
	slot, err := req.TimeSlot()
	if err != nil {
		return nil, validationError(err)
	}
	ok, violations, err := s.rules.CanReschedule(ctx, id, slot)
	if err != nil {
		return nil, err
	}
	result := dto.NewValidationResult(ok, violations)
	return &result, nil
}

// Create validates and stores a new entry.
func (s *ScheduleCommandService) Create(ctx context.Context, req dto.CreateScheduleEntryRequest) (*models.ScheduleEntry, error) {
	entry, event, err := s.build(req)
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, entry, "", event); err != nil {
		return nil, err
	}
	s.logger.Info("schedule entry created",
		zap.String("entry_id", entry.ID()),
		zap.String("teacher_id", entry.TeacherID()),
		zap.String("slot", entry.TimeSlot().String()),
	)
	return &entry, nil
}

// Reschedule moves an active entry to another slot.
func (s *ScheduleCommandService) Reschedule(ctx context.Context, id string, req dto.RescheduleRequest) (*models.ScheduleEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time slot payload")
	}
	slot, err := req.TimeSlot()
	if err != nil {
		return nil, validationError(err)
	}
	return s.mutate(ctx, id, func(entry models.ScheduleEntry) (models.ScheduleEntry, *models.ScheduleEvent, error) {
		return entry.ChangeTimeSlot(slot)
	})
}

// ChangeTeacher reassigns an active entry to another teacher.
func (s *ScheduleCommandService) ChangeTeacher(ctx context.Context, id string, req dto.ChangeTeacherRequest) (*models.ScheduleEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	return s.mutate(ctx, id, func(entry models.ScheduleEntry) (models.ScheduleEntry, *models.ScheduleEvent, error) {
		return entry.ChangeTeacher(req.TeacherID)
	})
}

// ChangeRoom moves an active entry to another room or clears it.
func (s *ScheduleCommandService) ChangeRoom(ctx context.Context, id string, req dto.ChangeRoomRequest) (*models.ScheduleEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}
	return s.mutate(ctx, id, func(entry models.ScheduleEntry) (models.ScheduleEntry, *models.ScheduleEvent, error) {
		return entry.ChangeRoom(req.Room)
	})
}

// Cancel soft-deletes an entry. Cancelling twice is a state error.
func (s *ScheduleCommandService) Cancel(ctx context.Context, id string) (*models.ScheduleEntry, error) {
	entry, err := s.rules.load(ctx, id)
	if err != nil {
		return nil, err
	}
	cancelled, event, err := entry.Cancel()
	if err != nil {
		return nil, stateError(err)
	}
	if err := s.save(ctx, cancelled, event); err != nil {
		return nil, err
	}
	return &cancelled, nil
}

// Reactivate restores a cancelled entry after checking it against the current term.
func (s *ScheduleCommandService) Reactivate(ctx context.Context, id string) (*models.ScheduleEntry, error) {
	entry, err := s.rules.load(ctx, id)
	if err != nil {
		return nil, err
	}
	active, event, err := entry.Reactivate()
	if err != nil {
		return nil, stateError(err)
	}
	if err := s.commit(ctx, active, id, event); err != nil {
		return nil, err
	}
	return &active, nil
}

// Get returns one entry.
func (s *ScheduleCommandService) Get(ctx context.Context, id string) (*models.ScheduleEntry, error) {
	entry, err := s.rules.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// History returns the lifecycle events of an entry, oldest first.
func (s *ScheduleCommandService) History(ctx context.Context, id string) ([]models.ScheduleEvent, error) {
	if _, err := s.rules.load(ctx, id); err != nil {
		return nil, err
	}
	events, err := s.repo.ListEvents(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule events")
	}
	return events, nil
}

// List returns entries with pagination metadata.
func (s *ScheduleCommandService) List(ctx context.Context, filter models.ScheduleEntryFilter) ([]models.ScheduleEntry, *models.Pagination, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule entries")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return entries, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *ScheduleCommandService) build(req dto.CreateScheduleEntryRequest) (models.ScheduleEntry, models.ScheduleEvent, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.ScheduleEntry{}, models.ScheduleEvent{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule entry payload")
	}
	slot, err := req.TimeSlotRequest.TimeSlot()
	if err != nil {
		return models.ScheduleEntry{}, models.ScheduleEvent{}, validationError(err)
	}
	entry, event, err := models.NewScheduleEntry(models.NewScheduleEntryInput{
		ClassID:   req.ClassID,
		SubjectID: req.SubjectID,
		TeacherID: req.TeacherID,
		TimeSlot:  slot,
		Year:      req.Year,
		Half:      req.Half,
		Room:      req.Room,
	}, s.now())
	if err != nil {
		return models.ScheduleEntry{}, models.ScheduleEvent{}, validationError(err)
	}
	return entry, event, nil
}

type transition func(models.ScheduleEntry) (models.ScheduleEntry, *models.ScheduleEvent, error)

// mutate applies change to an active entry. A no-op change returns the entry without saving.
func (s *ScheduleCommandService) mutate(ctx context.Context, id string, change transition) (*models.ScheduleEntry, error) {
	entry, err := s.rules.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !entry.Active() {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "cancelled schedule entries must be reactivated before they can be changed")
	}
	next, event, err := change(entry)
	if err != nil {
		return nil, validationError(err)
	}
	if event == nil {
		return &entry, nil
	}
	if err := s.commit(ctx, next, id, *event); err != nil {
		return nil, err
	}
	return &next, nil
}

// commit validates entry against its term and saves it. When the storage constraint rejects the
// write because another request won the race, the entry is re-validated and saved once more.
func (s *ScheduleCommandService) commit(ctx context.Context, entry models.ScheduleEntry, excludeID string, events ...models.ScheduleEvent) error {
	for attempt := 0; ; attempt++ {
		violations, err := s.rules.Validate(ctx, entry, excludeID)
		if err != nil {
			return err
		}
		if len(violations) > 0 {
			return conflictError(violations)
		}
		err = s.repo.Save(ctx, entry, events...)
		if err == nil {
			s.invalidate(ctx, entry.Term())
			return nil
		}
		if !errors.Is(err, models.ErrPersistenceConflict) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save schedule entry")
		}
		s.metrics.RecordPersistenceConflict()
		if attempt > 0 {
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "schedule entry conflicts with a concurrent booking")
		}
		s.logger.Warn("persistence conflict, re-validating", zap.String("entry_id", entry.ID()))
	}
}

func (s *ScheduleCommandService) save(ctx context.Context, entry models.ScheduleEntry, events ...models.ScheduleEvent) error {
	if err := s.repo.Save(ctx, entry, events...); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save schedule entry")
	}
	s.invalidate(ctx, entry.Term())
	return nil
}

func (s *ScheduleCommandService) invalidate(ctx context.Context, term models.Term) {
	if s.reports != nil {
		s.reports.InvalidateTerm(ctx, term)
	}
}

func validationError(err error) error {
	var vErr *models.ValidationError
	if errors.As(err, &vErr) {
		return appErrors.WithDetails(appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, vErr.Message), vErr)
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
}

func stateError(err error) error {
	var sErr *models.StateError
	if errors.As(err, &sErr) {
		return appErrors.WithDetails(appErrors.Wrap(err, appErrors.ErrInvalidState.Code, appErrors.ErrInvalidState.Status, sErr.Message), sErr)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "unexpected state transition failure")
}

func conflictError(violations []models.ScheduleViolation) error {
	msg := fmt.Sprintf("schedule entry violates %d scheduling rule(s)", len(violations))
	return appErrors.WithDetails(appErrors.Clone(appErrors.ErrConflict, msg), dto.NewValidationResult(false, violations))
}
