package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type subjectRepository interface {
	List(ctx context.Context, search string) ([]models.Subject, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	Upsert(ctx context.Context, subject *models.Subject) error
}

// UpsertSubjectRequest declares a subject and its yearly teaching hours.
type UpsertSubjectRequest struct {
	Code        string `json:"code" validate:"required,max=32"`
	Name        string `json:"name" validate:"required,max=128"`
	YearlyHours int    `json:"yearly_hours" validate:"gte=0,lte=2000"`
}

// SubjectService manages the subject catalogue consulted by the subject load rule.
type SubjectService struct {
	repo      subjectRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService creates a new subject service.
func NewSubjectService(repo subjectRepository, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, validator: validate, logger: logger}
}

// List returns subjects, optionally filtered by a search keyword.
func (s *SubjectService) List(ctx context.Context, search string) ([]models.Subject, error) {
	subjects, err := s.repo.List(ctx, search)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	if subjects == nil {
		subjects = []models.Subject{}
	}
	return subjects, nil
}

// Get returns subject by identifier.
func (s *SubjectService) Get(ctx context.Context, id string) (*models.Subject, error) {
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return subject, nil
}

// Put creates or replaces the subject identified by id.
func (s *SubjectService) Put(ctx context.Context, id string, req UpsertSubjectRequest) (*models.Subject, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	subject := &models.Subject{
		ID:          id,
		Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
		Name:        strings.TrimSpace(req.Name),
		YearlyHours: req.YearlyHours,
	}
	if existing, err := s.repo.FindByID(ctx, id); err == nil {
		subject.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	if err := s.repo.Upsert(ctx, subject); err != nil {
		if errors.Is(err, models.ErrDuplicateSubjectCode) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, fmt.Sprintf("subject code %s is already in use", subject.Code))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save subject")
	}
	s.logger.Info("subject saved", zap.String("subject_id", id), zap.Int("yearly_hours", subject.YearlyHours))
	return subject, nil
}
