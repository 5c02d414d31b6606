package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// SubjectRepository handles persistence for subjects and their declared yearly hours.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new repository instance.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// List returns subjects ordered by code, optionally filtered by a code or name fragment.
func (r *SubjectRepository) List(ctx context.Context, search string) ([]models.Subject, error) {
	query := "SELECT id, code, name, yearly_hours, created_at, updated_at FROM subjects"
	var args []interface{}
	if search = strings.TrimSpace(search); search != "" {
		query += " WHERE (LOWER(code) LIKE $1 OR LOWER(name) LIKE $1)"
		args = append(args, "%"+strings.ToLower(search)+"%")
	}
	query += " ORDER BY code ASC"

	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// FindByID returns a subject by id. A missing row yields sql.ErrNoRows.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	const query = `SELECT id, code, name, yearly_hours, created_at, updated_at FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// Upsert inserts the subject or updates its code, name and hours.
func (r *SubjectRepository) Upsert(ctx context.Context, subject *models.Subject) error {
	now := time.Now().UTC()
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = now
	}
	subject.UpdatedAt = now

	const query = `INSERT INTO subjects (id, code, name, yearly_hours, created_at, updated_at) VALUES (:id, :code, :name, :yearly_hours, :created_at, :updated_at)
ON CONFLICT (id) DO UPDATE SET code = EXCLUDED.code, name = EXCLUDED.name, yearly_hours = EXCLUDED.yearly_hours, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return fmt.Errorf("upsert subject %s (%s): %w", subject.ID, pqErr.Constraint, models.ErrDuplicateSubjectCode)
		}
		return fmt.Errorf("upsert subject: %w", err)
	}
	return nil
}
