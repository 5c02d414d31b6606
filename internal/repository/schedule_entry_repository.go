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

const scheduleEntryColumns = "id, class_id, subject_id, teacher_id, day_of_week, start_minute, end_minute, year, half, room, active, created_at, updated_at"

// PostgreSQL error codes raised by the overlap guards.
const (
	pqUniqueViolation    = "23505"
	pqExclusionViolation = "23P01"
)

type queryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// ScheduleEntryRepository persists schedule entries and their lifecycle events.
type ScheduleEntryRepository struct {
	db      *sqlx.DB
	metrics queryObserver
}

// NewScheduleEntryRepository creates a new schedule entry repository. metrics may be nil.
func NewScheduleEntryRepository(db *sqlx.DB, metrics queryObserver) *ScheduleEntryRepository {
	return &ScheduleEntryRepository{db: db, metrics: metrics}
}

// FindByID loads one entry. A missing row yields sql.ErrNoRows.
func (r *ScheduleEntryRepository) FindByID(ctx context.Context, id string) (models.ScheduleEntry, error) {
	defer r.observe("schedule_entries.find_by_id", time.Now())
	query := "SELECT " + scheduleEntryColumns + " FROM schedule_entries WHERE id = $1"
	var rec models.ScheduleEntryRecord
	if err := r.db.GetContext(ctx, &rec, query, id); err != nil {
		return models.ScheduleEntry{}, err
	}
	return models.RestoreScheduleEntry(rec)
}

// FindActiveEntries returns the active entries of a term ordered by day and start.
func (r *ScheduleEntryRepository) FindActiveEntries(ctx context.Context, year, half int) ([]models.ScheduleEntry, error) {
	defer r.observe("schedule_entries.find_active", time.Now())
	return r.selectActive(ctx, "", year, half)
}

// FindActiveEntriesByTeacher narrows FindActiveEntries to one teacher.
func (r *ScheduleEntryRepository) FindActiveEntriesByTeacher(ctx context.Context, teacherID string, year, half int) ([]models.ScheduleEntry, error) {
	defer r.observe("schedule_entries.find_active_by_teacher", time.Now())
	return r.selectActive(ctx, "teacher_id = $3", year, half, teacherID)
}

// FindActiveEntriesByRoom narrows FindActiveEntries to one room, compared case-insensitively.
func (r *ScheduleEntryRepository) FindActiveEntriesByRoom(ctx context.Context, room string, year, half int) ([]models.ScheduleEntry, error) {
	defer r.observe("schedule_entries.find_active_by_room", time.Now())
	return r.selectActive(ctx, "LOWER(room) = LOWER($3)", year, half, strings.TrimSpace(room))
}

// FindActiveEntriesByClass narrows FindActiveEntries to one class.
func (r *ScheduleEntryRepository) FindActiveEntriesByClass(ctx context.Context, classID string, year, half int) ([]models.ScheduleEntry, error) {
	defer r.observe("schedule_entries.find_active_by_class", time.Now())
	return r.selectActive(ctx, "class_id = $3", year, half, classID)
}

func (r *ScheduleEntryRepository) selectActive(ctx context.Context, condition string, year, half int, extra ...interface{}) ([]models.ScheduleEntry, error) {
	query := "SELECT " + scheduleEntryColumns + " FROM schedule_entries WHERE active AND year = $1 AND half = $2"
	if condition != "" {
		query += " AND " + condition
	}
	query += " ORDER BY day_of_week ASC, start_minute ASC, id ASC"

	args := append([]interface{}{year, half}, extra...)
	var records []models.ScheduleEntryRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("find active schedule entries: %w", err)
	}
	return restoreEntries(records)
}

// List returns entries with optional filtering and pagination. Cancelled entries are hidden unless requested.
func (r *ScheduleEntryRepository) List(ctx context.Context, filter models.ScheduleEntryFilter) ([]models.ScheduleEntry, int, error) {
	defer r.observe("schedule_entries.list", time.Now())
	base := "FROM schedule_entries WHERE 1=1"
	var conditions []string
	var args []interface{}

	if !filter.IncludeCancel {
		conditions = append(conditions, "active")
	}
	if filter.Year > 0 {
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)+1))
		args = append(args, filter.Year)
	}
	if filter.Half > 0 {
		conditions = append(conditions, fmt.Sprintf("half = $%d", len(args)+1))
		args = append(args, filter.Half)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.Room != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(room) = LOWER($%d)", len(args)+1))
		args = append(args, filter.Room)
	}
	if filter.DayOfWeek.Valid() {
		conditions = append(conditions, fmt.Sprintf("day_of_week = $%d", len(args)+1))
		args = append(args, int(filter.DayOfWeek))
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY year DESC, half DESC, day_of_week ASC, start_minute ASC LIMIT %d OFFSET %d", scheduleEntryColumns, base, size, offset)
	var records []models.ScheduleEntryRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedule entries: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedule entries: %w", err)
	}

	entries, err := restoreEntries(records)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ListEvents returns the audit trail of an entry, oldest first.
func (r *ScheduleEntryRepository) ListEvents(ctx context.Context, entryID string) ([]models.ScheduleEvent, error) {
	defer r.observe("schedule_entry_events.list", time.Now())
	const query = `SELECT id, entry_id, type, COALESCE(old_value, '') AS old_value, COALESCE(new_value, '') AS new_value, occurred_at FROM schedule_entry_events WHERE entry_id = $1 ORDER BY occurred_at ASC, id ASC`
	var events []models.ScheduleEvent
	if err := r.db.SelectContext(ctx, &events, query, entryID); err != nil {
		return nil, fmt.Errorf("list schedule entry events: %w", err)
	}
	return events, nil
}

// Save upserts the entry and appends its events in one transaction. A write rejected by the
// overlap exclusion constraints returns an error wrapping models.ErrPersistenceConflict.
func (r *ScheduleEntryRepository) Save(ctx context.Context, entry models.ScheduleEntry, events ...models.ScheduleEvent) (err error) {
	defer r.observe("schedule_entries.save", time.Now())
	rec := entry.Record()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save schedule entry: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const upsert = `INSERT INTO schedule_entries (id, class_id, subject_id, teacher_id, day_of_week, start_minute, end_minute, year, half, room, active, created_at, updated_at)
VALUES (:id, :class_id, :subject_id, :teacher_id, :day_of_week, :start_minute, :end_minute, :year, :half, :room, :active, :created_at, :updated_at)
ON CONFLICT (id) DO UPDATE SET teacher_id = EXCLUDED.teacher_id, day_of_week = EXCLUDED.day_of_week, start_minute = EXCLUDED.start_minute, end_minute = EXCLUDED.end_minute, room = EXCLUDED.room, active = EXCLUDED.active, updated_at = EXCLUDED.updated_at`
	if _, err = tx.NamedExecContext(ctx, upsert, rec); err != nil {
		return mapWriteError(err, rec.ID)
	}

	const insertEvent = `INSERT INTO schedule_entry_events (id, entry_id, type, old_value, new_value, occurred_at) VALUES (:id, :entry_id, :type, :old_value, :new_value, :occurred_at)`
	for _, event := range events {
		if _, err = tx.NamedExecContext(ctx, insertEvent, event); err != nil {
			return fmt.Errorf("insert schedule entry event %s: %w", event.Type, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return mapWriteError(err, rec.ID)
	}
	return nil
}

func (r *ScheduleEntryRepository) observe(label string, start time.Time) {
	if r.metrics != nil {
		r.metrics.ObserveDBQuery(label, time.Since(start))
	}
}

func mapWriteError(err error, id string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && (pqErr.Code == pqExclusionViolation || pqErr.Code == pqUniqueViolation) {
		return fmt.Errorf("save schedule entry %s (%s): %w", id, pqErr.Constraint, models.ErrPersistenceConflict)
	}
	return fmt.Errorf("save schedule entry %s: %w", id, err)
}

func restoreEntries(records []models.ScheduleEntryRecord) ([]models.ScheduleEntry, error) {
	entries := make([]models.ScheduleEntry, 0, len(records))
	for _, rec := range records {
		entry, err := models.RestoreScheduleEntry(rec)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
