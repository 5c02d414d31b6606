package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/cache"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

// AuditJobType identifies term sweeps on the job queue.
const AuditJobType = "timetable.audit"

type conflictSweeper interface {
	DetectAllConflicts(ctx context.Context, year, half int) ([]models.ConflictPair, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) (string, error)
}

// AuditEntry is the flattened, cacheable view of one side of a conflicting pair.
type AuditEntry struct {
	ID        string           `json:"id"`
	ClassID   string           `json:"class_id"`
	SubjectID string           `json:"subject_id"`
	TeacherID string           `json:"teacher_id"`
	Room      string           `json:"room,omitempty"`
	DayOfWeek models.Weekday   `json:"day_of_week"`
	StartTime models.ClockTime `json:"start_time"`
	EndTime   models.ClockTime `json:"end_time"`
}

// AuditPair is one reported conflict.
type AuditPair struct {
	Dimension models.ConflictDimension `json:"dimension"`
	First     AuditEntry               `json:"first"`
	Second    AuditEntry               `json:"second"`
}

// AuditReport lists every conflicting pair of a term.
type AuditReport struct {
	Year        int         `json:"year"`
	Half        int         `json:"half"`
	Pairs       []AuditPair `json:"pairs"`
	GeneratedAt time.Time   `json:"generated_at"`
	Cached      bool        `json:"cached"`
}

// AuditJob acknowledges a queued sweep.
type AuditJob struct {
	JobID string `json:"job_id"`
	Year  int    `json:"year"`
	Half  int    `json:"half"`
}

// AuditService runs and caches term-wide conflict sweeps for data-integrity audits.
type AuditService struct {
	sweeper conflictSweeper
	cache   *CacheService
	queue   jobDispatcher
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	xlsx    *export.XLSXExporter
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewAuditService builds the audit service. cache may be nil or disabled.
func NewAuditService(sweeper conflictSweeper, cacheSvc *CacheService, metrics *MetricsService, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		sweeper: sweeper,
		cache:   cacheSvc,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		xlsx:    export.NewXLSXExporter(),
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// UseQueue attaches the dispatcher used by Enqueue.
func (s *AuditService) UseQueue(queue jobDispatcher) {
	s.queue = queue
}

// ReportKey is the cache key of a term report.
func ReportKey(term models.Term) string {
	return cache.Key("conflicts", strconv.Itoa(term.Year), strconv.Itoa(term.Half))
}

// GenerationKey is the cache key of a term's invalidation counter.
func GenerationKey(term models.Term) string {
	return cache.Key("conflicts", "gen", strconv.Itoa(term.Year), strconv.Itoa(term.Half))
}

// Report serves the cached report of a term, running a sweep on a miss.
func (s *AuditService) Report(ctx context.Context, year, half int) (*AuditReport, error) {
	term, err := auditTerm(year, half)
	if err != nil {
		return nil, err
	}
	var cached AuditReport
	if hit, _ := s.cache.Get(ctx, ReportKey(term), &cached); hit {
		cached.Cached = true
		return &cached, nil
	}
	return s.Run(ctx, year, half)
}

// Run sweeps the term and refreshes the cache. The report is only cached when
// no InvalidateTerm happened while the sweep was reading the term.
func (s *AuditService) Run(ctx context.Context, year, half int) (*AuditReport, error) {
	term, err := auditTerm(year, half)
	if err != nil {
		return nil, err
	}
	gen, genErr := s.cache.Counter(ctx, GenerationKey(term))
	start := time.Now()
	pairs, err := s.sweeper.DetectAllConflicts(ctx, year, half)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveAudit(term, len(pairs), time.Since(start))

	report := &AuditReport{Year: year, Half: half, Pairs: make([]AuditPair, 0, len(pairs)), GeneratedAt: s.now().UTC()}
	for _, p := range pairs {
		report.Pairs = append(report.Pairs, AuditPair{Dimension: p.Dimension, First: auditEntry(p.First), Second: auditEntry(p.Second)})
	}
	if genErr == nil {
		s.store(ctx, term, gen, report)
	}
	return report, nil
}

func (s *AuditService) store(ctx context.Context, term models.Term, gen int64, report *AuditReport) {
	if !s.generationIs(ctx, term, gen) {
		s.logger.Debug("audit report superseded", zap.String("term", term.String()))
		return
	}
	if err := s.cache.Set(ctx, ReportKey(term), report, 0); err != nil {
		return
	}
	// An invalidation may land between the check and the write.
	if !s.generationIs(ctx, term, gen) {
		_ = s.cache.Delete(ctx, ReportKey(term))
	}
}

func (s *AuditService) generationIs(ctx context.Context, term models.Term, gen int64) bool {
	current, err := s.cache.Counter(ctx, GenerationKey(term))
	return err == nil && current == gen
}

// InvalidateTerm drops the cached report after the term's timetable changed
// and bumps the term generation so in-flight sweeps do not re-cache.
func (s *AuditService) InvalidateTerm(ctx context.Context, term models.Term) {
	_, _ = s.cache.Incr(ctx, GenerationKey(term))
	_ = s.cache.Delete(ctx, ReportKey(term))
}

// Enqueue schedules a background sweep. A sweep already pending for the term is reused.
func (s *AuditService) Enqueue(ctx context.Context, year, half int) (*AuditJob, error) {
	term, err := auditTerm(year, half)
	if err != nil {
		return nil, err
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "audit queue is not running")
	}
	id, err := s.queue.Enqueue(jobs.Job{Type: AuditJobType, Key: term.String(), Payload: term})
	if err != nil {
		if errors.Is(err, jobs.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("an audit of term %s is already pending", term))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to enqueue audit")
	}
	s.logger.Info("audit enqueued", zap.String("job_id", id), zap.String("term", term.String()))
	return &AuditJob{JobID: id, Year: year, Half: half}, nil
}

// HandleJob is the queue handler for AuditJobType jobs.
func (s *AuditService) HandleJob(ctx context.Context, job jobs.Job) error {
	term, ok := job.Payload.(models.Term)
	if !ok {
		return fmt.Errorf("audit job %s: unexpected payload %T", job.ID, job.Payload)
	}
	report, err := s.Run(ctx, term.Year, term.Half)
	if err != nil {
		return err
	}
	s.logger.Info("audit finished", zap.String("job_id", job.ID), zap.String("term", term.String()), zap.Int("pairs", len(report.Pairs)))
	return nil
}

// Export renders the term report in the requested format.
func (s *AuditService) Export(ctx context.Context, year, half int, format export.Format) ([]byte, error) {
	report, err := s.Report(ctx, year, half)
	if err != nil {
		return nil, err
	}
	table := ReportTable(report)
	var out []byte
	switch format {
	case export.FormatPDF:
		out, err = s.pdf.Render(table)
	case export.FormatXLSX:
		out, err = s.xlsx.Render(table)
	default:
		out, err = s.csv.Render(table)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render audit report")
	}
	return out, nil
}

// ReportTable lays a report out for export, one row per pair.
func ReportTable(report *AuditReport) export.Table {
	table := export.Table{
		Title:   fmt.Sprintf("Timetable conflicts %d/%d", report.Year, report.Half),
		Headers: []string{"dimension", "first_id", "first_teacher", "first_room", "first_slot", "second_id", "second_teacher", "second_room", "second_slot"},
		Rows:    make([][]string, 0, len(report.Pairs)),
	}
	for _, p := range report.Pairs {
		table.Rows = append(table.Rows, []string{
			string(p.Dimension),
			p.First.ID, p.First.TeacherID, p.First.Room, p.First.slot(),
			p.Second.ID, p.Second.TeacherID, p.Second.Room, p.Second.slot(),
		})
	}
	return table
}

func (e AuditEntry) slot() string {
	return fmt.Sprintf("%s %s-%s", e.DayOfWeek, e.StartTime, e.EndTime)
}

func auditEntry(e models.ScheduleEntry) AuditEntry {
	slot := e.TimeSlot()
	return AuditEntry{
		ID:        e.ID(),
		ClassID:   e.ClassID(),
		SubjectID: e.SubjectID(),
		TeacherID: e.TeacherID(),
		Room:      e.Room(),
		DayOfWeek: slot.Day(),
		StartTime: slot.Start(),
		EndTime:   slot.End(),
	}
}

func auditTerm(year, half int) (models.Term, error) {
	if half != 1 && half != 2 {
		return models.Term{}, appErrors.Clone(appErrors.ErrValidation, "half must be 1 or 2")
	}
	if year <= 0 {
		return models.Term{}, appErrors.Clone(appErrors.ErrValidation, "year is required")
	}
	return models.Term{Year: year, Half: half}, nil
}
