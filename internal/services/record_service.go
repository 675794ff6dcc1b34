package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"cantine/internal/amqp"
	"cantine/internal/core"
	"cantine/internal/csvio"
	"cantine/internal/log"
	"cantine/internal/records"
)

// ErrResetUnsupported is returned by Reset when the backend has no seed.
var ErrResetUnsupported = errors.New("backend does not support reset")

// Publisher sends record events. *amqp.Client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, event amqp.RecordEvent) error
}

// RecordService orchestrates record changes: validation, derived fields,
// persistence and change events.
type RecordService struct {
	store           records.Store
	publisher       Publisher
	rejectOutOfYear bool
	logger          *log.Logger
	version         atomic.Uint64
}

type Option func(*RecordService)

// WithPublisher enables change events. A nil publisher disables them.
func WithPublisher(p Publisher) Option {
	return func(s *RecordService) { s.publisher = p }
}

// WithRejectOutOfSchoolYear refuses July and August dates on entry.
func WithRejectOutOfSchoolYear(reject bool) Option {
	return func(s *RecordService) { s.rejectOutOfYear = reject }
}

func WithLogger(l *log.Logger) Option {
	return func(s *RecordService) { s.logger = l }
}

func NewRecordService(store records.Store, opts ...Option) *RecordService {
	s := &RecordService{store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(log.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(log.ComponentRecords)
	return s
}

// Version changes every time a write through this service succeeds.
func (s *RecordService) Version() uint64 {
	return s.version.Load()
}

// List returns every record ordered by date.
func (s *RecordService) List(ctx context.Context) ([]core.DailyRecord, error) {
	recs, err := s.store.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	core.SortByDate(recs)
	return recs, nil
}

func (s *RecordService) Get(ctx context.Context, date string) (core.DailyRecord, error) {
	return s.store.Get(ctx, date)
}

// Prepare validates rec and recomputes its derived fields.
func (s *RecordService) Prepare(rec core.DailyRecord) (core.DailyRecord, error) {
	rec = rec.Clone()
	if err := rec.Validate(); err != nil {
		return rec, err
	}
	if s.rejectOutOfYear {
		t, _ := core.ParseDate(rec.Date)
		if _, ok := core.BucketIndexOf(t); !ok {
			return rec, fmt.Errorf("%s: %w", rec.Date, core.ErrOutOfSchoolYear)
		}
	}
	rec.Derive()
	return rec, nil
}

// Save creates or replaces the record stored under rec.Date.
func (s *RecordService) Save(ctx context.Context, rec core.DailyRecord) (core.DailyRecord, error) {
	rec, err := s.Prepare(rec)
	if err != nil {
		return rec, err
	}
	if err := s.store.Upsert(ctx, rec); err != nil {
		return rec, fmt.Errorf("save record: %w", err)
	}
	s.changed(ctx, amqp.NewRecordEvent(amqp.EventUpserted, rec.Date, ""))
	return rec, nil
}

// Update replaces the record at oldDate. When rec carries a different date
// the record is renamed; the target date must be free.
func (s *RecordService) Update(ctx context.Context, oldDate string, rec core.DailyRecord) (core.DailyRecord, error) {
	rec, err := s.Prepare(rec)
	if err != nil {
		return rec, err
	}
	if err := s.store.Rename(ctx, oldDate, rec); err != nil {
		return rec, fmt.Errorf("update record: %w", err)
	}
	if rec.Date != oldDate {
		s.changed(ctx, amqp.NewRecordEvent(amqp.EventRenamed, rec.Date, oldDate))
	} else {
		s.changed(ctx, amqp.NewRecordEvent(amqp.EventUpserted, rec.Date, ""))
	}
	return rec, nil
}

func (s *RecordService) Delete(ctx context.Context, date string) error {
	if err := s.store.Delete(ctx, date); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	s.changed(ctx, amqp.NewRecordEvent(amqp.EventDeleted, date, ""))
	return nil
}

// ImportReport summarises an import. Rows listed in Errors were not stored.
type ImportReport struct {
	Imported int              `json:"imported"`
	Errors   []csvio.RowError `json:"errors"`
}

// Import upserts every parsed row. Invalid rows are reported and skipped;
// the rest are stored.
func (s *RecordService) Import(ctx context.Context, parsed csvio.Result) (ImportReport, error) {
	report := ImportReport{Errors: append([]csvio.RowError{}, parsed.Errors...)}
	for i, rec := range parsed.Records {
		line := 0
		if i < len(parsed.Lines) {
			line = parsed.Lines[i]
		}
		if _, err := s.Save(ctx, rec); err != nil {
			if IsValidation(err) {
				report.Errors = append(report.Errors, csvio.RowError{Line: line, Date: rec.Date, Err: err.Error()})
				continue
			}
			return report, err
		}
		report.Imported++
	}
	s.logger.InfoContext(ctx, "Import finished",
		log.FieldOperation, log.OpImport,
		log.FieldRecordCount, report.Imported,
		log.FieldSkipped, len(report.Errors))
	return report, nil
}

// Dashboard builds the dashboard for month from the current records.
func (s *RecordService) Dashboard(ctx context.Context, month core.MonthKey) (core.Dashboard, error) {
	recs, err := s.store.ListRecords(ctx)
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("list records: %w", err)
	}
	return core.BuildDashboard(recs, month), nil
}

// Reset restores the backend seed data when the backend supports it.
func (s *RecordService) Reset(ctx context.Context) error {
	r, ok := s.store.(records.Resetter)
	if !ok {
		return ErrResetUnsupported
	}
	if err := r.Reset(ctx); err != nil {
		return fmt.Errorf("reset records: %w", err)
	}
	s.version.Add(1)
	s.logger.InfoContext(ctx, "Records reset to seed data", log.FieldOperation, log.OpReset)
	return nil
}

func (s *RecordService) changed(ctx context.Context, event amqp.RecordEvent) {
	s.version.Add(1)
	s.logger.InfoContext(ctx, "Daily record changed",
		log.FieldEventType, string(event.Type),
		log.FieldDate, event.Date,
		log.FieldPreviousDate, event.PreviousDate)

	if s.publisher == nil {
		return
	}
	// The change is already stored; a lost event only delays the sheet mirror.
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish record event",
			log.FieldEventID, event.ID,
			log.FieldDate, event.Date,
			log.FieldError, err)
	}
}

// IsValidation reports whether err comes from record validation.
func IsValidation(err error) bool {
	return errors.Is(err, core.ErrInvalidDate) ||
		errors.Is(err, core.ErrNegativeValue) ||
		errors.Is(err, core.ErrNonFiniteValue) ||
		errors.Is(err, core.ErrOutOfSchoolYear)
}
