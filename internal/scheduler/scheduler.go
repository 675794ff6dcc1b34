// Package scheduler runs periodic jobs of the worker process.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"cantine/internal/core"
	"cantine/internal/log"
)

// Dashboarder builds the dashboard of a month. *services.RecordService
// satisfies it.
type Dashboarder interface {
	Dashboard(ctx context.Context, month core.MonthKey) (core.Dashboard, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron   *cron.Cron
	source Dashboarder
	spec   string
	loc    *time.Location
	now    func() time.Time
	logger *log.Logger
}

// New creates a scheduler that evaluates spec (standard 5-field cron) in loc.
func New(source Dashboarder, spec string, loc *time.Location, logger *log.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		source: source,
		spec:   spec,
		loc:    loc,
		now:    time.Now,
		logger: logger.WithComponent(log.ComponentScheduler),
	}
}

// Start schedules the snapshot job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.runSnapshot); err != nil {
		return fmt.Errorf("schedule dashboard snapshot %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.logger.Info("Scheduler started", "snapshot_cron", s.spec, "timezone", s.loc.String())
	return nil
}

// Stop stops the cron loop and waits for a running job to return.
func (s *Scheduler) Stop(ctx context.Context) {
	s.logger.Info("Stopping scheduler")
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
	}
}

func (s *Scheduler) runSnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if _, err := s.Snapshot(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Dashboard snapshot failed", log.FieldError, err)
	}
}

// Snapshot builds the dashboard of the current month and logs its headline
// figures.
func (s *Scheduler) Snapshot(ctx context.Context) (core.Dashboard, error) {
	month := core.MonthKeyOf(s.now().In(s.loc))
	d, err := s.source.Dashboard(ctx, month)
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("build dashboard for %s: %w", month, err)
	}

	ms := d.MonthSummary
	s.logger.InfoContext(ctx, "Dashboard snapshot",
		log.FieldOperation, log.OpSnapshot,
		log.FieldMonth, d.SelectedMonth,
		log.FieldSchoolYear, d.SchoolYear,
		"days", ms.DayCount,
		"children", ms.TotalChildren,
		"cost", core.Round(ms.TotalCost, 2),
		"avg_cost_per_child", core.Round(ms.AvgCostPerChild, 2),
		"percent_organic", core.Round(ms.PercentOrganic, 1),
		"waste_kg", core.Round(ms.TotalWaste, 2))

	if n := d.Skipped.Total(); n > 0 {
		s.logger.WarnContext(ctx, "Records left out of the monthly buckets",
			log.FieldSkipped, n,
			"invalid_date", d.Skipped.InvalidDate,
			"out_of_school_year", d.Skipped.OutOfSchoolYear)
	}
	return d, nil
}
