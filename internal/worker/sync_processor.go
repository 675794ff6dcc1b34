package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cantine/internal/core"
	"cantine/internal/log"
	"cantine/internal/sheets"
	"cantine/internal/storage"
)

// PendingSource lists records whose latest version has not reached the
// mirror yet, and dates whose mirror row still has to be removed.
type PendingSource interface {
	Source
	PendingSync(ctx context.Context, limit int) ([]storage.StoredRecord, error)
	PendingRemovals(ctx context.Context, limit int) ([]storage.Removal, error)
	ResolveRemoval(ctx context.Context, rm storage.Removal) error
}

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to look for pending records (default: 1m)
	PollInterval time.Duration

	// BatchSize is the max number of records pushed per poll (default: 20)
	BatchSize int
}

func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval: time.Minute,
		BatchSize:    20,
	}
}

// SyncProcessor periodically pushes pending records to the mirror. It picks
// up changes whose event was never published or failed to apply.
type SyncProcessor struct {
	source PendingSource
	mirror sheets.Mirror
	config SyncProcessorConfig
	logger *log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncProcessor(source PendingSource, mirror sheets.Mirror, config SyncProcessorConfig, logger *log.Logger) *SyncProcessor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultSyncProcessorConfig().PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultSyncProcessorConfig().BatchSize
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SyncProcessor{
		source: source,
		mirror: mirror,
		config: config,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	go p.runLoop(ctx, stopCh, doneCh)

	p.logger.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.running = false
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Sync processor stopped gracefully")
		return nil
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}
}

func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.ProcessBatch(ctx)
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch removes up to BatchSize deleted dates from the mirror, then
// pushes up to BatchSize pending records. It returns how many changes reached
// the mirror.
func (p *SyncProcessor) ProcessBatch(ctx context.Context) int {
	removed := p.processRemovals(ctx)

	items, err := p.source.PendingSync(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to list pending records", log.FieldError, err)
		return removed
	}
	if len(items) == 0 {
		return removed
	}

	pushed := 0
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		if err := Push(ctx, p.source, p.mirror, item); err != nil {
			p.logger.WarnContext(ctx, "Pending record sync failed",
				log.FieldDate, item.Record.Date,
				log.FieldError, err)
			continue
		}
		pushed++
	}
	p.logger.InfoContext(ctx, "Pending records synced",
		log.FieldOperation, log.OpSync,
		log.FieldRecordCount, pushed,
		"pending", len(items))
	return removed + pushed
}

func (p *SyncProcessor) processRemovals(ctx context.Context) int {
	removals, err := p.source.PendingRemovals(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to list pending removals", log.FieldError, err)
		return 0
	}

	removed := 0
	for _, rm := range removals {
		if ctx.Err() != nil {
			break
		}
		if err := p.mirror.Delete(ctx, rm.Date); err != nil && !errors.Is(err, core.ErrNotFound) {
			p.logger.WarnContext(ctx, "Pending removal failed",
				log.FieldDate, rm.Date,
				log.FieldError, err)
			continue
		}
		if err := p.source.ResolveRemoval(ctx, rm); err != nil {
			p.logger.WarnContext(ctx, "Failed to clear removal",
				log.FieldDate, rm.Date,
				log.FieldError, err)
			continue
		}
		removed++
	}
	if len(removals) > 0 {
		p.logger.InfoContext(ctx, "Pending removals synced",
			log.FieldOperation, log.OpSync,
			log.FieldRecordCount, removed,
			"pending", len(removals))
	}
	return removed
}
