package worker

import (
	"context"
	"errors"
	"fmt"

	"cantine/internal/amqp"
	"cantine/internal/core"
	"cantine/internal/log"
	"cantine/internal/sheets"
	"cantine/internal/storage"
)

// Source is the local database the worker mirrors from.
type Source interface {
	GetStored(ctx context.Context, date string) (storage.StoredRecord, error)
	MarkSynced(ctx context.Context, date string, version int64) error
	MarkSyncError(ctx context.Context, date string) error
}

// SyncWorker applies record events to the Google Sheets mirror.
type SyncWorker struct {
	source Source
	mirror sheets.Mirror
	logger *log.Logger
}

func NewSyncWorker(source Source, mirror sheets.Mirror, logger *log.Logger) *SyncWorker {
	return &SyncWorker{
		source: source,
		mirror: mirror,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent is an amqp.Handler.
func (w *SyncWorker) HandleEvent(ctx context.Context, event amqp.RecordEvent) error {
	w.logger.DebugContext(ctx, "Processing record event",
		log.FieldEventID, event.ID,
		log.FieldEventType, string(event.Type),
		log.FieldDate, event.Date)

	switch event.Type {
	case amqp.EventUpserted:
		return w.syncRecord(ctx, event.Date)
	case amqp.EventDeleted:
		return w.deleteRow(ctx, event.Date)
	case amqp.EventRenamed:
		if err := w.deleteRow(ctx, event.PreviousDate); err != nil {
			return err
		}
		return w.syncRecord(ctx, event.Date)
	default:
		return fmt.Errorf("unknown event type %q", event.Type)
	}
}

func (w *SyncWorker) syncRecord(ctx context.Context, date string) error {
	stored, err := w.source.GetStored(ctx, date)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted after the event was published; the delete event follows.
		w.logger.InfoContext(ctx, "Record no longer exists, nothing to sync", log.FieldDate, date)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get record from storage: %w", err)
	}
	return Push(ctx, w.source, w.mirror, stored)
}

func (w *SyncWorker) deleteRow(ctx context.Context, date string) error {
	err := w.mirror.Delete(ctx, date)
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete row %s: %w", date, err)
	}
	w.logger.InfoContext(ctx, "Deleted record from Google Sheets", log.FieldDate, date)
	return nil
}

// Push writes one stored record to the mirror and records the outcome.
func Push(ctx context.Context, source Source, mirror sheets.Mirror, stored storage.StoredRecord) error {
	date := stored.Record.Date
	if err := mirror.Upsert(ctx, stored.Record); err != nil {
		if markErr := source.MarkSyncError(ctx, date); markErr != nil {
			err = errors.Join(err, markErr)
		}
		return fmt.Errorf("sync record %s to sheets: %w", date, err)
	}
	if err := source.MarkSynced(ctx, date, stored.Version); err != nil {
		// The row is written; a pending flag only causes a redundant rewrite.
		log.FromContext(ctx).WarnContext(ctx, "Failed to mark record as synced", log.FieldDate, date, log.FieldError, err)
	}
	return nil
}
