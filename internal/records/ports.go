package records

import (
	"context"

	"cantine/internal/core"
)

// Ports for record persistence. Every backend keeps at most one record per
// date key.
type (
	Reader interface {
		// ListRecords returns a snapshot of every stored record. Callers own
		// the returned slice.
		ListRecords(ctx context.Context) ([]core.DailyRecord, error)
		// Get returns the record stored under date or core.ErrNotFound.
		Get(ctx context.Context, date string) (core.DailyRecord, error)
	}

	Writer interface {
		// Upsert stores rec, replacing any record with the same date.
		Upsert(ctx context.Context, rec core.DailyRecord) error
		// Delete removes the record stored under date or returns
		// core.ErrNotFound.
		Delete(ctx context.Context, date string) error
		// Rename moves the record at oldDate to rec.Date and stores rec in
		// one step. It fails with core.ErrNotFound when oldDate is absent
		// and core.ErrConflict when rec.Date is held by another record.
		Rename(ctx context.Context, oldDate string, rec core.DailyRecord) error
	}

	Store interface {
		Reader
		Writer
	}

	// Resetter is implemented by backends that can restore their seed data.
	Resetter interface {
		Reset(ctx context.Context) error
	}
)
