package sheets

import (
	"context"

	"cantine/internal/core"
)

// Mirror is a remote copy of the records, one row per date.
type Mirror interface {
	// Upsert writes rec to the row holding rec.Date, appending a row when
	// there is none.
	Upsert(ctx context.Context, rec core.DailyRecord) error
	// Delete removes the row holding date or returns core.ErrNotFound.
	Delete(ctx context.Context, date string) error
}
