package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cantine/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository stores daily records in a single SQLite table, one row per
// date key.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("SQLite schema ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListRecords implements records.Reader
func (r *SQLiteRepository) ListRecords(ctx context.Context) ([]core.DailyRecord, error) {
	rows, err := r.queries.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	out := make([]core.DailyRecord, len(rows))
	for i, row := range rows {
		out[i] = row.Record
	}
	return out, nil
}

// Get implements records.Reader
func (r *SQLiteRepository) Get(ctx context.Context, date string) (core.DailyRecord, error) {
	row, err := r.GetStored(ctx, date)
	if err != nil {
		return core.DailyRecord{}, err
	}
	return row.Record, nil
}

// GetStored returns the record together with its version and sync status.
func (r *SQLiteRepository) GetStored(ctx context.Context, date string) (StoredRecord, error) {
	row, err := r.queries.GetRecord(ctx, date)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredRecord{}, fmt.Errorf("record %s: %w", date, core.ErrNotFound)
	}
	if err != nil {
		return StoredRecord{}, fmt.Errorf("get record %s: %w", date, err)
	}
	return row, nil
}

// Upsert implements records.Writer
func (r *SQLiteRepository) Upsert(ctx context.Context, rec core.DailyRecord) error {
	if err := r.queries.UpsertRecord(ctx, rec); err != nil {
		return fmt.Errorf("upsert record %s: %w", rec.Date, err)
	}
	slog.DebugContext(ctx, "Daily record saved to SQLite", "date", rec.Date)
	return nil
}

// Delete implements records.Writer. The row goes away together with a
// removal entry for the mirror sweep.
func (r *SQLiteRepository) Delete(ctx context.Context, date string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	n, err := q.DeleteRecord(ctx, date)
	if err != nil {
		return fmt.Errorf("delete record %s: %w", date, err)
	}
	if n == 0 {
		return fmt.Errorf("record %s: %w", date, core.ErrNotFound)
	}
	if err := q.InsertRemoval(ctx, date); err != nil {
		return fmt.Errorf("record removal %s: %w", date, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

// Rename implements records.Writer. The existence checks and the move run
// in one transaction.
func (r *SQLiteRepository) Rename(ctx context.Context, oldDate string, rec core.DailyRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rename: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	exists, err := q.RecordExists(ctx, oldDate)
	if err != nil {
		return fmt.Errorf("check record %s: %w", oldDate, err)
	}
	if !exists {
		return fmt.Errorf("record %s: %w", oldDate, core.ErrNotFound)
	}
	if rec.Date != oldDate {
		taken, err := q.RecordExists(ctx, rec.Date)
		if err != nil {
			return fmt.Errorf("check record %s: %w", rec.Date, err)
		}
		if taken {
			return fmt.Errorf("record %s: %w", rec.Date, core.ErrConflict)
		}
		if _, err := q.DeleteRecord(ctx, oldDate); err != nil {
			return fmt.Errorf("delete record %s: %w", oldDate, err)
		}
		if err := q.InsertRemoval(ctx, oldDate); err != nil {
			return fmt.Errorf("record removal %s: %w", oldDate, err)
		}
	}
	if err := q.UpsertRecord(ctx, rec); err != nil {
		return fmt.Errorf("upsert record %s: %w", rec.Date, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rename: %w", err)
	}
	return nil
}

// PendingSync returns records not yet mirrored to Google Sheets, oldest
// change first.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]StoredRecord, error) {
	rows, err := r.queries.ListPendingSync(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list pending sync: %w", err)
	}
	return rows, nil
}

// MarkSynced marks a record version as mirrored. A newer write since that
// version leaves the row pending.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, date string, version int64) error {
	ok, err := r.queries.MarkRecordSynced(ctx, date, version, time.Now())
	if err != nil {
		return fmt.Errorf("mark record synced: %w", err)
	}
	if !ok {
		slog.DebugContext(ctx, "Record changed during sync, left pending", "date", date, "version", version)
	}
	return nil
}

// MarkSyncError flags a record whose mirror write failed.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, date string) error {
	if err := r.queries.MarkRecordSyncError(ctx, date); err != nil {
		return fmt.Errorf("mark record sync error: %w", err)
	}
	slog.WarnContext(ctx, "Record marked with sync error", "date", date)
	return nil
}

// PendingRemovals returns dates still to be deleted from the mirror, in the
// order they were removed locally.
func (r *SQLiteRepository) PendingRemovals(ctx context.Context, limit int) ([]Removal, error) {
	rows, err := r.queries.ListRemovals(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list pending removals: %w", err)
	}
	return rows, nil
}

// ResolveRemoval drops a removal once the mirror row is gone. A record
// written again under the same date is put back in the sync queue, since
// the mirror delete also took its row.
func (r *SQLiteRepository) ResolveRemoval(ctx context.Context, rm Removal) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin resolve removal: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeleteRemoval(ctx, rm.ID); err != nil {
		return fmt.Errorf("delete removal %d: %w", rm.ID, err)
	}
	if err := q.MarkRecordPending(ctx, rm.Date); err != nil {
		return fmt.Errorf("mark record %s pending: %w", rm.Date, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit resolve removal: %w", err)
	}
	return nil
}
