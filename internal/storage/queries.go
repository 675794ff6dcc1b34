package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cantine/internal/core"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries runs the daily_records statements against a connection or a
// transaction.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

var (
	fieldColumns = func() []string {
		cols := make([]string, len(core.Fields))
		for i, f := range core.Fields {
			cols[i] = f.Column
		}
		return cols
	}()

	selectColumns = "date, " + strings.Join(fieldColumns, ", ") + ", version, sync_status"

	upsertRecord = func() string {
		sets := make([]string, len(fieldColumns))
		for i, c := range fieldColumns {
			sets[i] = c + " = excluded." + c
		}
		return "INSERT INTO daily_records (date, day_iso, " + strings.Join(fieldColumns, ", ") + ")\n" +
			"VALUES (?, ?" + strings.Repeat(", ?", len(fieldColumns)) + ")\n" +
			"ON CONFLICT(date) DO UPDATE SET day_iso = excluded.day_iso, " + strings.Join(sets, ", ") +
			", version = daily_records.version + 1, sync_status = 'pending', updated_at = CURRENT_TIMESTAMP"
	}()

	getRecord         = "SELECT " + selectColumns + " FROM daily_records WHERE date = ?"
	listRecords       = "SELECT " + selectColumns + " FROM daily_records ORDER BY day_iso, date"
	listPendingSync   = "SELECT " + selectColumns + " FROM daily_records WHERE sync_status != 'synced' ORDER BY updated_at LIMIT ?"
	deleteRecord      = "DELETE FROM daily_records WHERE date = ?"
	recordExists      = "SELECT COUNT(1) FROM daily_records WHERE date = ?"
	markRecordSynced  = "UPDATE daily_records SET sync_status = 'synced', synced_at = ? WHERE date = ? AND version = ?"
	markRecordSyncErr = "UPDATE daily_records SET sync_status = 'error', updated_at = CURRENT_TIMESTAMP WHERE date = ?"

	insertRemoval = "INSERT INTO record_removals (date) VALUES (?)"
	listRemovals  = "SELECT id, date FROM record_removals ORDER BY id LIMIT ?"
	deleteRemoval = "DELETE FROM record_removals WHERE id = ?"
	markPending   = "UPDATE daily_records SET sync_status = 'pending', updated_at = CURRENT_TIMESTAMP WHERE date = ?"
)

// StoredRecord is a daily record plus its bookkeeping columns.
type StoredRecord struct {
	Record     core.DailyRecord
	Version    int64
	SyncStatus string
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (StoredRecord, error) {
	var out StoredRecord
	nulls := make([]sql.NullFloat64, len(core.Fields))
	dest := make([]any, 0, len(nulls)+3)
	dest = append(dest, &out.Record.Date)
	for i := range nulls {
		dest = append(dest, &nulls[i])
	}
	dest = append(dest, &out.Version, &out.SyncStatus)
	if err := row.Scan(dest...); err != nil {
		return out, err
	}
	for i, f := range core.Fields {
		if nulls[i].Valid {
			f.Set(&out.Record, core.Float(nulls[i].Float64))
		}
	}
	return out, nil
}

func dayISO(date string) string {
	if t, ok := core.ParseDate(date); ok {
		return t.Format("2006-01-02")
	}
	return ""
}

func (q *Queries) UpsertRecord(ctx context.Context, rec core.DailyRecord) error {
	args := make([]any, 0, len(core.Fields)+2)
	args = append(args, rec.Date, dayISO(rec.Date))
	for _, f := range core.Fields {
		if v := f.Get(&rec); v != nil {
			args = append(args, *v)
		} else {
			args = append(args, nil)
		}
	}
	_, err := q.db.ExecContext(ctx, upsertRecord, args...)
	return err
}

func (q *Queries) GetRecord(ctx context.Context, date string) (StoredRecord, error) {
	return scanRecord(q.db.QueryRowContext(ctx, getRecord, date))
}

func (q *Queries) ListRecords(ctx context.Context) ([]StoredRecord, error) {
	return q.list(ctx, listRecords)
}

func (q *Queries) ListPendingSync(ctx context.Context, limit int64) ([]StoredRecord, error) {
	return q.list(ctx, listPendingSync, limit)
}

func (q *Queries) list(ctx context.Context, query string, args ...any) ([]StoredRecord, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []StoredRecord
	for rows.Next() {
		i, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteRecord returns the number of rows removed.
func (q *Queries) DeleteRecord(ctx context.Context, date string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteRecord, date)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) RecordExists(ctx context.Context, date string) (bool, error) {
	var n int64
	if err := q.db.QueryRowContext(ctx, recordExists, date).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkRecordSynced only flips the row when it has not been rewritten since
// the given version was read.
func (q *Queries) MarkRecordSynced(ctx context.Context, date string, version int64, at time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx, markRecordSynced, at.UTC(), date, version)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (q *Queries) MarkRecordSyncError(ctx context.Context, date string) error {
	_, err := q.db.ExecContext(ctx, markRecordSyncErr, date)
	return err
}

// Removal is a deleted or renamed-away date whose mirror row has not been
// removed yet.
type Removal struct {
	ID   int64
	Date string
}

func (q *Queries) InsertRemoval(ctx context.Context, date string) error {
	_, err := q.db.ExecContext(ctx, insertRemoval, date)
	return err
}

func (q *Queries) ListRemovals(ctx context.Context, limit int64) ([]Removal, error) {
	rows, err := q.db.QueryContext(ctx, listRemovals, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Removal
	for rows.Next() {
		var i Removal
		if err := rows.Scan(&i.ID, &i.Date); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *Queries) DeleteRemoval(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteRemoval, id)
	return err
}

func (q *Queries) MarkRecordPending(ctx context.Context, date string) error {
	_, err := q.db.ExecContext(ctx, markPending, date)
	return err
}
