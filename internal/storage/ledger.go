package storage

import (
	"context"
	"fmt"
	"time"
)

// Export ledger statuses.
const (
	ExportStatusExported = "exported"
	ExportStatusFailed   = "failed"
)

// ExportRecord is one attempt by the worker to mirror the bills.
type ExportRecord struct {
	Version    int64
	Action     string
	SerialNo   int
	BillCount  int
	Status     string
	Error      string
	ExportedAt time.Time
}

// RecordExport stores the outcome of an export. A later attempt for the
// same version replaces the earlier one.
func (r *SQLiteRepository) RecordExport(ctx context.Context, rec ExportRecord) error {
	if rec.Status == "" {
		rec.Status = ExportStatusExported
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO export_ledger (version, action, serial_no, bill_count, status, error)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(version) DO UPDATE SET
			action = excluded.action, serial_no = excluded.serial_no, bill_count = excluded.bill_count,
			status = excluded.status, error = excluded.error, exported_at = CURRENT_TIMESTAMP`,
		rec.Version, rec.Action, rec.SerialNo, rec.BillCount, rec.Status, rec.Error)
	if err != nil {
		return fmt.Errorf("record export %d: %w", rec.Version, err)
	}
	return nil
}

// LatestExportedVersion returns the highest version exported successfully,
// or 0 when nothing has been exported yet.
func (r *SQLiteRepository) LatestExportedVersion(ctx context.Context) (int64, error) {
	var v int64
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM export_ledger WHERE status = ?`,
		ExportStatusExported).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("latest exported version: %w", err)
	}
	return v, nil
}

// RecentExports lists the newest ledger entries first.
func (r *SQLiteRepository) RecentExports(ctx context.Context, limit int) ([]ExportRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT version, action, serial_no, bill_count, status, error, exported_at
		FROM export_ledger ORDER BY version DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	defer rows.Close()

	var out []ExportRecord
	for rows.Next() {
		var rec ExportRecord
		if err := rows.Scan(&rec.Version, &rec.Action, &rec.SerialNo, &rec.BillCount,
			&rec.Status, &rec.Error, &rec.ExportedAt); err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
