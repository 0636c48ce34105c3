package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"billtracker/internal/core"
	"billtracker/internal/log"
	"billtracker/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	logger  *log.Logger
	session store.Session
}

var _ store.Backend = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens dbPath, migrates it and seeds the reference data
// and the administrator account on first use.
func NewSQLiteRepository(ctx context.Context, dbPath string, admin core.UserInput, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer keeps sqlite from reporting SQLITE_BUSY under concurrent commands.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:     db,
		logger: logger.WithComponent(log.ComponentStorage),
	}
	if err := repo.seed(ctx, admin); err != nil {
		db.Close()
		return nil, err
	}

	repo.logger.Info("SQLite repository ready", "db_path", dbPath, "schema_version", version)
	return repo, nil
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

const billColumns = `serial_no, network, vendor, quarter_string, quarter, location, invoice_number,
	bill_with_tax, bill_without_tax, ses1, ses2, billing_period, from_date, to_date,
	gl_code, commit_item, cost_center, status, remarks, pdf_file_path`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBill(row rowScanner) (core.Bill, error) {
	var (
		b                   core.Bill
		quarter             string
		withTax, withoutTax string
		ses1, ses2          int64
		fromDate, toDate    string
		status              string
	)
	err := row.Scan(&b.SerialNo, &b.Network, &b.Vendor, &b.QuarterString, &quarter, &b.Location,
		&b.InvoiceNumber, &withTax, &withoutTax, &ses1, &ses2, &b.BillingPeriod, &fromDate, &toDate,
		&b.GLCode, &b.CommitItem, &b.CostCenter, &status, &b.Remarks, &b.PDFFilePath)
	if err != nil {
		return core.Bill{}, err
	}
	b.Quarter = core.QuarterRef(quarter)
	b.BillWithTax = parseStoredAmount(withTax)
	b.BillWithoutTax = parseStoredAmount(withoutTax)
	b.SES1 = core.RefNumber(ses1)
	b.SES2 = core.RefNumber(ses2)
	b.FromDate, _ = core.ParseDate(fromDate)
	b.ToDate, _ = core.ParseDate(toDate)
	b.Status = core.ParseStatus(status)
	return b, nil
}

func parseStoredAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func billArgs(b core.Bill) []any {
	return []any{
		b.Network, b.Vendor, b.QuarterString, string(b.Quarter), b.Location, b.InvoiceNumber,
		b.BillWithTax.String(), b.BillWithoutTax.String(), int64(b.SES1), int64(b.SES2),
		b.BillingPeriod, b.FromDate.String(), b.ToDate.String(),
		b.GLCode, b.CommitItem, b.CostCenter, string(b.EffectiveStatus()), b.Remarks, b.PDFFilePath,
	}
}

func (r *SQLiteRepository) ListBills(ctx context.Context) ([]core.Bill, error) {
	if _, err := r.session.Current(); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+billColumns+` FROM bills ORDER BY serial_no`)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()

	bills := []core.Bill{}
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

func (r *SQLiteRepository) CreateBill(ctx context.Context, b core.Bill) (store.MutationResult, error) {
	if _, err := r.session.Current(); err != nil {
		return store.MutationResult{}, err
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO bills (
		network, vendor, quarter_string, quarter, location, invoice_number,
		bill_with_tax, bill_without_tax, ses1, ses2, billing_period, from_date, to_date,
		gl_code, commit_item, cost_center, status, remarks, pdf_file_path
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, billArgs(b)...)
	if err != nil {
		return store.MutationResult{}, fmt.Errorf("create bill: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return store.MutationResult{}, fmt.Errorf("read serial number: %w", err)
	}

	r.logger.InfoContext(ctx, "Bill saved to SQLite",
		log.FieldSerialNo, id, log.FieldNetwork, b.Network, log.FieldVendor, b.Vendor,
		log.FieldAmount, b.BillWithTax.String())

	return store.MutationResult{Success: true, Message: "Bill added successfully", SerialNo: int(id)}, nil
}

func (r *SQLiteRepository) UpdateBill(ctx context.Context, serialNo int, b core.Bill) (store.MutationResult, error) {
	if _, err := r.session.Current(); err != nil {
		return store.MutationResult{}, err
	}
	// Every column but pdf_file_path, which is only replaced when a new path is given.
	args := billArgs(b)[:18]
	args = append(args, b.PDFFilePath, b.PDFFilePath, serialNo)
	res, err := r.db.ExecContext(ctx, `UPDATE bills SET
		network = ?, vendor = ?, quarter_string = ?, quarter = ?, location = ?, invoice_number = ?,
		bill_with_tax = ?, bill_without_tax = ?, ses1 = ?, ses2 = ?, billing_period = ?,
		from_date = ?, to_date = ?, gl_code = ?, commit_item = ?, cost_center = ?, status = ?,
		remarks = ?, pdf_file_path = CASE WHEN ? = '' THEN pdf_file_path ELSE ? END,
		updated_at = CURRENT_TIMESTAMP
		WHERE serial_no = ?`, args...)
	if err != nil {
		return store.MutationResult{}, fmt.Errorf("update bill %d: %w", serialNo, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.MutationResult{}, &store.APIError{Status: 400, Message: "Failed to update bill"}
	}
	return store.MutationResult{Success: true, Message: "Bill updated successfully"}, nil
}

func (r *SQLiteRepository) DeleteBill(ctx context.Context, serialNo int) (store.MutationResult, error) {
	if _, err := r.session.Current(); err != nil {
		return store.MutationResult{}, err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return store.MutationResult{}, fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM bills WHERE serial_no = ?`, serialNo)
	if err != nil {
		return store.MutationResult{}, fmt.Errorf("delete bill %d: %w", serialNo, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.MutationResult{}, &store.APIError{Status: 400, Message: "Failed to delete bill"}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pdf_documents WHERE serial_no = ?`, serialNo); err != nil {
		return store.MutationResult{}, fmt.Errorf("delete documents of bill %d: %w", serialNo, err)
	}
	if err := tx.Commit(); err != nil {
		return store.MutationResult{}, fmt.Errorf("commit delete: %w", err)
	}
	return store.MutationResult{Success: true, Message: "Bill deleted successfully"}, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
