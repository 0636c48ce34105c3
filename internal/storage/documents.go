package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strconv"

	"billtracker/internal/core"
	"billtracker/internal/store"
)

// UploadPDF stores the document as a blob and points the bill at it.
func (r *SQLiteRepository) UploadPDF(ctx context.Context, serialNo int, filename string, content io.Reader) (string, error) {
	if _, err := r.session.Current(); err != nil {
		return "", err
	}
	data, err := io.ReadAll(content)
	if err != nil {
		if ctx.Err() != nil {
			return "", store.ErrUploadTimeout
		}
		return "", &store.UploadError{Err: err}
	}

	p := path.Join("bills", strconv.Itoa(serialNo), path.Base(filename))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", &store.UploadError{Err: err}
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE bills SET pdf_file_path = ?, updated_at = CURRENT_TIMESTAMP WHERE serial_no = ?`, p, serialNo)
	if err != nil {
		return "", &store.UploadError{Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", &store.UploadError{Err: core.ErrBillNotFound}
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO pdf_documents (path, serial_no, filename, content) VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET content = excluded.content, created_at = CURRENT_TIMESTAMP`,
		p, serialNo, path.Base(filename), data)
	if err != nil {
		return "", &store.UploadError{Err: err}
	}
	if err := tx.Commit(); err != nil {
		if ctx.Err() != nil {
			return "", store.ErrUploadTimeout
		}
		return "", &store.UploadError{Err: err}
	}

	r.logger.InfoContext(ctx, "PDF stored", "serial_no", serialNo, "path", p, "size", len(data))
	return "PDF uploaded successfully", nil
}

func (r *SQLiteRepository) OpenPDF(ctx context.Context, p string) (io.ReadCloser, error) {
	if _, err := r.session.Current(); err != nil {
		return nil, err
	}
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT content FROM pdf_documents WHERE path = ?`, p).Scan(&data)
	if isNoRows(err) {
		return nil, store.ErrPDFNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open pdf %q: %w", p, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
