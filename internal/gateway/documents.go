package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"

	"billtracker/internal/log"
	"billtracker/internal/store"
)

// UploadPDF posts the file as multipart field "file". The whole exchange is
// bounded by the blob timeout.
func (c *Client) UploadPDF(ctx context.Context, serialNo int, filename string, content io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.blobTimeout)
	defer cancel()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreatePart(pdfPartHeader(filepath.Base(filename)))
	if err != nil {
		return "", &UploadError{Err: err}
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", &UploadError{Err: err}
	}
	if err := mw.Close(); err != nil {
		return "", &UploadError{Err: err}
	}

	path := fmt.Sprintf("/api/bills/%d/upload-pdf", serialNo)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), &buf)
	if err != nil {
		return "", &UploadError{Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	// The request client timeout would cut large uploads short; the context
	// carries the blob deadline instead.
	blobClient := &http.Client{Jar: c.jar}
	resp, err := blobClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrUploadTimeout
		}
		return "", &UploadError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.resetSession()
		return "", ErrUnauthorized
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrUploadTimeout
		}
		return "", &UploadError{Err: err}
	}

	if resp.StatusCode >= 400 {
		msg := fmt.Sprintf("Upload failed: %d %s", resp.StatusCode, statusText(resp))
		if isJSON(resp.Header.Get("Content-Type")) {
			if text, failed := envelopeError(data); failed {
				msg = text
			}
		} else if text := strings.TrimSpace(string(data)); text != "" {
			msg = text
		}
		return "", &UploadError{Err: &APIError{Status: resp.StatusCode, Message: msg}}
	}

	// Successful uploads answer with JSON or with a plain text message.
	if !isJSON(resp.Header.Get("Content-Type")) {
		return strings.TrimSpace(string(data)), nil
	}
	if text, failed := envelopeError(data); failed {
		return "", &UploadError{Err: &APIError{Status: resp.StatusCode, Message: text}}
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", &UploadError{Err: err}
	}
	c.logger.InfoContext(ctx, "PDF uploaded",
		log.FieldSerialNo, serialNo, log.FieldOperation, log.OpUpload)
	return env.Message, nil
}

func pdfPartHeader(filename string) textproto.MIMEHeader {
	return textproto.MIMEHeader{
		"Content-Disposition": {fmt.Sprintf(`form-data; name="file"; filename=%q`, filename)},
		"Content-Type":        {"application/pdf"},
	}
}

// OpenPDF streams a stored document. The blob deadline stays active until the
// returned reader is closed.
func (c *Client) OpenPDF(ctx context.Context, pdfPath string) (io.ReadCloser, error) {
	if strings.TrimSpace(pdfPath) == "" {
		return nil, store.ErrPDFNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, c.blobTimeout)

	path := "/api/bills/pdf/" + url.PathEscape(strings.TrimSpace(pdfPath))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		cancel()
		return nil, err
	}
	resp, err := (&http.Client{Jar: c.jar}).Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		resp.Body.Close()
		cancel()
		c.resetSession()
		return nil, ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		cancel()
		return nil, store.ErrPDFNotFound
	case resp.StatusCode >= 400:
		resp.Body.Close()
		cancel()
		return nil, &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("%d %s", resp.StatusCode, statusText(resp))}
	}
	return &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *cancelOnClose) Close() error {
	defer r.cancel()
	return r.ReadCloser.Close()
}
