// This file implements parsing of action payloads. Actions arrive as JSON
// (fetch clients), urlencoded forms (HTMX) or multipart forms (bill forms
// with an attached PDF); all three become a commands.Input.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"billtracker/internal/commands"
)

// FileField is the multipart field carrying a bill PDF.
const FileField = "file"

// maxActionBody bounds non-file action payloads.
const maxActionBody = 1 << 20

// maxUploadBody leaves room for the multipart envelope around a PDF one byte
// over the size limit, so oversized files reach the size check.
const maxUploadBody = commands.MaxPDFSize + 1<<20

// ErrBodyTooLarge is returned when a request body exceeds its limit.
var ErrBodyTooLarge = errors.New("Request body too large")

// RequestBodyParser handles different content types for request body parsing.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	file        *commands.Upload
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body of r once, up to limit bytes.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request, limit int64) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	var maxErr *http.MaxBytesError
	if errors.As(p.err, &maxErr) {
		p.err = ErrBodyTooLarge
	}
	return p
}

// Parse decodes the body by content type, sniffing JSON when the type is
// missing.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	mediaType, params, _ := mime.ParseMediaType(p.contentType)
	switch {
	case mediaType == "multipart/form-data":
		p.err = p.parseMultipart(params["boundary"])
	case len(bytes.TrimSpace(p.body)) == 0:
		p.formData = url.Values{}
	case mediaType == "application/json" || (mediaType == "" && looksLikeJSON(p.body)):
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = fmt.Errorf("invalid JSON body: %w", err)
		}
	default:
		p.formData, p.err = url.ParseQuery(string(p.body))
	}
	return p.err
}

func looksLikeJSON(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func (p *RequestBodyParser) parseMultipart(boundary string) error {
	if boundary == "" {
		return errors.New("multipart body without boundary")
	}
	form, err := multipart.NewReader(bytes.NewReader(p.body), boundary).ReadForm(maxUploadBody)
	if err != nil {
		return fmt.Errorf("invalid multipart body: %w", err)
	}
	defer func() { _ = form.RemoveAll() }()

	p.formData = url.Values(form.Value)
	if headers := form.File[FileField]; len(headers) > 0 {
		fh := headers[0]
		f, err := fh.Open()
		if err != nil {
			return fmt.Errorf("open uploaded file: %w", err)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return fmt.Errorf("read uploaded file: %w", err)
		}
		p.file = &commands.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		}
	}
	return nil
}

// Get returns a sanitized string value from the parsed data.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Values flattens the payload into url.Values. JSON arrays of scalars become
// repeated keys; nested objects and arrays of objects are kept as their JSON
// text.
func (p *RequestBodyParser) Values() url.Values {
	out := url.Values{}
	if p.jsonData != nil {
		for key, val := range p.jsonData {
			if arr, ok := val.([]any); ok && scalars(arr) {
				for _, item := range arr {
					out.Add(key, sanitizeInput(stringValue(item)))
				}
				continue
			}
			out.Set(key, sanitizeInput(stringValue(val)))
		}
		return out
	}
	for key, vals := range p.formData {
		for _, v := range vals {
			out.Add(key, sanitizeInput(v))
		}
	}
	return out
}

// File returns the uploaded PDF, if any.
func (p *RequestBodyParser) File() *commands.Upload {
	return p.file
}

// Input builds the command payload.
func (p *RequestBodyParser) Input() commands.Input {
	in := commands.NewInput(p.Values())
	in.File = p.file
	return in
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func scalars(arr []any) bool {
	for _, v := range arr {
		switch v.(type) {
		case map[string]any, []any:
			return false
		}
	}
	return true
}

// stringValue converts a decoded JSON value to its form representation.
func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// sanitizeInput drops control characters other than tab and newlines.
// Values are not trimmed here; commands trim what they need, and passwords
// are used verbatim.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
