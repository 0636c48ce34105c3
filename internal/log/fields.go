package log

// Attribute keys shared by every component so log queries stay uniform.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldReferer    = "referer"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldAction    = "action"
	FieldSerialNo  = "serial_no"
	FieldNetwork   = "network"
	FieldVendor    = "vendor"
	FieldAmount    = "amount_with_tax"
	FieldBillCount = "bill_count"
	FieldVersion   = "snapshot_version"
	FieldUsername  = "username"
	FieldSheetsRef = "sheets_ref"
)

// Component names.
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentState    = "state"
	ComponentCommands = "commands"
	ComponentGateway  = "gateway"
	ComponentExport   = "export"
	ComponentAuth     = "auth"
	ComponentStorage  = "storage"
	ComponentWorker   = "worker"
	ComponentCache    = "cache"
	ComponentSecurity = "security"
	ComponentTrace    = "trace"
	ComponentBackend  = "backend"
	ComponentTemplate = "template"
)

// Operation names for FieldOperation.
const (
	OpUpdate = "update"
	OpUpload = "upload"
	OpReload = "reload"
)

// LogFields collects key/value pairs in insertion order.
type LogFields struct {
	args []any
}

// NewFields creates an empty LogFields
func NewFields() *LogFields {
	return &LogFields{}
}

func (f *LogFields) add(key string, value any) *LogFields {
	f.args = append(f.args, key, value)
	return f
}

// WithClientIP adds the client address when known.
func (f *LogFields) WithClientIP(ip string) *LogFields {
	if ip == "" {
		return f
	}
	return f.add(FieldClientIP, ip)
}

// WithHTTPRequest adds request fields. Empty optional values are skipped.
func (f *LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) *LogFields {
	f.add(FieldMethod, method).add(FieldPath, path)
	if query != "" {
		f.add(FieldQuery, query)
	}
	if userAgent != "" {
		f.add(FieldUserAgent, userAgent)
	}
	if referer != "" {
		f.add(FieldReferer, referer)
	}
	return f
}

// WithHTTPResponse adds response fields
func (f *LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) *LogFields {
	return f.add(FieldStatusCode, statusCode).
		add(FieldDuration, durationMs).
		add(FieldSuccess, success)
}

// ToSlice returns the pairs in the form slog's variadic methods take.
func (f *LogFields) ToSlice() []any {
	return f.args
}
