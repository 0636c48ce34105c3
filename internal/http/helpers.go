package http

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"billtracker/internal/core"
)

// isHTMX reports requests issued by htmx.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON reports API style clients: JSON bodies or an Accept header that
// prefers JSON over HTML.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// templateFuncs are available to every dashboard template.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"rupees": func(d decimal.Decimal) string { return core.FormatRupees(d) },
		"amount": func(d decimal.Decimal) string { return d.StringFixed(2) },
		"join":   strings.Join,
		"selected": func(current, value string) template.HTMLAttr {
			if current == value {
				return "selected"
			}
			return ""
		},
	}
}
