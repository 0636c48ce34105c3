package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"

	"github.com/go-chi/chi/v5"

	"billtracker/internal/commands"
	"billtracker/internal/core"
	"billtracker/internal/export"
	"billtracker/internal/log"
	"billtracker/internal/state"
	"billtracker/internal/store"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ensureLoaded returns the current snapshot, loading it on first use.
func (s *Server) ensureLoaded(ctx context.Context) (state.Snapshot, error) {
	snap := s.state.Snapshot()
	if snap.Loaded() {
		return snap, nil
	}
	return s.state.Reload(ctx)
}

// unauthorized sends the user back to the login page in the caller's format.
func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request) {
	s.appMetrics.unauthorized.Add(1)
	switch {
	case isHTMX(r):
		NewHTMXResponse().Redirect("/login").Write(w)
	case wantsJSON(r):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": commands.MsgSessionExpired})
	default:
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}

// withState runs fn with a loaded snapshot. Load failures are answered here.
func (s *Server) withState(fn func(w http.ResponseWriter, r *http.Request, snap state.Snapshot)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := s.ensureLoaded(r.Context())
		if store.IsUnauthorized(err) {
			s.unauthorized(w, r)
			return
		}
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Failed to load bills",
				log.FieldPath, r.URL.Path,
				log.FieldError, err)
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": commands.Message(err)})
			return
		}
		fn(w, r, snap)
	}
}

func (s *Server) apiBills(w http.ResponseWriter, r *http.Request, snap state.Snapshot) {
	writeJSON(w, http.StatusOK, s.views.BillsOf(snap, core.CriteriaFromValues(r.URL.Query())))
}

func (s *Server) apiAnalytics(w http.ResponseWriter, r *http.Request, _ state.Snapshot) {
	writeJSON(w, http.StatusOK, s.views.Analytics(core.AnalyticsCriteriaFromValues(r.URL.Query())))
}

func (s *Server) apiCharts(w http.ResponseWriter, r *http.Request, _ state.Snapshot) {
	writeJSON(w, http.StatusOK, s.views.Charts(core.AnalyticsCriteriaFromValues(r.URL.Query())))
}

func (s *Server) apiConfig(w http.ResponseWriter, r *http.Request, snap state.Snapshot) {
	writeJSON(w, http.StatusOK, snap.Config)
}

func (s *Server) apiLocations(w http.ResponseWriter, r *http.Request, snap state.Snapshot) {
	writeJSON(w, http.StatusOK, snap.Locations)
}

func (s *Server) apiFilterOptions(w http.ResponseWriter, r *http.Request, _ state.Snapshot) {
	writeJSON(w, http.StatusOK, s.views.FilterOptions())
}

// handlePDF streams a stored PDF from the backend.
func (s *Server) handlePDF(w http.ResponseWriter, r *http.Request) {
	pdfPath := chi.URLParam(r, "*")
	if unescaped, err := url.PathUnescape(pdfPath); err == nil {
		pdfPath = unescaped
	}
	if pdfPath == "" {
		NotFoundError("PDF not found").Write(w)
		return
	}

	rc, err := s.backend.OpenPDF(r.Context(), pdfPath)
	switch {
	case store.IsUnauthorized(err):
		s.unauthorized(w, r)
		return
	case errors.Is(err, store.ErrPDFNotFound):
		NotFoundError(err.Error()).Write(w)
		return
	case err != nil:
		s.logger.ErrorContext(r.Context(), "Failed to open PDF",
			log.FieldPath, pdfPath,
			log.FieldError, err)
		BadGatewayError("Failed to load PDF: " + commands.Message(err)).Write(w)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", path.Base(pdfPath)))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.WarnContext(r.Context(), "PDF stream interrupted",
			log.FieldPath, pdfPath,
			log.FieldError, err)
		return
	}
	s.appMetrics.pdfDownloads.Add(1)
}

// exportXLSX downloads the bills of the current filter as a workbook.
func (s *Server) exportXLSX(w http.ResponseWriter, r *http.Request, snap state.Snapshot) {
	view := s.views.BillsOf(snap, core.CriteriaFromValues(r.URL.Query()))
	if len(view.Bills) == 0 {
		NotFoundError("No data to export.").Write(w)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, export.BuildReport(view.Bills)); err != nil {
		s.logger.WithComponent(log.ComponentExport).ErrorContext(r.Context(), "Failed to build export",
			log.FieldError, err)
		InternalServerError("Failed to export data").Write(w)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(s.now())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
	s.appMetrics.exports.Add(1)
	s.logger.WithComponent(log.ComponentExport).InfoContext(r.Context(), "Bills exported",
		log.FieldBillCount, len(view.Bills))
}
