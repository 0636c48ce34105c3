package http

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/samber/lo"

	"billtracker/internal/commands"
	"billtracker/internal/core"
	"billtracker/internal/log"
	"billtracker/internal/state"
	"billtracker/internal/store"
)

// networkRow is one network of the management panel.
type networkRow struct {
	Name     string
	Vendors  []string
	Quarters []string
	// QuartersJSON prefills the quarter editor with normalized definitions.
	QuartersJSON string
}

// dashboardData feeds index.html and its partials.
type dashboardData struct {
	Title     string
	User      core.User
	IsAdmin   bool
	Criteria  core.Criteria
	Analytics core.AnalyticsCriteria
	Options   core.FilterOptions
	Bills     state.BillsView
	Summary   state.AnalyticsView
	Networks  []networkRow
	Locations []string
	Warnings  []string
	Actions   []string
}

func networkRows(cfg core.Configuration) []networkRow {
	return lo.Map(cfg.NetworkNames(), func(name string, _ int) networkRow {
		ns, _ := cfg.Network(name)
		qs, _ := json.MarshalIndent(core.Quarters(ns.Quarters), "", "  ")
		return networkRow{
			Name:         name,
			Vendors:      ns.Vendors,
			Quarters:     lo.Map(ns.Quarters, func(q core.QuarterEntry, _ int) string { return q.DisplayName() }),
			QuartersJSON: string(qs),
		}
	})
}

// render executes a template into a buffer so a failing template never
// leaves a half written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		s.logger.WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			"template", name,
			log.FieldError, err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleLogin shows the login form, or the dashboard when a session exists.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if _, err := s.backend.CurrentUser(r.Context()); err == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, "login.html", map[string]string{"Title": "Login"})
}

// handleIndex renders the dashboard. Without a session it redirects to the
// login page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := s.backend.CurrentUser(ctx)
	if store.IsUnauthorized(err) {
		s.state.Clear()
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	var warnings []string
	if err != nil {
		warnings = append(warnings, "Unable to verify session: "+commands.Message(err))
	}

	snap, err := s.ensureLoaded(ctx)
	if store.IsUnauthorized(err) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load dashboard state", log.FieldError, err)
		warnings = append(warnings, "Failed to load data: "+commands.Message(err))
	}
	warnings = append(warnings, snap.Warnings...)

	s.render(w, r, "index.html", s.dashboard(r, user, snap, warnings))
}

func (s *Server) dashboard(r *http.Request, user core.User, snap state.Snapshot, warnings []string) dashboardData {
	q := r.URL.Query()
	criteria := core.CriteriaFromValues(q)
	analytics := core.AnalyticsCriteriaFromValues(q)
	return dashboardData{
		Title:     "Bill Tracker",
		User:      user,
		IsAdmin:   user.Admin(),
		Criteria:  criteria,
		Analytics: analytics,
		Options:   s.views.FilterOptions(),
		Bills:     s.views.BillsOf(snap, criteria),
		Summary:   s.views.Analytics(analytics),
		Networks:  networkRows(snap.Config),
		Locations: snap.Locations,
		Warnings:  warnings,
		Actions:   s.registry.Actions(),
	}
}

// billsPartial renders the filtered bills table for HTMX swaps.
func (s *Server) billsPartial(w http.ResponseWriter, r *http.Request, snap state.Snapshot) {
	s.render(w, r, "bills_table", s.views.BillsOf(snap, core.CriteriaFromValues(r.URL.Query())))
}

// analyticsPartial renders the analytics table for HTMX swaps.
func (s *Server) analyticsPartial(w http.ResponseWriter, r *http.Request, _ state.Snapshot) {
	s.render(w, r, "analytics_table", s.views.Analytics(core.AnalyticsCriteriaFromValues(r.URL.Query())))
}

// networksPartial renders the network management panel.
func (s *Server) networksPartial(w http.ResponseWriter, r *http.Request, snap state.Snapshot) {
	s.render(w, r, "networks_panel", networkRows(snap.Config))
}
