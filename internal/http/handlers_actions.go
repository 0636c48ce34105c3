package http

import (
	"errors"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"billtracker/internal/commands"
	"billtracker/internal/log"
)

// configActions change the network configuration.
var configActions = map[string]bool{
	commands.ActionAddNetwork:    true,
	commands.ActionRenameNetwork: true,
	commands.ActionDeleteNetwork: true,
	commands.ActionAddVendor:     true,
	commands.ActionRenameVendor:  true,
	commands.ActionRemoveVendor:  true,
	commands.ActionSaveQuarters:  true,
}

// formActions clear their form on success.
var formActions = map[string]bool{
	commands.ActionCreateBill:     true,
	commands.ActionUpdateBill:     true,
	commands.ActionUploadPDF:      true,
	commands.ActionCreateUser:     true,
	commands.ActionChangePassword: true,
	commands.ActionResetPassword:  true,
	commands.ActionRegister:       true,
}

// handleAction dispatches POST /actions/{action}.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "action")
	limit := int64(maxActionBody)
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "multipart/form-data" {
		limit = maxUploadBody
	}

	p := NewRequestBodyParser(w, r, limit)
	if err := p.Parse(); err != nil {
		s.respondResult(w, r, parseFailure(name, err))
		return
	}
	s.respondResult(w, r, s.registry.Dispatch(r.Context(), name, p.Input()))
}

// handleUploadPDF attaches a PDF to the bill named in the path.
func (s *Server) handleUploadPDF(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r, maxUploadBody)
	if err := p.Parse(); err != nil {
		s.respondResult(w, r, parseFailure(commands.ActionUploadPDF, err))
		return
	}
	in := p.Input()
	in.Values.Set("serialNo", chi.URLParam(r, "serialNo"))
	s.respondResult(w, r, s.registry.Dispatch(r.Context(), commands.ActionUploadPDF, in))
}

func parseFailure(action string, err error) commands.Result {
	msg := "Invalid request: " + err.Error()
	if errors.Is(err, ErrBodyTooLarge) {
		msg = commands.ErrFileTooLarge.Error()
	}
	return commands.Result{Action: action, Level: commands.LevelError, Message: msg}
}

// respondResult writes a command result. HTMX requests always get 200 so the
// notification triggers run; other clients get a status matching the level.
// A non-HTMX, non-JSON request that lost its session is redirected.
func (s *Server) respondResult(w http.ResponseWriter, r *http.Request, res commands.Result) {
	if res.OK() {
		s.appMetrics.actionsOK.Add(1)
	} else {
		s.appMetrics.actionsFailed.Add(1)
	}
	if res.Unauthorized {
		s.appMetrics.unauthorized.Add(1)
	}

	b := ResultResponse(res, s.state.Snapshot().Version)
	if res.Reloaded && configActions[res.Action] {
		b.TriggerConfigChanged()
	}
	if res.OK() && formActions[res.Action] {
		b.TriggerFormReset()
	}
	if res.Action == commands.ActionLogin && res.OK() {
		b.Redirect("/")
	}

	if !isHTMX(r) {
		if res.Unauthorized && !wantsJSON(r) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		b.Status(s.statusFor(res))
	}

	log.FromContext(r.Context()).DebugContext(r.Context(), "Action response",
		log.FieldAction, res.Action,
		"level", string(res.Level))
	b.Write(w)
}

func (s *Server) statusFor(res commands.Result) int {
	switch {
	case res.Unauthorized:
		return http.StatusUnauthorized
	case res.OK():
		return http.StatusOK
	case !s.registry.Has(res.Action):
		return http.StatusNotFound
	default:
		return http.StatusUnprocessableEntity
	}
}
