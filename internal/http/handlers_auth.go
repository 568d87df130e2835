package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/atparui/rms-console/internal/service"
	"github.com/atparui/rms-console/internal/session"
)

// AuthHandlers provides HTTP handlers for the login, callback and logout round trips.
type AuthHandlers struct {
	Guard    *AccessGuard
	Nav      *service.NavigationService // optional; cached trees are dropped on logout
	Renderer *TemplateRenderer
	// BaseURL is the external origin the IdP sends the browser back to after logout.
	BaseURL string
	Logger  *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Login starts an interactive login for the caller's session.
// GET /auth/login?redirect_uri=<optional_redirect>.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	returnTo := safeRedirectPath(r.URL.Query().Get("redirect_uri"))

	s := h.Guard.Session(w, r)
	h.Guard.settle(r.Context(), s)

	authURL, err := s.Login(r.Context(), returnTo)
	if errors.Is(err, session.ErrNotInitialized) {
		h.Guard.sessions.Delete(s.ID())
		h.Renderer.RenderOrError(w, http.StatusOK, tmplRedirecting, GatePage{
			Title:          "Redirecting to login",
			Message:        "Redirecting to login…",
			RefreshSeconds: 3,
		})
		return
	}
	if err != nil {
		h.logger().ErrorContext(r.Context(), "failed to start login", "session_id", s.ID(), "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusBadGateway,
			ErrCode: "login_failed",
			Err:     errors.New("could not start login"),
		})
		return
	}

	http.Redirect(w, r, authURL, http.StatusSeeOther)
}

// Callback completes the authorization-code flow.
// GET /auth/callback?code=<code>&state=<state>.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if idpErr := q.Get("error"); idpErr != "" {
		h.logger().WarnContext(r.Context(), "identity provider rejected login",
			"error", idpErr, "description", q.Get("error_description"))
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "login_rejected",
			Err:     errors.New("login was rejected by the identity provider"),
		})
		return
	}
	code, state := q.Get("code"), q.Get("state")
	if code == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_code",
			Err:     errors.New("authorization code is required"),
		})
		return
	}
	if state == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_state",
			Err:     errors.New("state parameter is required"),
		})
		return
	}

	s, ok := h.Guard.sessions.Get(h.Guard.cookie.Read(r))
	if !ok {
		// The session that started this login is gone; begin again from the top.
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	returnTo, err := s.CompleteLogin(r.Context(), code, state)
	switch {
	case errors.Is(err, session.ErrInvalidState):
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_state",
			Err:     err,
		})
		return
	case err != nil:
		h.logger().ErrorContext(r.Context(), "login completion failed", "session_id", s.ID(), "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusBadGateway,
			ErrCode: "login_completion_failed",
			Err:     errors.New("could not complete login"),
		})
		return
	}

	if h.Nav != nil {
		h.Nav.Forget(s.ID())
	}
	s = h.Guard.sessions.Rotate(r.Context(), s)
	h.Guard.cookie.Set(w, r, s.ID())
	http.Redirect(w, r, safeRedirectPath(returnTo), http.StatusSeeOther)
}

// Logout clears local session state and sends the browser to the IdP end-session URL.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	target := strings.TrimRight(h.BaseURL, "/") + "/"

	if s, ok := h.Guard.sessions.Get(h.Guard.cookie.Read(r)); ok {
		end, err := s.Logout(r.Context(), target)
		if err != nil {
			h.logger().WarnContext(r.Context(), "logout cleanup incomplete", "session_id", s.ID(), "error", err)
		}
		if end != "" {
			target = end
		}
		h.Guard.sessions.Delete(s.ID())
		if h.Nav != nil {
			h.Nav.Forget(s.ID())
		}
	}
	h.Guard.cookie.Clear(w, r)

	// AJAX/HTMX requests get a JSON payload; regular requests redirect
	isAJAX := strings.Contains(r.Header.Get("Accept"), "application/json") ||
		IsHTMX(r) ||
		strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
	if isAJAX {
		if IsHTMX(r) {
			SetHXRedirect(w, target)
		}
		WriteJSON(w, http.StatusOK, map[string]string{
			"status":      "success",
			"redirect_to": target,
		})
		return
	}

	http.Redirect(w, r, target, http.StatusSeeOther)
}

// Status reports the caller's session state without creating a session.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	s, ok := h.Guard.sessions.Get(h.Guard.cookie.Read(r))
	if !ok {
		WriteJSON(w, http.StatusOK, map[string]any{
			"authenticated": false,
			"state":         "none",
		})
		return
	}
	WriteJSON(w, http.StatusOK, s.Snapshot())
}
