package httpx

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/atparui/rms-console/internal/service"
	"github.com/atparui/rms-console/internal/session"
)

// NavHandlers serves the caller's menu tree as JSON and as the sidebar fragment.
// Every route is behind the AccessGuard.
type NavHandlers struct {
	Nav      *service.NavigationService
	Renderer *TemplateRenderer
}

// sessionOrAbort returns the guarded session, answering 401 if the route was mounted unguarded.
func sessionOrAbort(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, ok := SessionFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
	}
	return s, ok
}

// Tree returns the current view of the tree.
// GET /api/nav.
func (h *NavHandlers) Tree(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionOrAbort(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, h.Nav.Load(r.Context(), s, true))
}

// Refresh invalidates the cached tree and returns the re-fetched view.
// POST /api/nav/refresh.
func (h *NavHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionOrAbort(w, r)
	if !ok {
		return
	}
	h.Nav.Refresh(s.ID())
	WriteJSON(w, http.StatusOK, h.Nav.Load(r.Context(), s, true))
}

// Sidebar renders the sidebar fragment.
// GET /ui/nav?active=<path>.
func (h *NavHandlers) Sidebar(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionOrAbort(w, r)
	if !ok {
		return
	}
	h.renderSidebar(w, r, h.Nav.Load(r.Context(), s, true))
}

// RefreshSidebar re-fetches the tree and renders the sidebar fragment. Plain form posts
// are sent back to the page they came from.
// POST /ui/nav/refresh.
func (h *NavHandlers) RefreshSidebar(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionOrAbort(w, r)
	if !ok {
		return
	}
	h.Nav.Refresh(s.ID())
	view := h.Nav.Load(r.Context(), s, true)
	if !IsHTMX(r) {
		back := safeRedirectFromURL(r.Header.Get("Referer"))
		if back == "" {
			back = "/"
		}
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	h.renderSidebar(w, r, view)
}

func (h *NavHandlers) renderSidebar(w http.ResponseWriter, r *http.Request, view service.NavView) {
	data := newPageData(r, "")
	data.ActivePath = activePathForFragment(r)
	data.Nav = view
	h.Renderer.RenderOrError(w, http.StatusOK, tmplSidebar, data)
}

// activePathForFragment is the page path a sidebar fragment is rendered for.
func activePathForFragment(r *http.Request) string {
	if p := r.URL.Query().Get("active"); p != "" {
		return safeRedirectPath(p)
	}
	if u, err := url.Parse(r.Header.Get("Hx-Current-Url")); err == nil && u.Path != "" {
		return u.Path
	}
	return "/"
}
