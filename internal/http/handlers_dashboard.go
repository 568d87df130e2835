package httpx

import (
	"net/http"

	"github.com/atparui/rms-console/internal/domain/menu"
	"github.com/atparui/rms-console/internal/service"
)

// DashboardHandlers renders the console shell.
type DashboardHandlers struct {
	Nav      *service.NavigationService
	Renderer *TemplateRenderer
}

// Page renders the shell for any guarded path. Only "/" has content of its own; other
// paths are menu destinations served elsewhere and get a placeholder with the sidebar
// highlighting them.
// GET /.
func (h *DashboardHandlers) Page(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionOrAbort(w, r)
	if !ok {
		return
	}

	data := newPageData(r, "Dashboard")
	data.Session = s.Snapshot()
	data.Nav = h.Nav.Load(r.Context(), s, true)
	if r.URL.Path != "/" {
		data.Section = true
		data.Title = sectionTitle(data.Nav, r.URL.Path)
	}

	if WantsPartial(r) {
		h.Renderer.RenderOrError(w, http.StatusOK, tmplMain, data)
		return
	}
	h.Renderer.RenderOrError(w, http.StatusOK, tmplLayout, data)
}

// sectionTitle is the label of the menu node routed at path, or the path itself.
func sectionTitle(view service.NavView, path string) string {
	for _, e := range menu.Flatten(view.Items, path) {
		if e.Active {
			return e.Label
		}
	}
	return path
}
