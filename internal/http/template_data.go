package httpx

import (
	"net/http"

	domainauth "github.com/atparui/rms-console/internal/domain/auth"
	"github.com/atparui/rms-console/internal/service"
)

// PageData is the model for the dashboard shell.
type PageData struct {
	Title      string
	AppName    string
	ActivePath string
	Session    domainauth.Snapshot
	Nav        service.NavView
	CSRFToken  string
	// Section is true when ActivePath has no page of its own in the console.
	Section bool
}

// DisplayName is what the header shows for the signed-in user.
func (p PageData) DisplayName() string {
	if p.Session.Profile == nil {
		return ""
	}
	return p.Session.Profile.DisplayName()
}

// Email is the signed-in user's email, if known.
func (p PageData) Email() string {
	if p.Session.Profile == nil {
		return ""
	}
	return p.Session.Profile.Email
}

// GatePage is the model for the waiting and redirecting pages.
type GatePage struct {
	Title   string
	Message string
	// Target is the URL the page navigates to; empty means reload.
	Target string
	// RefreshSeconds sets the meta refresh delay.
	RefreshSeconds int
}

func newPageData(r *http.Request, title string) PageData {
	return PageData{
		Title:      title,
		AppName:    "RMS Console",
		ActivePath: r.URL.Path,
		CSRFToken:  CSRFToken(r.Context()),
	}
}
