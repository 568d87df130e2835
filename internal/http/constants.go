package httpx

// Template paths used for loading templates in tests and dev mode.
const (
	TemplatePathFromRoot = "frontend/templates"       // From project root
	TemplatePathFromTest = "../../frontend/templates" // From internal/http test files
)

// Template names.
const (
	tmplLayout      = "layout"
	tmplMain        = "main-content"
	tmplSidebar     = "sidebar"
	tmplWaiting     = "waiting-page"
	tmplRedirecting = "redirecting-page"
)

// Service name reported by the health endpoint.
const ServiceName = "rms-console"
