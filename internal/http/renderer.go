package httpx

import (
	"bytes"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/atparui/rms-console/internal/domain/menu"
)

// TemplateRenderer renders HTML templates for UI responses.
type TemplateRenderer struct {
	t      *template.Template
	logger *slog.Logger
}

// TemplateRendererConfig holds configuration for creating a TemplateRenderer.
type TemplateRendererConfig struct {
	TemplateFS fs.FS        // Filesystem containing templates (required)
	Logger     *slog.Logger // Logger for template errors (optional)
}

// NewTemplateRenderer parses every template under TemplateFS.
func NewTemplateRenderer(cfg TemplateRendererConfig) (*TemplateRenderer, error) {
	if cfg.TemplateFS == nil {
		return nil, errors.New("TemplateFS is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	t, err := template.New("root").Funcs(templateFuncs()).ParseFS(cfg.TemplateFS,
		"*.tmpl",
		"pages/*.tmpl",
		"partials/*.tmpl",
	)
	if err != nil {
		logger.Error("template parsing failed", slog.Any("error", err), slog.String("phase", "initialization"))
		return nil, err
	}
	return &TemplateRenderer{t: t, logger: logger}, nil
}

// Render executes name into a buffer and writes it with status. Nothing is written on error.
func (r *TemplateRenderer) Render(w http.ResponseWriter, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := r.t.ExecuteTemplate(&buf, name, data); err != nil {
		r.logger.Error("template execution failed", slog.String("template", name), slog.Any("error", err))
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		r.logger.Debug("failed to write rendered template", slog.String("template", name), slog.Any("error", err))
		return err
	}
	return nil
}

// RenderOrError renders name, answering 500 when the template fails.
func (r *TemplateRenderer) RenderOrError(w http.ResponseWriter, status int, name string, data any) {
	if err := r.Render(w, status, name, data); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// navLevel is the data for one recursion step of the sidebar template.
type navLevel struct {
	Nodes  []menu.Node
	Depth  int
	Active string
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"navLevel": func(nodes []menu.Node, depth int, active string) navLevel {
			return navLevel{Nodes: nodes, Depth: depth, Active: active}
		},
		"add": func(a, b int) int { return a + b },
		"initials": func(name string) string {
			for _, r := range name {
				return string(r)
			}
			return "?"
		},
	}
}
