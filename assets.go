// Package rmsconsole provides embedded assets for production builds.
package rmsconsole

import "embed"

// In dev mode assets are loaded from disk so template edits show up without a rebuild.

//go:embed all:frontend/static
var StaticFS embed.FS

//go:embed all:frontend/templates
var TemplateFS embed.FS
