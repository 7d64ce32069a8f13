// Package templates holds the embedded HTML templates for the server.
package templates

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/akozyrev/taskman/internal/model"
)

//go:embed static
var files embed.FS

// Page is the data every page template's header consumes.
type Page struct {
	Title         string
	Authenticated bool
	Flashes       []model.Flash
}

// All holds all parsed templates for the server.
var All *template.Template

// Setup parses the embedded templates and sets a global variable with
// the output.
func Setup() error {
	var err error
	All, err = template.ParseFS(files, "static/*.tmpl")
	return err
}

// Render writes the named template to the response. Data shape is
// whatever the template expects; see the page structs next to the
// handlers.
func Render(w http.ResponseWriter, name string, data interface{}) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return All.ExecuteTemplate(w, name, data)
}
