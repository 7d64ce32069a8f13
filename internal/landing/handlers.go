// Package landing serves the index page.
package landing

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/akozyrev/taskman/internal/session"
	"github.com/akozyrev/taskman/internal/templates"
)

// SetupRoutes initializes the route for the landing page.
func SetupRoutes(r *mux.Router, sessions *session.Manager, logger *slog.Logger) {
	r.Path("/").Handler(indexHandler{sessions, logger}).Methods(http.MethodGet)
}

type indexPage struct {
	Page templates.Page
}

type indexHandler struct {
	sessions *session.Manager
	logger   *slog.Logger
}

func (h indexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	err := templates.Render(w, "index.tmpl", indexPage{
		Page: templates.Page{
			Title:         "Welcome",
			Authenticated: sess.Authenticated(),
			Flashes:       h.sessions.DrainFlashes(r.Context(), sess),
		},
	})
	if err != nil {
		h.logger.Error("render index", "err", err)
	}
}
