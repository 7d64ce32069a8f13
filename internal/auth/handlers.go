// Package auth implements session login and logout.
package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/akozyrev/taskman/internal/database"
	"github.com/akozyrev/taskman/internal/locale"
	"github.com/akozyrev/taskman/internal/model"
	"github.com/akozyrev/taskman/internal/session"
	"github.com/akozyrev/taskman/internal/templates"
	"github.com/akozyrev/taskman/util/passwordutil"
)

const (
	// LoginEndpoint is the endpoint for authenticating the user.
	LoginEndpoint = "/login"

	// LogoutEndpoint terminates the caller's session.
	LogoutEndpoint = "/logout"
)

// SetupRoutes configures auth routing for the given mux.
func SetupRoutes(r *mux.Router, store database.UserStore, sessions *session.Manager, logger *slog.Logger) {
	r.Handle(LoginEndpoint, loginHandler{store, sessions, logger})
	r.Handle(LogoutEndpoint, logoutHandler{sessions, logger})
}

type loginPage struct {
	Page   templates.Page
	Form   model.LoginForm
	Errors map[string]string
}

func makePage(r *http.Request, sessions *session.Manager, title string) templates.Page {
	sess := session.FromContext(r.Context())
	return templates.Page{
		Title:         title,
		Authenticated: sess.Authenticated(),
		Flashes:       sessions.DrainFlashes(r.Context(), sess),
	}
}

type loginHandler struct {
	store    database.UserStore
	sessions *session.Manager
	logger   *slog.Logger
}

func (h loginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.renderForm(w, r, model.LoginForm{}, nil)
	case http.MethodPost:
		h.handleSubmit(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h loginHandler) renderForm(w http.ResponseWriter, r *http.Request, form model.LoginForm, fieldErrors map[string]string) {
	err := templates.Render(w, "login.tmpl", loginPage{
		Page:   makePage(r, h.sessions, "Log in"),
		Form:   form,
		Errors: fieldErrors,
	})
	if err != nil {
		h.logger.Error("render login form", "err", err)
	}
}

func (h loginHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "POST endpoint accepts valid form encoding only", http.StatusBadRequest)
		return
	}

	tr := locale.ForRequest(r)
	form := model.LoginFormFromRequest(r)
	v := form.Validate(tr)
	if !v.Valid() {
		h.renderForm(w, r, form, v.FieldErrors)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), database.DefaultTimeout)
	defer cancel()

	user, err := h.store.GetUserByUsername(ctx, form.Username)
	if err == nil && !passwordutil.CheckPasswordHash(form.Password, user.PasswordHash) {
		err = database.ErrNotFound
	}
	if err == database.ErrNotFound {
		// The caller stays anonymous. A generic form error avoids
		// disclosing which of the two fields was wrong.
		v.Add("username", tr.T(locale.KeyBadCredentials))
		h.renderForm(w, r, form, v.FieldErrors)
		return
	}
	if err != nil {
		h.logger.Error("look up user", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	sess := session.FromContext(r.Context())
	sess.UserID = user.ID
	sess.AddFlash(model.FlashInfo, tr.T(locale.KeyLoggedIn))
	if err := h.sessions.Save(r.Context(), sess); err != nil {
		h.logger.Error("save session", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

type logoutHandler struct {
	sessions *session.Manager
	logger   *slog.Logger
}

// ServeHTTP terminates any existing session. Logging out while
// anonymous is a no-op that still redirects home.
func (h logoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if err := h.sessions.Destroy(r.Context(), w, sess); err != nil {
		h.logger.Error("destroy session", "err", err)
	}
	http.Redirect(w, r, "/", http.StatusFound)
}
