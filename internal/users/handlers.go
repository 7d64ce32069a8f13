// Package users implements the user account handlers: the public
// users list, registration, and owner-only update and delete.
package users

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/akozyrev/taskman/internal/database"
	"github.com/akozyrev/taskman/internal/locale"
	"github.com/akozyrev/taskman/internal/model"
	"github.com/akozyrev/taskman/internal/session"
	"github.com/akozyrev/taskman/internal/templates"
	"github.com/akozyrev/taskman/util/passwordutil"
	"github.com/gofrs/uuid"
)

const (
	// ListEndpoint serves the public users list.
	ListEndpoint = "/users"

	// CreateEndpoint serves the registration form and submission.
	CreateEndpoint = "/users/create"

	// UpdateEndpoint serves account updates for the account owner.
	UpdateEndpoint = "/users/{id}/update"

	// DeleteEndpoint serves account deletion for the account owner.
	DeleteEndpoint = "/users/{id}/delete"
)

// SetupRoutes configures user routing for the given mux.
func SetupRoutes(r *mux.Router, store database.UserStore, sessions *session.Manager, logger *slog.Logger) {
	r.Handle(ListEndpoint, listHandler{store, sessions, logger})
	r.Handle(CreateEndpoint, createHandler{store, sessions, logger})
	r.Handle(UpdateEndpoint, updateHandler{store, sessions, logger})
	r.Handle(DeleteEndpoint, deleteHandler{store, sessions, logger})
}

type usersPage struct {
	Page  templates.Page
	Users []*model.User
}

type userFormPage struct {
	Page    templates.Page
	Heading string
	Action  string
	Submit  string
	Form    model.UserForm
	Errors  map[string]string
}

func makePage(r *http.Request, sessions *session.Manager, title string) templates.Page {
	sess := session.FromContext(r.Context())
	return templates.Page{
		Title:         title,
		Authenticated: sess.Authenticated(),
		Flashes:       sessions.DrainFlashes(r.Context(), sess),
	}
}

type listHandler struct {
	store    database.UserStore
	sessions *session.Manager
	logger   *slog.Logger
}

func (h listHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Only GET method is allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), database.DefaultTimeout)
	defer cancel()

	users, err := h.store.ListUsers(ctx)
	if err != nil {
		h.logger.Error("list users", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	err = templates.Render(w, "users.tmpl", usersPage{
		Page:  makePage(r, h.sessions, "Users"),
		Users: users,
	})
	if err != nil {
		h.logger.Error("render users list", "err", err)
	}
}

type createHandler struct {
	store    database.UserStore
	sessions *session.Manager
	logger   *slog.Logger
}

func (h createHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.renderForm(w, r, model.UserForm{}, nil)
	case http.MethodPost:
		h.handleSubmit(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h createHandler) renderForm(w http.ResponseWriter, r *http.Request, form model.UserForm, fieldErrors map[string]string) {
	err := templates.Render(w, "user_form.tmpl", userFormPage{
		Page:    makePage(r, h.sessions, "Sign up"),
		Heading: "Sign up",
		Action:  CreateEndpoint,
		Submit:  "Register",
		Form:    form,
		Errors:  fieldErrors,
	})
	if err != nil {
		h.logger.Error("render registration form", "err", err)
	}
}

func (h createHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "POST endpoint accepts valid form encoding only", http.StatusBadRequest)
		return
	}

	tr := locale.ForRequest(r)
	form := model.UserFormFromRequest(r)
	v := form.Validate(tr)
	if !v.Valid() {
		h.renderForm(w, r, form, v.FieldErrors)
		return
	}

	hash, err := passwordutil.GeneratePasswordHash(form.Password1)
	if err != nil {
		h.logger.Error("hash password", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	id, err := uuid.NewV4()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	user := &model.User{
		ID:           id.String(),
		Username:     form.Username,
		PasswordHash: hash,
		FirstName:    form.FirstName,
		LastName:     form.LastName,
	}

	ctx, cancel := context.WithTimeout(r.Context(), database.DefaultTimeout)
	defer cancel()

	err = h.store.CreateUser(ctx, user)
	if err == database.ErrDuplicateUsername {
		v.Add("username", tr.T(locale.KeyUsernameTaken))
		h.renderForm(w, r, form, v.FieldErrors)
		return
	}
	if err != nil {
		h.logger.Error("create user", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	sess := session.FromContext(r.Context())
	sess.AddFlash(model.FlashSuccess, tr.T(locale.KeyRegistered))
	if err := h.sessions.Save(r.Context(), sess); err != nil {
		h.logger.Error("save session", "err", err)
	}
	http.Redirect(w, r, ListEndpoint, http.StatusFound)
}

type updateHandler struct {
	store    database.UserStore
	sessions *session.Manager
	logger   *slog.Logger
}

func (h updateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		// The standalone edit page is not served; editing happens
		// from the users list.
		http.Redirect(w, r, ListEndpoint, http.StatusFound)
	case http.MethodPost:
		h.handleSubmit(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h updateHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	tr := locale.ForRequest(r)

	if !authorizeOwner(r, id) {
		denyChange(w, r, h.sessions, h.logger, tr)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "POST endpoint accepts valid form encoding only", http.StatusBadRequest)
		return
	}

	form := model.UserFormFromRequest(r)
	v := form.Validate(tr)
	if !v.Valid() {
		h.renderForm(w, r, id, form, v.FieldErrors)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), database.DefaultTimeout)
	defer cancel()

	user, err := h.store.GetUser(ctx, id)
	if err != nil {
		h.logger.Error("load user for update", "id", id, "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	hash, err := passwordutil.GeneratePasswordHash(form.Password1)
	if err != nil {
		h.logger.Error("hash password", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	user.FirstName = form.FirstName
	user.LastName = form.LastName
	user.Username = form.Username
	user.PasswordHash = hash

	err = h.store.UpdateUser(ctx, user)
	if err == database.ErrDuplicateUsername {
		v.Add("username", tr.T(locale.KeyUsernameTaken))
		h.renderForm(w, r, id, form, v.FieldErrors)
		return
	}
	if err != nil {
		h.logger.Error("update user", "id", id, "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	sess := session.FromContext(r.Context())
	sess.AddFlash(model.FlashSuccess, tr.T(locale.KeyUpdated))
	if err := h.sessions.Save(r.Context(), sess); err != nil {
		h.logger.Error("save session", "err", err)
	}
	http.Redirect(w, r, ListEndpoint, http.StatusFound)
}

func (h updateHandler) renderForm(w http.ResponseWriter, r *http.Request, id string, form model.UserForm, fieldErrors map[string]string) {
	err := templates.Render(w, "user_form.tmpl", userFormPage{
		Page:    makePage(r, h.sessions, "Update user"),
		Heading: "Update user",
		Action:  fmt.Sprintf("/users/%s/update", id),
		Submit:  "Update",
		Form:    form,
		Errors:  fieldErrors,
	})
	if err != nil {
		h.logger.Error("render update form", "err", err)
	}
}

type deleteHandler struct {
	store    database.UserStore
	sessions *session.Manager
	logger   *slog.Logger
}

func (h deleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		http.Redirect(w, r, ListEndpoint, http.StatusFound)
	case http.MethodPost:
		h.handleSubmit(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h deleteHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	tr := locale.ForRequest(r)

	if !authorizeOwner(r, id) {
		denyChange(w, r, h.sessions, h.logger, tr)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), database.DefaultTimeout)
	defer cancel()

	if err := h.store.DeleteUser(ctx, id); err != nil {
		h.logger.Error("delete user", "id", id, "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Deleting your own account logs you out.
	sess := session.FromContext(r.Context())
	sess.UserID = ""
	sess.AddFlash(model.FlashSuccess, tr.T(locale.KeyDeleted))
	if err := h.sessions.Save(r.Context(), sess); err != nil {
		h.logger.Error("save session", "err", err)
	}
	http.Redirect(w, r, ListEndpoint, http.StatusFound)
}

// authorizeOwner reports whether the request's session belongs to the
// target user. An anonymous session and a mismatched identity are
// distinct conditions but produce the same outcome on purpose.
func authorizeOwner(r *http.Request, targetID string) bool {
	sess := session.FromContext(r.Context())
	if !sess.Authenticated() {
		return false
	}
	return sess.UserID == targetID
}

// denyChange flashes the "no rights" notification and sends the
// caller back to the users list without touching any record.
func denyChange(w http.ResponseWriter, r *http.Request, sessions *session.Manager, logger *slog.Logger, tr locale.Translator) {
	sess := session.FromContext(r.Context())
	sess.AddFlash(model.FlashError, tr.T(locale.KeyNoRights))
	if err := sessions.Save(r.Context(), sess); err != nil {
		logger.Error("save session", "err", err)
	}
	http.Redirect(w, r, ListEndpoint, http.StatusFound)
}
