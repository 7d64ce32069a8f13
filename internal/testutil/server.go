// Package testutil spins up a fully wired test server backed by an
// in-memory store for handler integration tests.
package testutil

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/akozyrev/taskman/internal/auth"
	"github.com/akozyrev/taskman/internal/database"
	"github.com/akozyrev/taskman/internal/landing"
	"github.com/akozyrev/taskman/internal/logging"
	"github.com/akozyrev/taskman/internal/session"
	"github.com/akozyrev/taskman/internal/templates"
	"github.com/akozyrev/taskman/internal/users"
)

// Server is a running test instance with a cookie-aware client.
type Server struct {
	URL      string
	Store    *database.BadgerDB
	Sessions *session.Manager

	// Client keeps cookies across requests and does not follow
	// redirects, so tests can assert on 302 responses directly.
	Client *http.Client
}

// NewServer starts a test server over an in-memory Badger store.
func NewServer(t *testing.T) *Server {
	t.Helper()

	require.NoError(t, templates.Setup())

	db, err := database.InitializeBadgerDB(true)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logging.New(slog.LevelError)
	sessions := session.NewManager(db, "taskman_session", time.Hour, logger)

	r := mux.NewRouter()
	r.Use(sessions.Middleware())
	landing.SetupRoutes(r, sessions, logger)
	users.SetupRoutes(r, db, sessions, logger)
	auth.SetupRoutes(r, db, sessions, logger)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &Server{
		URL:      srv.URL,
		Store:    db,
		Sessions: sessions,
		Client: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Get performs a GET request and returns the status code and body.
// lang, if non-empty, is sent as the Accept-Language header.
func (s *Server) Get(t *testing.T, path, lang string) (int, string) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, s.URL+path, nil)
	require.NoError(t, err)
	if lang != "" {
		req.Header.Set("Accept-Language", lang)
	}

	resp, err := s.Client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

// PostForm performs a form POST and returns the response (with body
// drained into the second return value).
func (s *Server) PostForm(t *testing.T, path string, form url.Values, lang string) (*http.Response, string) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, s.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if lang != "" {
		req.Header.Set("Accept-Language", lang)
	}

	resp, err := s.Client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

// Login authenticates the client's session and consumes the
// "logged in" flash so it does not leak into later assertions.
func (s *Server) Login(t *testing.T, username, password string) {
	t.Helper()

	resp, _ := s.PostForm(t, "/login", url.Values{
		"username": {username},
		"password": {password},
	}, "")
	require.Equal(t, http.StatusFound, resp.StatusCode, "login should redirect")

	status, _ := s.Get(t, "/", "")
	require.Equal(t, http.StatusOK, status)
}
