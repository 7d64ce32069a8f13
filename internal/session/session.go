// Package session manages server-side sessions: a cookie carries an
// opaque session id, the record itself lives in the store. The session
// also transports one-shot flash notifications between requests.
package session

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofrs/uuid"
	"github.com/gorilla/mux"

	"github.com/akozyrev/taskman/internal/database"
	"github.com/akozyrev/taskman/internal/model"
)

type sessionKey string

var sessionContextKey sessionKey = "session"

// Manager loads, saves and destroys sessions.
type Manager struct {
	store      database.SessionStore
	cookieName string
	ttl        time.Duration
	logger     *slog.Logger
}

// NewManager returns a Manager persisting sessions in the given store.
func NewManager(store database.SessionStore, cookieName string, ttl time.Duration, logger *slog.Logger) *Manager {
	return &Manager{store: store, cookieName: cookieName, ttl: ttl, logger: logger}
}

// FromContext returns the request's session. The session middleware
// guarantees a non-nil session on every request it wraps.
func FromContext(ctx context.Context) *model.Session {
	sess, _ := ctx.Value(sessionContextKey).(*model.Session)
	return sess
}

// Middleware resolves the session cookie into a session record and
// places it on the request context. Requests without a valid cookie
// get a fresh anonymous session, and the cookie is set immediately so
// the session survives the very first response.
func (m *Manager) Middleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := m.load(r)
			if sess == nil {
				var err error
				sess, err = m.create(r.Context())
				if err != nil {
					m.logger.Error("create session", "err", err)
					http.Error(w, "Internal server error", http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, m.cookie(sess))
			}
			ctx := context.WithValue(r.Context(), sessionContextKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (m *Manager) load(r *http.Request) *model.Session {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(r.Context(), database.DefaultTimeout)
	defer cancel()

	sess, err := m.store.GetSession(ctx, cookie.Value)
	if err != nil {
		return nil
	}
	if sess.Expired(time.Now()) {
		return nil
	}
	return sess
}

func (m *Manager) create(ctx context.Context) (*model.Session, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sess := &model.Session{
		ID:        id.String(),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	ctx, cancel := context.WithTimeout(ctx, database.DefaultTimeout)
	defer cancel()

	if err := m.store.PutSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Save persists session mutations (identity changes, queued or
// drained flashes) back to the store.
func (m *Manager) Save(ctx context.Context, sess *model.Session) error {
	ctx, cancel := context.WithTimeout(ctx, database.DefaultTimeout)
	defer cancel()
	return m.store.PutSession(ctx, sess)
}

// DrainFlashes pops all queued flashes and persists the emptied
// session, enforcing one-shot delivery. A failed store write is
// logged, not fatal: the worst case is a flash shown twice.
func (m *Manager) DrainFlashes(ctx context.Context, sess *model.Session) []model.Flash {
	flashes := sess.PopFlashes()
	if len(flashes) > 0 {
		if err := m.Save(ctx, sess); err != nil {
			m.logger.Error("persist drained session", "err", err)
		}
	}
	return flashes
}

// Destroy deletes the session record and expires the cookie. It is
// idempotent: destroying an absent session succeeds.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, sess *model.Session) error {
	ctx, cancel := context.WithTimeout(ctx, database.DefaultTimeout)
	defer cancel()

	if err := m.store.DeleteSession(ctx, sess.ID); err != nil {
		return err
	}
	expired := m.cookie(sess)
	expired.Value = ""
	expired.MaxAge = -1
	http.SetCookie(w, expired)
	return nil
}

func (m *Manager) cookie(sess *model.Session) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
	}
}
