package model

import "time"

// Flash is a one-shot notification shown on the next rendered page
// and then discarded. Text is already rendered in the request locale.
type Flash struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Flash levels.
const (
	FlashInfo    = "info"
	FlashSuccess = "success"
	FlashError   = "error"
)

// Session is a server-side session record. An empty UserID means the
// caller is anonymous.
type Session struct {
	ID        string    `json:"id"` // uuid, doubles as the cookie value
	UserID    string    `json:"user_id"`
	Flashes   []Flash   `json:"flashes"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Authenticated reports whether the session is bound to a user.
func (s *Session) Authenticated() bool {
	return s.UserID != ""
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// AddFlash queues a notification for the next rendered page.
func (s *Session) AddFlash(level, text string) {
	s.Flashes = append(s.Flashes, Flash{Level: level, Text: text})
}

// PopFlashes returns all queued notifications and clears the queue.
// The caller is responsible for persisting the session afterwards.
func (s *Session) PopFlashes() []Flash {
	f := s.Flashes
	s.Flashes = nil
	return f
}
