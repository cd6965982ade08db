package analysis

import "sync"

// Session holds the provider conversation token for one analysis run. The
// token is created by the first batch call and threaded through every later
// batch of the same run; it is never shared across runs. Parallel runs hand
// the token between workers best-effort, so access is guarded.
type Session struct {
	mu    sync.Mutex
	token string
}

// NewSession returns a session resuming an existing conversation token, or a
// fresh one when existing is empty. A fresh session is primed once with the
// mode's instruction text on its first call.
func NewSession(existing string) *Session {
	return &Session{token: existing}
}

// Token returns the current conversation token, empty for a fresh session.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Advance replaces the held token with the freshest value the provider
// returned, keeping the previous token when the provider returned none.
func (s *Session) Advance(newToken string) {
	if newToken == "" {
		return
	}
	s.mu.Lock()
	s.token = newToken
	s.mu.Unlock()
}
