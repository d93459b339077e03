// Package session holds the client's view of who is signed in.
//
// A Store only mirrors state issued by the backend. It never checks
// credentials itself; every transition is driven by an Event.
package session

import (
	"sync"
	"time"
)

// Status is the lifecycle state of a Store.
type Status int

const (
	Anonymous Status = iota
	Loading
	Authenticated
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Session is the identity issued by the backend on sign-in.
type Session struct {
	UserID      string    `json:"user_id"`
	SessionID   string    `json:"session_id"`
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Username    string    `json:"username,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// EventKind names an auth event.
type EventKind string

const (
	// SigningIn marks a sign-in or sign-up request in flight.
	SigningIn      EventKind = "signing_in"
	SignInFailed   EventKind = "sign_in_failed"
	SignedIn       EventKind = "signed_in"
	SignedOut      EventKind = "signed_out"
	TokenRefreshed EventKind = "token_refreshed"
)

// Event drives a Store transition. Session is set for SignedIn and TokenRefreshed.
type Event struct {
	Kind    EventKind
	Session *Session
}

// Store is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	status   Status
	current  *Session
	now      func() time.Time
	watchers []chan Status
}

// NewStore returns an anonymous Store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Restore returns a Store authenticated with s, or anonymous when s is nil
// or already expired.
func Restore(s *Session) *Store {
	st := NewStore()
	if s != nil && !s.Expired(st.now()) {
		cp := *s
		st.current = &cp
		st.status = Authenticated
	}
	return st
}

// Apply performs the transition for ev and reports whether the state changed.
//
//	anonymous     -> loading        on SigningIn
//	loading       -> anonymous      on SignInFailed
//	any           -> authenticated  on SignedIn
//	authenticated -> authenticated  on TokenRefreshed (session replaced)
//	any           -> anonymous      on SignedOut
func (s *Store) Apply(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, prevSession := s.status, s.current
	switch ev.Kind {
	case SigningIn:
		if s.status == Anonymous {
			s.status = Loading
		}
	case SignInFailed:
		if s.status == Loading {
			s.status = Anonymous
		}
	case SignedIn:
		if ev.Session != nil {
			cp := *ev.Session
			s.current = &cp
			s.status = Authenticated
		}
	case TokenRefreshed:
		if s.status == Authenticated && ev.Session != nil {
			cp := *ev.Session
			s.current = &cp
		}
	case SignedOut:
		s.current = nil
		s.status = Anonymous
	}

	changed := prev != s.status || prevSession != s.current
	if prev != s.status {
		s.notify(s.status)
	}
	return changed
}

// notify must be called with s.mu held.
func (s *Store) notify(st Status) {
	for _, w := range s.watchers {
		select {
		case w <- st:
		default:
		}
	}
}

// Status returns the current state. An authenticated session found past its
// expiry is dropped and watchers see Anonymous.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	return s.status
}

// Current returns a copy of the active session.
func (s *Store) Current() (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	if s.status != Authenticated {
		return Session{}, false
	}
	return *s.current, true
}

// expireLocked must be called with s.mu held.
func (s *Store) expireLocked() {
	if s.status != Authenticated || !s.current.Expired(s.now()) {
		return
	}
	s.current = nil
	s.status = Anonymous
	s.notify(Anonymous)
}

// Token returns the bearer token of the active session, or "".
func (s *Store) Token() string {
	cur, ok := s.Current()
	if !ok {
		return ""
	}
	return cur.Token
}

// Watch returns a channel that receives the new Status after every state
// change. Slow readers miss intermediate states.
func (s *Store) Watch() <-chan Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Status, 4)
	s.watchers = append(s.watchers, ch)
	return ch
}
