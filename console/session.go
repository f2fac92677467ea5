package console

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// AuthState is the session lifecycle.
type AuthState int

const (
	StateLoading AuthState = iota
	StateUnauthenticated
	StateAuthenticated
)

func (s AuthState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "loading"
	}
}

// SessionEvent is delivered to subscribers on every state change.
type SessionEvent struct {
	State    AuthState
	Redirect bool // the viewer should be sent to the login view
	Forced   bool // the API rejected the credential
}

// Session owns the bearer token. It is the only writer of authentication
// state; everything else reads it or subscribes to it.
type Session struct {
	mu      sync.RWMutex
	state   AuthState
	token   string
	profile *Profile
	storage TokenStorage
	log     *Logger
	now     func() time.Time

	subMu  sync.Mutex
	subs   map[int]func(SessionEvent)
	nextID int
}

// NewSession starts in StateLoading; call Initialize once.
func NewSession(storage TokenStorage, log *Logger) *Session {
	return &Session{
		state:   StateLoading,
		storage: storage,
		log:     log,
		now:     time.Now,
		subs:    make(map[int]func(SessionEvent)),
	}
}

// Subscribe registers fn for session events and returns a function that
// removes it. fn runs synchronously on the goroutine that changed the state.
func (s *Session) Subscribe(fn func(SessionEvent)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Session) publish(ev SessionEvent) {
	s.subMu.Lock()
	fns := make([]func(SessionEvent), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (s *Session) State() AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) Loading() bool       { return s.State() == StateLoading }
func (s *Session) Authenticated() bool { return s.State() == StateAuthenticated }

// Token returns the bearer token when authenticated.
func (s *Session) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateAuthenticated {
		return "", false
	}
	return s.token, true
}

// Profile returns the administrator returned by the last Authenticate, if any.
func (s *Session) Profile() *Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

func (s *Session) setProfile(p *Profile) {
	s.mu.Lock()
	s.profile = p
	s.mu.Unlock()
}

// Initialize resolves the Loading state from durable storage. When no usable
// token is found and requiresAuth is set, a redirect is signalled.
func (s *Session) Initialize(ctx context.Context, requiresAuth bool) error {
	s.mu.Lock()
	if s.state != StateLoading {
		s.mu.Unlock()
		return fmt.Errorf("%w: initialize from %s", ErrInvalidTransition, s.state)
	}

	token, loadErr := s.storage.LoadToken(ctx)
	if loadErr == nil && token != "" && tokenExpired(token, s.now()) {
		s.log.Infof("stored token expired, discarding")
		if err := s.storage.ClearToken(ctx); err != nil {
			s.log.Warnf("clear expired token: %v", err)
		}
		token = ""
	}

	if loadErr != nil || token == "" {
		s.state = StateUnauthenticated
		s.token = ""
	} else {
		s.state = StateAuthenticated
		s.token = token
	}
	state := s.state
	s.mu.Unlock()

	if loadErr != nil {
		s.log.Errorf("session initialize: %v", loadErr)
	}
	s.publish(SessionEvent{State: state, Redirect: state == StateUnauthenticated && requiresAuth})
	if loadErr != nil {
		return fmt.Errorf("initialize session: %w", loadErr)
	}
	return nil
}

// Login persists token and marks the session authenticated. Every API call
// made after Login returns carries the token.
func (s *Session) Login(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	s.mu.Lock()
	if s.state != StateUnauthenticated {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: login from %s", ErrInvalidTransition, state)
	}
	if err := s.storage.SaveToken(ctx, token); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persist token: %w", err)
	}
	s.token = token
	s.state = StateAuthenticated
	s.mu.Unlock()

	s.log.Infof("session authenticated")
	s.publish(SessionEvent{State: StateAuthenticated})
	return nil
}

// Logout is the user-initiated end of the session.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateAuthenticated {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: logout from %s", ErrInvalidTransition, state)
	}
	err := s.clearLocked(ctx)
	s.mu.Unlock()

	s.log.Infof("session logged out")
	s.publish(SessionEvent{State: StateUnauthenticated, Redirect: true})
	return err
}

// ForceLogout ends the session after the API rejected the credential. It is
// a no-op unless the session is authenticated, so concurrent 401s collapse
// into a single transition.
func (s *Session) ForceLogout(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateAuthenticated {
		s.mu.Unlock()
		return nil
	}
	err := s.clearLocked(ctx)
	s.mu.Unlock()

	s.log.Warnf("session invalidated by the API")
	s.publish(SessionEvent{State: StateUnauthenticated, Redirect: true, Forced: true})
	return err
}

// clearLocked drops the credential. The in-memory state always moves to
// unauthenticated even if the storage delete fails.
func (s *Session) clearLocked(ctx context.Context) error {
	s.token = ""
	s.profile = nil
	s.state = StateUnauthenticated
	if err := s.storage.ClearToken(ctx); err != nil {
		s.log.Errorf("clear token: %v", err)
		return fmt.Errorf("erase token: %w", err)
	}
	return nil
}

// Authenticator exchanges credentials for a token; *Client implements it.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*LoginResponse, error)
}

// Authenticate posts the credentials and starts the session with the
// returned token. A session that is already authenticated is rejected.
func (s *Session) Authenticate(ctx context.Context, auth Authenticator, username, password string) error {
	if st := s.State(); st != StateUnauthenticated {
		return fmt.Errorf("%w: login from %s", ErrInvalidTransition, st)
	}
	resp, err := auth.Login(ctx, username, password)
	if err != nil {
		s.log.Warnf("login for %q rejected: %v", username, err)
		return err
	}
	if err := s.Login(ctx, resp.Token); err != nil {
		return err
	}
	p := resp.User
	s.setProfile(&p)
	return nil
}
