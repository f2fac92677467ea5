package console

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestSession(t *testing.T, store *memStorage) (*Session, *eventLog) {
	t.Helper()
	s := NewSession(store, NopLogger())
	events := &eventLog{}
	s.Subscribe(events.add)
	return s, events
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("server-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func TestInitializeResolvesLoading(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name         string
		stored       string
		requiresAuth bool
		wantState    AuthState
		wantRedirect bool
	}{
		{"no token on protected view", "", true, StateUnauthenticated, true},
		{"no token on public view", "", false, StateUnauthenticated, false},
		{"opaque token", "abc|123", true, StateAuthenticated, false},
		{"unexpired jwt", signedToken(t, time.Now().Add(time.Hour)), true, StateAuthenticated, false},
		{"expired jwt", signedToken(t, time.Now().Add(-time.Hour)), true, StateUnauthenticated, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memStorage{token: tt.stored}
			s, events := newTestSession(t, store)
			if !s.Loading() {
				t.Fatalf("new session should be loading, got %s", s.State())
			}
			if err := s.Initialize(ctx, tt.requiresAuth); err != nil {
				t.Fatalf("initialize: %v", err)
			}
			if got := s.State(); got != tt.wantState {
				t.Fatalf("state = %s, want %s", got, tt.wantState)
			}
			evs := events.all()
			if len(evs) != 1 || evs[0].Redirect != tt.wantRedirect {
				t.Fatalf("events = %+v, want one with redirect=%t", evs, tt.wantRedirect)
			}
			_, hasToken := s.Token()
			if hasToken != (tt.wantState == StateAuthenticated) {
				t.Fatalf("token present = %t in state %s", hasToken, tt.wantState)
			}
		})
	}
}

func TestInitializeDiscardsExpiredToken(t *testing.T) {
	store := &memStorage{token: signedToken(t, time.Now().Add(-time.Minute))}
	s, _ := newTestSession(t, store)
	if err := s.Initialize(context.Background(), true); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if store.stored() != "" {
		t.Fatalf("expired token left in storage")
	}
}

func TestInitializeStorageFailure(t *testing.T) {
	store := &memStorage{token: "abc", loadErr: errors.New("disk gone")}
	s, events := newTestSession(t, store)
	err := s.Initialize(context.Background(), true)
	if err == nil {
		t.Fatalf("expected error")
	}
	if s.State() != StateUnauthenticated {
		t.Fatalf("state = %s, want unauthenticated", s.State())
	}
	if evs := events.all(); len(evs) != 1 || !evs[0].Redirect {
		t.Fatalf("want redirect event, got %+v", evs)
	}
}

func TestInitializeOnlyOnce(t *testing.T) {
	s, _ := newTestSession(t, &memStorage{})
	ctx := context.Background()
	if err := s.Initialize(ctx, false); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := s.Initialize(ctx, false); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second initialize: got %v, want ErrInvalidTransition", err)
	}
}

func TestLoginLogout(t *testing.T) {
	ctx := context.Background()
	store := &memStorage{}
	s, events := newTestSession(t, store)

	if err := s.Login(ctx, "tok"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("login while loading: got %v", err)
	}
	if err := s.Initialize(ctx, false); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := s.Login(ctx, "   "); !errors.Is(err, ErrEmptyToken) {
		t.Fatalf("empty token: got %v", err)
	}
	if err := s.Login(ctx, " tok "); err != nil {
		t.Fatalf("login: %v", err)
	}
	if tok, ok := s.Token(); !ok || tok != "tok" {
		t.Fatalf("token = %q,%t", tok, ok)
	}
	if store.stored() != "tok" {
		t.Fatalf("token not persisted: %q", store.stored())
	}
	if err := s.Login(ctx, "other"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("login while authenticated: got %v", err)
	}

	if err := s.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if s.Authenticated() || store.stored() != "" {
		t.Fatalf("logout left state %s, stored %q", s.State(), store.stored())
	}
	if err := s.Logout(ctx); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second logout: got %v", err)
	}

	evs := events.all()
	last := evs[len(evs)-1]
	if last.State != StateUnauthenticated || !last.Redirect || last.Forced {
		t.Fatalf("logout event = %+v", last)
	}
}

func TestLoginStorageFailureStaysUnauthenticated(t *testing.T) {
	ctx := context.Background()
	store := &memStorage{saveErr: errors.New("read-only")}
	s, _ := newTestSession(t, store)
	_ = s.Initialize(ctx, false)
	if err := s.Login(ctx, "tok"); err == nil {
		t.Fatalf("expected error")
	}
	if s.Authenticated() {
		t.Fatalf("session authenticated without a persisted token")
	}
}

func TestForceLogout(t *testing.T) {
	ctx := context.Background()
	store := &memStorage{token: "tok"}
	s, events := newTestSession(t, store)
	_ = s.Initialize(ctx, true)

	if err := s.ForceLogout(ctx); err != nil {
		t.Fatalf("force logout: %v", err)
	}
	if err := s.ForceLogout(ctx); err != nil {
		t.Fatalf("second force logout: %v", err)
	}
	evs := events.all()
	if len(evs) != 2 {
		t.Fatalf("want initialize + one forced event, got %+v", evs)
	}
	if !evs[1].Forced || !evs[1].Redirect {
		t.Fatalf("forced event = %+v", evs[1])
	}
	if store.clears != 1 {
		t.Fatalf("storage cleared %d times, want 1", store.clears)
	}
}

func TestClearFailureStillLogsOut(t *testing.T) {
	ctx := context.Background()
	store := &memStorage{token: "tok", clearErr: errors.New("locked")}
	s, _ := newTestSession(t, store)
	_ = s.Initialize(ctx, true)
	if err := s.Logout(ctx); err == nil {
		t.Fatalf("expected the storage error")
	}
	if s.Authenticated() {
		t.Fatalf("in-memory session must end even if storage fails")
	}
}

func TestSubscribeCancel(t *testing.T) {
	s := NewSession(&memStorage{}, NopLogger())
	n := 0
	cancel := s.Subscribe(func(SessionEvent) { n++ })
	_ = s.Initialize(context.Background(), false)
	cancel()
	_ = s.Login(context.Background(), "tok")
	if n != 1 {
		t.Fatalf("subscriber called %d times, want 1", n)
	}
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.session.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}

	err := f.session.Authenticate(ctx, f.client, "admin", "wrong")
	if !IsKind(err, KindUnauthorized) {
		t.Fatalf("bad password: got %v", err)
	}
	if f.session.Authenticated() {
		t.Fatalf("authenticated after rejected login")
	}

	if err := f.session.Authenticate(ctx, f.client, "admin", "secret"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if tok, _ := f.session.Token(); tok != f.api.token {
		t.Fatalf("token = %q", tok)
	}
	if p := f.session.Profile(); p == nil || p.Username != "admin" {
		t.Fatalf("profile = %+v", p)
	}
	if err := f.session.Authenticate(ctx, f.client, "admin", "secret"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("authenticate twice: got %v", err)
	}
}
