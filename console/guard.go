package console

import "context"

// ViewLogin is the public view unauthenticated viewers are sent to.
const ViewLogin = "login"

// Loader is a view's data fetch.
type Loader interface {
	Load(ctx context.Context) error
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) error

func (f LoaderFunc) Load(ctx context.Context) error { return f(ctx) }

// Navigator performs redirects for the presentation shell.
type Navigator interface {
	Redirect(view string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(view string)

func (f NavigatorFunc) Redirect(view string) { f(view) }

// Outcome of mounting a protected view.
type Outcome int

const (
	Waiting Outcome = iota
	Redirected
	Ready
)

func (o Outcome) String() string {
	switch o {
	case Redirected:
		return "redirected"
	case Ready:
		return "ready"
	default:
		return "waiting"
	}
}

// Guard protects views that need an authenticated session.
type Guard struct {
	session *Session
	nav     Navigator
	log     *Logger
}

func NewGuard(s *Session, nav Navigator, log *Logger) *Guard {
	return &Guard{session: s, nav: nav, log: log}
}

// Mount is called when a protected view appears. While the session is still
// loading nothing is fetched; an unauthenticated viewer is redirected to the
// login view; otherwise the view's loader runs and its error is returned.
func (g *Guard) Mount(ctx context.Context, l Loader) (Outcome, error) {
	switch g.session.State() {
	case StateLoading:
		return Waiting, nil
	case StateUnauthenticated:
		g.log.Debugf("guard: redirecting to %s", ViewLogin)
		g.nav.Redirect(ViewLogin)
		return Redirected, nil
	}
	if l == nil {
		return Ready, nil
	}
	return Ready, l.Load(ctx)
}
