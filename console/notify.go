package console

import "sync"

// Notifier surfaces one-line messages to the administrator.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Confirmer asks before destructive actions. A false answer abandons the
// action silently.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

var (
	AlwaysConfirm Confirmer = ConfirmFunc(func(string) bool { return true })
	NeverConfirm  Confirmer = ConfirmFunc(func(string) bool { return false })
)

type discardNotifier struct{}

func (discardNotifier) Success(string) {}
func (discardNotifier) Error(string)   {}

// DiscardNotifier drops every message.
var DiscardNotifier Notifier = discardNotifier{}

// Notice is one recorded notification.
type Notice struct {
	OK  bool
	Msg string
}

// RecordingNotifier keeps notifications in memory, in order.
type RecordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *RecordingNotifier) Success(msg string) { r.add(Notice{OK: true, Msg: msg}) }
func (r *RecordingNotifier) Error(msg string)   { r.add(Notice{OK: false, Msg: msg}) }

func (r *RecordingNotifier) add(n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

// Notices returns a copy of everything recorded so far.
func (r *RecordingNotifier) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Deps are the collaborators every controller shares.
type Deps struct {
	Notifier  Notifier
	Confirmer Confirmer
	Log       *Logger
	PageSize  int
}

func (d Deps) withDefaults() Deps {
	if d.Notifier == nil {
		d.Notifier = DiscardNotifier
	}
	if d.Confirmer == nil {
		d.Confirmer = NeverConfirm
	}
	if d.Log == nil {
		d.Log = NopLogger()
	}
	if d.PageSize < 1 {
		d.PageSize = defaultPageSize
	}
	return d
}
