package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"library-admin/console"

	"github.com/spf13/cobra"
)

// errShown marks an error the user has already been told about.
var errShown = errors.New("already reported")

func shown(err error) error {
	if err == nil || errors.Is(err, errShown) {
		return err
	}
	return fmt.Errorf("%w: %w", errShown, err)
}

// app is everything one invocation needs. It is built in the root
// command's PersistentPreRunE and torn down in PersistentPostRun.
type app struct {
	cfg   console.Config
	log   *console.Logger
	store console.TokenStorage

	session  *console.Session
	client   *console.Client
	books    *console.Books
	users    *console.Users
	txs      *console.Transactions
	workflow *console.Workflow
	guard    *console.Guard
	dash     *console.Dashboard

	in          *bufio.Scanner
	out         io.Writer
	yes         bool
	interactive bool
	unsubscribe func()
}

// publicAnnotation marks commands that run without a stored session.
const publicAnnotation = "public"

func newRootCmd() *cobra.Command {
	a := &app{}
	var (
		apiURL   string
		stateDir string
		debug    bool
	)

	root := &cobra.Command{
		Use:           "library-admin",
		Short:         "Administer a library: books, users, borrowing and returns",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := console.LoadConfig()
			if cmd.Flags().Changed("api") {
				cfg.APIURL = apiURL
			}
			if cmd.Flags().Changed("state-dir") {
				cfg.StateDir = stateDir
			}
			if debug {
				cfg.Debug = true
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			_, public := cmd.Annotations[publicAnnotation]
			return a.open(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout(), !public)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	root.PersistentFlags().StringVar(&apiURL, "api", "", "API base URL (overrides LIBADMIN_API_URL)")
	root.PersistentFlags().StringVar(&stateDir, "state-dir", "", "directory for the session and log (overrides LIBADMIN_STATE_DIR)")
	root.PersistentFlags().BoolVarP(&a.yes, "yes", "y", false, "answer yes to every confirmation")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "log requests at debug level")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newBooksCmd(a),
		newUsersCmd(a),
		newTransactionsCmd(a),
		newBorrowCmd(a),
		newReturnCmd(a),
		newDashboardCmd(a),
		newReportCmd(a),
		newShellCmd(a),
	)
	return root
}

// open wires the session, the HTTP adapter and the controllers.
func (a *app) open(ctx context.Context, cfg console.Config, in io.Reader, out io.Writer, requiresAuth bool) error {
	log, err := console.NewLogger(cfg.LogPath(), cfg.Debug)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	store, err := console.OpenTokenStorage(ctx, cfg)
	if err != nil {
		log.Close()
		return fmt.Errorf("open session storage: %w", err)
	}

	a.cfg, a.log, a.store = cfg, log, store
	a.in = bufio.NewScanner(in)
	a.out = &lockedWriter{w: out}

	a.session = console.NewSession(store, log)
	a.unsubscribe = a.session.Subscribe(func(ev console.SessionEvent) {
		if ev.Forced {
			fmt.Fprintln(a.out, "Your session is no longer valid. Please log in again.")
		}
	})
	a.client = console.NewClient(cfg.APIURL, cfg.HTTPTimeout, a.session, log)

	deps := console.Deps{
		Notifier:  terminalNotifier{w: a.out},
		Confirmer: console.ConfirmFunc(a.confirm),
		Log:       log,
		PageSize:  cfg.PageSize,
	}
	a.books = console.NewBooks(a.client, deps)
	a.users = console.NewUsers(a.client, deps)
	a.txs = console.NewTransactions(a.client, deps)
	a.workflow = console.NewWorkflow(a.client, a.txs, a.books, a.users, deps)
	a.dash = console.NewDashboard(a.books, a.users, a.txs)
	a.guard = console.NewGuard(a.session, console.NavigatorFunc(a.redirect), log)

	if err := a.session.Initialize(ctx, requiresAuth); err != nil {
		// The session falls back to unauthenticated; the guard handles the rest.
		fmt.Fprintf(a.out, "Warning: %v\n", err)
	}
	return nil
}

func (a *app) close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Errorf("close session storage: %v", err)
		}
	}
	if a.log != nil {
		a.log.Close()
	}
}

func (a *app) redirect(view string) {
	if view != console.ViewLogin {
		return
	}
	if a.interactive {
		fmt.Fprintln(a.out, "You are not logged in. Type 'login' first.")
		return
	}
	fmt.Fprintln(a.out, "You are not logged in. Run 'library-admin login' first.")
}

// mount runs l behind the route guard. It returns errShown when the viewer
// was redirected or the load failed; both have been reported already.
func (a *app) mount(ctx context.Context, l console.Loader) error {
	outcome, err := a.guard.Mount(ctx, l)
	if err != nil {
		return shown(err)
	}
	if outcome != console.Ready {
		return errShown
	}
	return nil
}

// renderable reports whether a list may be shown: it holds data and the
// session that loaded it is still live.
func (a *app) renderable(l interface{ Loaded() bool }) bool {
	return a.session.Authenticated() && l.Loaded()
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errShown) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
