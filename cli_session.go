package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"library-admin/console"

	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:         "login",
		Short:       "Log in as an administrator",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{publicAnnotation: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.login(cmd.Context(), username)
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "administrator username")
	return cmd
}

// login replaces any current session with a fresh one.
func (a *app) login(ctx context.Context, username string) error {
	if username == "" {
		var ok bool
		if username, ok = a.ask("Username: "); !ok {
			return nil
		}
	}
	if username == "" {
		return errors.New("username cannot be empty")
	}
	password, err := a.readPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return errors.New("password cannot be empty")
	}

	if a.session.Authenticated() {
		if err := a.session.Logout(ctx); err != nil {
			a.log.Warnf("logout before login: %v", err)
		}
	}
	if err := a.session.Authenticate(ctx, a.client, username, password); err != nil {
		if console.IsKind(err, console.KindUnauthorized) {
			return errors.New("invalid username or password")
		}
		return errors.New(console.UserMessage(err))
	}
	name := username
	if p := a.session.Profile(); p != nil && p.Name != "" {
		name = p.Name
	}
	fmt.Fprintf(a.out, "Logged in as %s.\n", name)
	return nil
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "logout",
		Short:       "Forget the stored session",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{publicAnnotation: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.logout(cmd.Context())
		},
	}
}

func (a *app) logout(ctx context.Context) error {
	if !a.session.Authenticated() {
		fmt.Fprintln(a.out, "Not logged in.")
		return nil
	}
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in administrator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.whoami(cmd.Context())
		},
	}
}

func (a *app) whoami(ctx context.Context) error {
	var p *console.Profile
	outcome, err := a.guard.Mount(ctx, console.LoaderFunc(func(ctx context.Context) error {
		var err error
		p, err = a.client.Me(ctx)
		return err
	}))
	if outcome != console.Ready {
		return errShown
	}
	if err != nil {
		return errors.New(console.UserMessage(err))
	}
	var parts []string
	for _, s := range []string{p.Name, p.Username, p.Email} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	fmt.Fprintf(a.out, "Logged in as %s\n", strings.Join(parts, " / "))
	return nil
}
