package main

import (
	"context"
	"time"

	"library-admin/console"

	"github.com/spf13/cobra"
)

func newDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show headline figures and recent activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.dashboard(cmd.Context())
		},
	}
}

// dashboard renders even when some loads failed; the failed cards say so.
func (a *app) dashboard(ctx context.Context) error {
	outcome, _ := a.guard.Mount(ctx, a.dash)
	if outcome != console.Ready || !a.session.Authenticated() {
		return errShown
	}
	printDashboard(a.out, a.dash.Summary(time.Now()))
	return nil
}

func newReportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Show usage, growth and catalog activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.report(cmd.Context())
		},
	}
}

func (a *app) report(ctx context.Context) error {
	if err := a.mount(ctx, a.dash); err != nil {
		return err
	}
	r := console.BuildReport(a.txs.Items(), a.users.Items(), a.books.Items(), time.Now())
	printReport(a.out, r)
	return nil
}
