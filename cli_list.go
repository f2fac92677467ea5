package main

import (
	"context"

	"library-admin/console"

	"github.com/spf13/cobra"
)

// listOptions are the view controls every list command takes.
type listOptions struct {
	query string
	sort  string
	desc  bool
	page  int
}

func (o *listOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.query, "query", "q", "", "filter by substring, case-insensitive")
	cmd.Flags().StringVarP(&o.sort, "sort", "s", "", "sort field")
	cmd.Flags().BoolVar(&o.desc, "desc", false, "sort descending")
	cmd.Flags().IntVarP(&o.page, "page", "p", 1, "page number")
}

// apply sets the query, sort and page on l, in that order, since the first
// two return to page 1.
func apply[T, F any](l *console.List[T, F], o listOptions) error {
	l.SetQuery(o.query)
	if o.sort != "" {
		dir := console.Ascending
		if o.desc {
			dir = console.Descending
		}
		if err := l.SetSort(o.sort, dir); err != nil {
			return err
		}
	} else {
		l.ClearSort()
	}
	l.SetPage(o.page)
	return nil
}

// showList loads l behind the guard and applies o. A failed load that left
// an older collection in place still renders it while the session lasts.
func showList[T, F any](ctx context.Context, a *app, l *console.List[T, F], o listOptions) (console.Page[T], error) {
	if err := a.mount(ctx, l); err != nil && !a.renderable(l) {
		return console.Page[T]{}, err
	}
	if err := apply(l, o); err != nil {
		return console.Page[T]{}, err
	}
	return l.View(), nil
}

// steer applies one shell view command to l.
func steer[T, F any](l *console.List[T, F], cmd, arg string, page int) error {
	switch cmd {
	case "search":
		l.SetQuery(arg)
	case "sort":
		if arg == "" {
			l.ClearSort()
			return nil
		}
		return l.ToggleSort(arg)
	case "page":
		l.SetPage(page)
	case "next":
		l.NextPage()
	case "prev":
		l.PrevPage()
	}
	return nil
}
