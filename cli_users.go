package main

import (
	"context"
	"errors"
	"fmt"

	"library-admin/console"

	"github.com/spf13/cobra"
)

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "users",
		Aliases: []string{"user"},
		Short:   "Manage library users",
	}
	cmd.AddCommand(newUsersListCmd(a), newUsersAddCmd(a), newUsersEditCmd(a), newUsersDeleteCmd(a))
	return cmd
}

func newUsersListCmd(a *app) *cobra.Command {
	var o listOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users (sort: id, name, email, created_at, updated_at)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listUsers(cmd.Context(), o)
		},
	}
	o.bind(cmd)
	return cmd
}

func (a *app) listUsers(ctx context.Context, o listOptions) error {
	p, err := showList(ctx, a, a.users, o)
	if err != nil {
		return err
	}
	printUsers(a.out, p)
	return nil
}

func newUsersAddCmd(a *app) *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a user; the password is always prompted for",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.addUser(cmd.Context(), name, email)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	return cmd
}

func (a *app) addUser(ctx context.Context, name, email string) error {
	if err := a.mount(ctx, nil); err != nil {
		return err
	}
	var ok bool
	if name == "" {
		if name, ok = a.ask("Name: "); !ok {
			return nil
		}
	}
	if email == "" {
		if email, ok = a.ask("Email: "); !ok {
			return nil
		}
	}
	if name == "" || email == "" {
		return errors.New("name and email are required")
	}
	password, err := a.readPassword(fmt.Sprintf("Enter password for %s: ", name))
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return errors.New("password cannot be empty")
	}

	a.users.OpenCreate()
	a.users.SetForm(console.UserForm{Name: name, Email: email, Password: password})
	return shown(a.users.Submit(ctx))
}

func newUsersEditCmd(a *app) *cobra.Command {
	var (
		name, email string
		resetPass   bool
	)
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Edit a user; prompts for each field when no flags are given",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var nameP, emailP *string
			if cmd.Flags().Changed("name") {
				nameP = &name
			}
			if cmd.Flags().Changed("email") {
				emailP = &email
			}
			return a.editUser(cmd.Context(), id, nameP, emailP, resetPass)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().BoolVar(&resetPass, "reset-password", false, "prompt for a new password")
	return cmd
}

// editUser changes the given fields. With neither name nor email set, every
// field is prompted for; an empty password answer keeps the current one.
func (a *app) editUser(ctx context.Context, id int64, name, email *string, resetPass bool) error {
	if err := a.mount(ctx, a.users); err != nil {
		return err
	}
	if err := a.users.OpenEdit(id); err != nil {
		return fmt.Errorf("user with ID %d not found", id)
	}
	f := a.users.Form().Values

	interactive := name == nil && email == nil && !resetPass
	var ok bool
	switch {
	case interactive:
		if f.Name, ok = a.askDefault("Name", f.Name); !ok {
			a.users.CloseForm()
			return nil
		}
		if f.Email, ok = a.askDefault("Email", f.Email); !ok {
			a.users.CloseForm()
			return nil
		}
	default:
		if name != nil {
			f.Name = *name
		}
		if email != nil {
			f.Email = *email
		}
	}
	if interactive || resetPass {
		prompt := fmt.Sprintf("Enter new password for %s (leave blank to keep): ", f.Name)
		if resetPass {
			prompt = fmt.Sprintf("Enter new password for %s (ID: %d): ", f.Name, id)
		}
		password, err := a.readPassword(prompt)
		if err != nil {
			a.users.CloseForm()
			return fmt.Errorf("failed to read password: %w", err)
		}
		if resetPass && password == "" {
			a.users.CloseForm()
			return errors.New("password cannot be empty")
		}
		f.Password = password
	}
	a.users.SetForm(f)
	return shown(a.users.Submit(ctx))
}

func newUsersDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.deleteUser(cmd.Context(), id)
		},
	}
}

func (a *app) deleteUser(ctx context.Context, id int64) error {
	if err := a.mount(ctx, nil); err != nil {
		return err
	}
	_, err := a.users.Remove(ctx, id)
	return shown(err)
}
