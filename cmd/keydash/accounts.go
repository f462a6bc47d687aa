package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/keydash/internal/render"
	"github.com/janekbaraniewski/keydash/internal/store"
)

func newAccountsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account", "acct"},
		Short:   "Manage accounts that group keys",
	}

	cmd.AddCommand(newAccountsListCommand(a))
	cmd.AddCommand(newAccountsAddCommand(a))
	cmd.AddCommand(newAccountsUpdateCommand(a))
	cmd.AddCommand(newAccountsDeleteCommand(a))
	return cmd
}

func newAccountsListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List accounts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			accounts, err := st.ListAccounts(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(accounts)
			}
			return render.Accounts(a.out, accounts)
		},
	}
}

func accountFlags(cmd *cobra.Command, in *store.AccountInput) {
	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	cmd.Flags().StringVar(&in.OrganizationName, "org", "", "organization name")
}

func newAccountsAddCommand(a *app) *cobra.Command {
	var in store.AccountInput

	cmd := &cobra.Command{
		Use:   "add <email>",
		Short: "Add an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			in.Email = args[0]
			account, err := st.AddAccount(cmd.Context(), in)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(account)
			}
			fmt.Fprintf(a.out, "Added account %d (%s)\n", account.ID, account.Email)
			return nil
		},
	}
	accountFlags(cmd, &in)
	return cmd
}

func newAccountsUpdateCommand(a *app) *cobra.Command {
	var (
		in    store.AccountInput
		email string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an account; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			st, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			current, err := st.GetAccount(cmd.Context(), id)
			if err != nil {
				return err
			}
			next := store.AccountInput{
				Email:            current.Email,
				Name:             current.Name,
				OrganizationName: current.OrganizationName,
			}
			if cmd.Flags().Changed("email") {
				next.Email = email
			}
			if cmd.Flags().Changed("name") {
				next.Name = in.Name
			}
			if cmd.Flags().Changed("org") {
				next.OrganizationName = in.OrganizationName
			}
			account, err := st.UpdateAccount(cmd.Context(), id, next)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(account)
			}
			fmt.Fprintf(a.out, "Updated account %d (%s)\n", account.ID, account.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	accountFlags(cmd, &in)
	return cmd
}

func newAccountsDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete an account and all of its keys",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			st, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			if err := st.DeleteAccount(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted account %d and its keys\n", id)
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
