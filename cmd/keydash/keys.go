package main

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/keydash/internal/core"
	"github.com/janekbaraniewski/keydash/internal/detect"
	"github.com/janekbaraniewski/keydash/internal/render"
	"github.com/janekbaraniewski/keydash/internal/store"
)

func newKeysCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "keys",
		Aliases: []string{"key"},
		Short:   "Manage stored API keys",
	}

	cmd.AddCommand(newKeysListCommand(a))
	cmd.AddCommand(newKeysAddCommand(a))
	cmd.AddCommand(newKeysUpdateCommand(a))
	cmd.AddCommand(newKeysDeleteCommand(a))
	cmd.AddCommand(newKeysRevealCommand(a))
	cmd.AddCommand(newKeysImportEnvCommand(a))
	return cmd
}

func newKeysListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored keys (masked)",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			keys, err := st.ListKeys(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(keys)
			}
			return render.Keys(a.out, keys)
		},
	}
}

func newKeysAddCommand(a *app) *cobra.Command {
	var (
		envVar    string
		accountID int64
		adminID   int64
		provider  string
		keyType   string
	)

	cmd := &cobra.Command{
		Use:   "add <name> [key|-]",
		Short: "Store a key under an account",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := readSecret(cmd, args[1:], envVar)
			if err != nil {
				return err
			}
			st, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			in := store.NewKey{
				Name:      args[0],
				Secret:    secret,
				AccountID: accountID,
				Provider:  lo.Ternary(provider != "", core.ParseProvider(provider), ""),
				KeyType:   core.KeyType(keyType),
			}
			if adminID > 0 {
				in.AdminKeyID = lo.ToPtr(adminID)
			}
			key, err := st.AddKey(cmd.Context(), in)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(key)
			}
			fmt.Fprintf(a.out, "Added key %d %q (%s/%s) %s\n", key.ID, key.Name, key.Provider, key.KeyType, key.MaskedKey)
			return nil
		},
	}

	cmd.Flags().StringVar(&envVar, "env", "", "read the key from this environment variable")
	cmd.Flags().Int64VarP(&accountID, "account", "a", 0, "account id")
	cmd.Flags().Int64Var(&adminID, "admin", 0, "link to this admin key id")
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "override the detected provider")
	cmd.Flags().StringVar(&keyType, "type", "", "key type when overriding the provider")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func newKeysUpdateCommand(a *app) *cobra.Command {
	var (
		name      string
		envVar    string
		accountID int64
		adminID   int64
		unlink    bool
	)

	cmd := &cobra.Command{
		Use:   "update <id> [key|-]",
		Short: "Rename, move, relink or replace a stored key",
		Long:  "Unset flags keep their current value. Pass a key argument, '-' or --env to replace the secret.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if unlink && adminID > 0 {
				return errors.New("--admin and --unlink are mutually exclusive")
			}
			st, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			current, err := st.GetKey(cmd.Context(), id)
			if err != nil {
				return err
			}

			upd := store.KeyUpdate{
				Name:       lo.Ternary(name != "", name, current.Name),
				AccountID:  accountID,
				AdminKeyID: current.AdminKeyID,
			}
			switch {
			case unlink:
				upd.AdminKeyID = nil
			case adminID > 0:
				upd.AdminKeyID = lo.ToPtr(adminID)
			}
			if len(args) > 1 || envVar != "" {
				if upd.Secret, err = readSecret(cmd, args[1:], envVar); err != nil {
					return err
				}
			}

			key, err := st.UpdateKey(cmd.Context(), id, upd)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(key)
			}
			fmt.Fprintf(a.out, "Updated key %d %q (%s/%s) %s\n", key.ID, key.Name, key.Provider, key.KeyType, key.MaskedKey)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&envVar, "env", "", "read the replacement key from this environment variable")
	cmd.Flags().Int64VarP(&accountID, "account", "a", 0, "move to this account id")
	cmd.Flags().Int64Var(&adminID, "admin", 0, "link to this admin key id")
	cmd.Flags().BoolVar(&unlink, "unlink", false, "remove the admin key link")
	return cmd
}

func newKeysDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a stored key",
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
			if err := st.DeleteKey(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted key %d\n", id)
			return nil
		},
	}
}

func newKeysRevealCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reveal <id>",
		Short: "Print the full secret of a stored key",
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
			secret, err := st.RevealKey(cmd.Context(), id)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(map[string]any{"id": id, "full_key": secret})
			}
			_, err = fmt.Fprintln(a.out, secret)
			return err
		},
	}
}

func newKeysImportEnvCommand(a *app) *cobra.Command {
	var (
		email  string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "import-env",
		Short: "Import API keys exported in the environment",
		Long:  "Scan well-known variables such as OPENAI_API_KEY and store each key under the given account, creating it if needed. Keys whose name already exists are skipped.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			found := detect.FromEnv(nil)
			if dryRun {
				for _, k := range found {
					fmt.Fprintf(a.out, "%s → %s (%s/%s) %s\n", k.EnvVar, k.Name,
						k.Classification.Provider, k.Classification.KeyType, k.Masked())
				}
				if len(found) == 0 {
					fmt.Fprintln(a.out, "No API keys found in the environment.")
				}
				return nil
			}

			st, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			account, err := st.AccountByEmail(cmd.Context(), email)
			if errors.Is(err, store.ErrNotFound) {
				account, err = st.AddAccount(cmd.Context(), store.AccountInput{Email: email, Name: "Environment"})
			}
			if err != nil {
				return err
			}

			result, err := detect.Import(cmd.Context(), st, account.ID, found, a.logger)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(result.Added)
			}
			fmt.Fprint(a.out, result.Summary())
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "account-email", "local@keydash", "account to store imported keys under")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only list what would be imported")
	return cmd
}
