package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "keydash",
		Short:         "keydash keeps an inventory of AI and search API keys and reports their usage.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return a.close()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default $KEYDASH_CONFIG or ~/.config/keydash/settings.json)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "database file (overrides database.path)")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print JSON instead of tables")

	root.AddCommand(
		newServeCommand(a),
		newClassifyCommand(a),
		newProbeCommand(a),
		newTestCommand(a),
		newProvidersCommand(a),
		newAccountsCommand(a),
		newKeysCommand(a),
		newUsageCommand(a),
		newConfigCommand(a),
		newVersionCommand(a),
	)
	return root
}
