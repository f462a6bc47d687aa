package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/keydash/internal/config"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or edit the settings file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective config",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Fprintf(a.out, "# %s\n", a.configPath)
			return a.printJSON(a.cfg)
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if _, err := os.Stat(a.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", a.configPath)
			}
			if err := config.SaveTo(a.configPath, config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Wrote %s\n", a.configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one setting",
		Long: "Keys: listen, origins (comma separated), db, timeout (seconds), lookback (days), " +
			"delay (milliseconds), log-level, log-format, base-url.<provider>.",
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			apply, err := setter(args[0], args[1])
			if err != nil {
				return err
			}
			if _, err := config.UpdateTo(a.configPath, apply); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Set %s in %s\n", args[0], a.configPath)
			return nil
		},
	})
	return cmd
}

// setter validates one key/value pair and returns the edit to apply.
func setter(key, value string) (func(*config.Config), error) {
	value = strings.TrimSpace(value)
	positive := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("%s must be a positive integer", key)
		}
		return n, nil
	}

	switch key {
	case "listen":
		return func(c *config.Config) { c.Server.Listen = value }, nil
	case "origins":
		origins := strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ' ' })
		return func(c *config.Config) { c.Server.AllowedOrigins = origins }, nil
	case "db":
		return func(c *config.Config) { c.Database.Path = value }, nil
	case "timeout":
		n, err := positive()
		return func(c *config.Config) { c.Probe.TimeoutSeconds = n }, err
	case "lookback":
		n, err := positive()
		return func(c *config.Config) { c.Probe.LookbackDays = n }, err
	case "delay":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("delay must be a non-negative integer")
		}
		return func(c *config.Config) { c.Probe.DelayMillis = n }, nil
	case "log-level":
		return func(c *config.Config) { c.Log.Level = value }, nil
	case "log-format":
		if value != "text" && value != "json" {
			return nil, fmt.Errorf("log-format must be text or json")
		}
		return func(c *config.Config) { c.Log.Format = value }, nil
	}

	if provider, ok := strings.CutPrefix(key, "base-url."); ok && provider != "" {
		return func(c *config.Config) {
			if c.Probe.BaseURLs == nil {
				c.Probe.BaseURLs = map[string]string{}
			}
			if value == "" {
				delete(c.Probe.BaseURLs, provider)
				return
			}
			c.Probe.BaseURLs[provider] = value
		}, nil
	}
	return nil, fmt.Errorf("unknown setting %q", key)
}
