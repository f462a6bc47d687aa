package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/keydash/internal/classify"
	"github.com/janekbaraniewski/keydash/internal/core"
	"github.com/janekbaraniewski/keydash/internal/render"
	"github.com/janekbaraniewski/keydash/internal/usage"
)

func newClassifyCommand(a *app) *cobra.Command {
	var envVar string

	cmd := &cobra.Command{
		Use:   "classify [key|-]",
		Short: "Recognize which provider a key belongs to",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := readSecret(cmd, args, envVar)
			if err != nil {
				return err
			}
			c, rule := classify.Explain(secret)
			probeable := a.probes().Supports(c.Provider)
			if a.jsonOut {
				return a.printJSON(struct {
					core.Classification
					Rule      string `json:"rule"`
					MaskedKey string `json:"key"`
					Probeable bool   `json:"probeable"`
				}{c, rule, core.MaskSecret(secret), probeable})
			}
			return render.Classification(a.out, core.MaskSecret(secret), c, rule, probeable)
		},
	}

	cmd.Flags().StringVar(&envVar, "env", "", "read the key from this environment variable")
	return cmd
}

// resolveProvider uses the flag when given and the classifier otherwise.
func resolveProvider(flag, secret string) core.Provider {
	if flag != "" {
		return core.ParseProvider(flag)
	}
	return classify.Classify(secret).Provider
}

func newProbeCommand(a *app) *cobra.Command {
	var (
		envVar   string
		provider string
		days     int
	)

	cmd := &cobra.Command{
		Use:   "probe [key|-]",
		Short: "Fetch usage data for a key without storing it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := readSecret(cmd, args, envVar)
			if err != nil {
				return err
			}
			if days <= 0 {
				days = a.cfg.Probe.LookbackDays
			}
			res := a.probes().Probe(cmd.Context(), secret, resolveProvider(provider, secret), days)
			return a.printResult(res)
		},
	}

	cmd.Flags().StringVar(&envVar, "env", "", "read the key from this environment variable")
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "provider tag (default: classify the key)")
	cmd.Flags().IntVarP(&days, "days", "d", 0, "lookback window in days (default from config)")
	return cmd
}

func newTestCommand(a *app) *cobra.Command {
	var (
		envVar   string
		provider string
		keyID    int64
	)

	cmd := &cobra.Command{
		Use:   "test [key|-]",
		Short: "Check that a key works with one cheap authenticated call",
		Long:  "Check a key given on the command line, from the environment, or stored in the database (--id).",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var secret string
			var p core.Provider
			if keyID > 0 {
				st, err := a.openStore(cmd)
				if err != nil {
					return err
				}
				key, err := st.KeyWithSecret(cmd.Context(), keyID)
				if err != nil {
					return err
				}
				secret, p = key.Secret, key.Provider
			} else {
				s, err := readSecret(cmd, args, envVar)
				if err != nil {
					return err
				}
				secret, p = s, resolveProvider(provider, s)
			}
			res := a.probes().Check(cmd.Context(), secret, p)
			if err := a.printResult(res); err != nil {
				return err
			}
			if res.Status.IsFailure() {
				return fmt.Errorf("key check failed: %s", res.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&envVar, "env", "", "read the key from this environment variable")
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "provider tag (default: classify the key)")
	cmd.Flags().Int64Var(&keyID, "id", 0, "test a stored key by id")
	return cmd
}

func newProvidersCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List providers that can be probed",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			infos := a.probes().Providers()
			if a.jsonOut {
				return a.printJSON(infos)
			}
			return render.Providers(a.out, infos)
		},
	}
}

func newUsageCommand(a *app) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Probe every stored key and print the usage rollup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			if days <= 0 {
				days = a.cfg.Probe.LookbackDays
			}
			rollup := usage.NewRollup(st, a.probes(),
				usage.WithDelay(a.cfg.Probe.Delay()),
				usage.WithLogger(a.logger),
			)
			report, err := rollup.Run(cmd.Context(), days)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(report)
			}
			return render.Usage(a.out, report)
		},
	}

	cmd.Flags().IntVarP(&days, "days", "d", 0, "lookback window in days (default from config)")
	return cmd
}

func (a *app) printResult(res core.ProbeResult) error {
	if a.jsonOut {
		return a.printJSON(res)
	}
	return render.ProbeResult(a.out, res)
}
