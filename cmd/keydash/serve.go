package main

import (
	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/keydash/internal/api"
	"github.com/janekbaraniewski/keydash/internal/config"
	"github.com/janekbaraniewski/keydash/internal/probe"
)

func newServeCommand(a *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API",
		Long:  "Serve the JSON API. Probe settings in the config file are reloaded while running.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			if listen == "" {
				listen = a.cfg.Server.Listen
			}

			probes := probe.NewHolder(newProbeService(a.cfg, a.logger))
			srv := api.NewServer(api.Options{
				Store:          st,
				Probes:         probes,
				Logger:         a.logger,
				AllowedOrigins: a.cfg.Server.AllowedOrigins,
				LookbackDays:   a.cfg.Probe.LookbackDays,
				RollupDelay:    a.cfg.Probe.Delay(),
			})

			ctx := cmd.Context()
			err = config.Watch(ctx, a.configPath, a.logger, func(cfg config.Config) {
				probes.Store(newProbeService(cfg, a.logger))
				srv.SetRollup(cfg.Probe.LookbackDays, cfg.Probe.Delay())
			})
			if err != nil {
				a.logger.Warn("config reload disabled", "event", "config_watch", "error", err)
			}

			a.logger.Info("keydash starting", "event", "startup",
				"db", a.cfg.Database.Path, "sealed", st.Sealed(), "probe_timeout", probes.Load().Timeout())
			return srv.Run(ctx, listen)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (default from config)")
	return cmd
}
