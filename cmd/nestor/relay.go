package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"nestor/internal/domain"
	"nestor/internal/metrics"
	"nestor/internal/outbox"
	"nestor/internal/relay"
)

func relayCmd() *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run the local response relay",
		Long:  "Serves POST relay.path (default /teams/{teamID}/responses) on the configured address and delivers each request as a response. Press Ctrl+C to stop.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cleanup, err := loadConfig()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			rc := relay.Config{
				Addr:    net.JoinHostPort(cfg.Relay.Host, strconv.Itoa(cfg.Relay.Port)),
				Path:    cfg.Relay.Path,
				Secret:  cfg.Relay.Secret,
				Debug:   debug || cfg.Robot.DebugMode,
				Metrics: metrics.NewDeliveryMetrics(reg),
				Logger:  logger,
			}
			if cfg.Metrics.Enabled {
				rc.Gatherer = reg
				rc.MetricsPath = cfg.Metrics.Path
			}
			if rc.Debug {
				store, err := outbox.NewStore(cfg.Outbox.DBPath, logger)
				if err != nil {
					return err
				}
				defer store.Close()
				rc.SinkForTeam = func(team string) domain.Sink { return store.ForTeam(team) }
			} else {
				client, err := newAPIClient(cfg)
				if err != nil {
					return err
				}
				rc.Poster = client
			}
			if rc.Secret == "" {
				logger.Warn("relay secret not set; requests are not authenticated")
			}

			if err := relay.New(rc).Start(ctx); err != nil {
				return fmt.Errorf("relay: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "buffer into the local outbox instead of posting")
	return cmd
}
