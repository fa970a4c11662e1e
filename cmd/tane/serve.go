// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zidariuandrei/tane/internal/logging"
	"github.com/zidariuandrei/tane/internal/metrics"
	"github.com/zidariuandrei/tane/internal/nursery"
	"github.com/zidariuandrei/tane/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the garden and run the background gardener",
	Long: `Serve starts the web garden and JSON API, and the nursery poller that
grows pending seeds in the background. Seeds left processing by a previous
run are put back to pending first. SIGINT or SIGTERM stops both; research in
progress is interrupted and its seed requeued.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :5173)")
	serveCmd.Flags().Bool("repair", false, "repair report integrity before serving")
	serveCmd.Flags().Int("max-in-flight", 0, "maximum concurrent research runs (default 4)")

	_ = viper.BindPFlag("web.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("nursery.repair_on_start", serveCmd.Flags().Lookup("repair"))
	_ = viper.BindPFlag("nursery.max_in_flight", serveCmd.Flags().Lookup("max-in-flight"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Nursery.RepairOnStart {
		summary, err := s.Repair(ctx)
		if err != nil {
			return err
		}
		logger.Info().
			Int("empty_reports", summary.EmptyReports).
			Int("missing_reports", summary.MissingReports).
			Int("dangling_reports", summary.DanglingReports).
			Msg("repair finished")
	}

	n, err := s.RecoverProcessing(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Info().Int("seeds", n).Msg("requeued seeds interrupted by a previous run")
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	reg := newRegistry(cfg)
	if len(reg.Available()) == 0 {
		logger.Warn().Msg("no provider API keys configured; seeds will fail until one is added")
	}

	g := newGardener(cfg, s, reg, m)
	poller := nursery.New(s, g, cfg.Nursery, logging.Component(logger, "nursery"), m)
	srv := web.New(cfg.Web, s, reg, web.Options{
		Logger:  logging.Component(logger, "web"),
		Metrics: m,
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(ctx)
	}()

	err = srv.Run(ctx)
	// A listener failure also stops the poller.
	cancel()
	wg.Wait()
	return err
}
