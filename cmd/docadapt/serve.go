package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docadapt/internal/api"
	"github.com/dgallion1/docadapt/internal/pipeline"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the docadapt HTTP API.

Runs are queued and processed one at a time by a single worker, so all
runs share the provider pacing. Requires DOCADAPT_API_KEY and provider
credentials.

Examples:
  docadapt serve
  docadapt serve --port 9000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := newLogger(os.Stdout, cfg.LogLevel, true)

		if servePort != "" {
			cfg.Port = servePort
		}
		if err := cfg.Validate(); err != nil {
			log.Error("invalid configuration", "error", err)
			return err
		}

		adapter, release, err := newAdapter(cfg, "", log)
		if err != nil {
			return err
		}
		defer release()

		segmenter, err := newSegmenter(cfg)
		if err != nil {
			return err
		}
		fetcher := newFetcher(cfg, log)
		defer fetcher.Close()

		workerCtx, cancel := context.WithCancel(context.Background())
		defer cancel()
		orch := pipeline.NewOrchestrator(pipeline.OrchestratorConfig{
			Batch:        batchConfig(cfg),
			MaxQueueSize: cfg.MaxQueueSize,
			RunTTL:       cfg.RunTTL,
		}, adapter.Adapt, log)
		orch.Start(workerCtx)

		srv := api.NewServer(api.Deps{
			Orchestrator: orch,
			Adapter:      adapter,
			Segmenter:    segmenter,
			Letters:      fetcher,
		}, log, cfg)

		httpServer := &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      srv,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		// Graceful shutdown.
		go func() {
			<-ctx.Done()
			log.Info("shutting down...")

			orch.Stop()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			httpServer.Shutdown(shutdownCtx)
		}()

		log.Info("starting docadapt",
			"port", cfg.Port,
			"provider", cfg.ProviderKind,
			"model", adapter.Model(),
			"profile", adapter.Profile().Name,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "port to listen on (default from PORT)")
}
