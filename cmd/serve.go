package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"ghostscan/internal/api"
	"ghostscan/internal/api/handler/v1handler"
	"ghostscan/internal/auditor"
	"ghostscan/internal/config"
	"ghostscan/internal/ghost"
	"ghostscan/internal/pipeline"
	"ghostscan/internal/scans"
	"ghostscan/internal/scout"
	"ghostscan/internal/worker"
	"ghostscan/pkg/logger"
	"ghostscan/pkg/metrics"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// purgeInterval is how often expired scans are swept.
const purgeInterval = time.Hour

func setupServer(ctx context.Context, cfg *config.Config, svc scans.Scans) func(ctx context.Context) {
	server, err := api.NewServer(api.Deps{
		Deps: v1handler.Deps{Scans: svc},
	}, api.NewOptions(cfg))
	if err != nil {
		logger.Fatal(ctx, "could not create webserver", zap.Error(err))
	}

	go func() {
		logger.Info(ctx, "starting webserver...")
		if err := server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error(ctx, "could not start webserver", zap.Error(err))
			}
		}
	}()

	return func(ctx context.Context) {
		logger.Info(ctx, "stopping webserver...")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(ctx, "could not stop webserver", zap.Error(err))
		}
	}
}

// startPurgeLoop sweeps expired scans on a fixed interval until ctx is done.
func startPurgeLoop(ctx context.Context, svc scans.Scans) {
	go func() {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				purged, err := svc.PurgeExpired(ctx)
				if err != nil {
					logger.Error(ctx, "could not purge expired scans", zap.Error(err))

					continue
				}
				if purged > 0 {
					logger.Info(ctx, "purged expired scans", zap.Int64("count", purged))
				}
			}
		}
	}()
}

func serveCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts API server and background workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

			strg, closeStrg := getPostgres(ctx, cfg)
			defer closeStrg()

			registry := getSources(ctx, cfg)
			recipients := getRecipients()

			pipelineMetrics, err := metrics.NewPipeline()
			if err != nil {
				logger.Fatal(ctx, "could not create pipeline metrics", zap.Error(err))
			}

			pl := pipeline.New(registry,
				scout.New(registry, scout.Options{
					ConcurrencyLimit: cfg.Scout.ConcurrencyLimit,
					PerSourceTimeout: cfg.Scout.PerSourceTimeout,
				}, pipelineMetrics),
				auditor.New(auditor.Options{
					SimilarityThreshold: cfg.Auditor.SimilarityThreshold,
					MinSharedFields:     cfg.Auditor.MinSharedFields,
					Weights: auditor.Weights{
						Account:       cfg.Auditor.AccountWeight,
						BrokerListing: cfg.Auditor.BrokerListingWeight,
						LeakedRecord:  cfg.Auditor.LeakedRecordWeight,
					},
					RequiredCategories: requiredCategories(cfg),
				}),
				ghost.New(recipients, ghost.Options{
					SeverityThreshold: cfg.Ghost.SeverityThreshold,
					RequesterName:     cfg.Ghost.RequesterName,
					RequesterEmail:    cfg.Ghost.RequesterEmail,
				}),
				pipelineMetrics)

			riverClient, err := worker.Start(ctx, strg.Pool, strg, pl)
			if err != nil {
				logger.Fatal(ctx, "could not start background workers", zap.Error(err))
			}

			svc := scans.New(strg, registry, scans.NewOptions(cfg))

			stopWebserver := setupServer(ctx, cfg, svc)
			startPurgeLoop(ctx, svc)

			// wait for interrupt
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout)
			defer cancel()

			stopWebserver(shutdownCtx)

			logger.Info(ctx, "stopping background workers...")
			if err := riverClient.Stop(shutdownCtx); err != nil {
				logger.Error(ctx, "could not stop background workers", zap.Error(err))
			}
		},
	}

	return cmd
}
