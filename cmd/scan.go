package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ghostscan/internal/auditor"
	"ghostscan/internal/config"
	"ghostscan/internal/ghost"
	"ghostscan/internal/pipeline"
	"ghostscan/internal/scout"
	"ghostscan/pkg/domain"
	"ghostscan/pkg/logger"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// scanCommand constructs the 'scan' subcommand that runs one scan in the
// foreground, without the job queue or database, and prints the report as
// JSON. Meant for trying out source and scoring configuration.
func scanCommand(cfg *config.Config) *cobra.Command {
	var sources []string

	cmd := &cobra.Command{
		Use:   "scan <email>",
		Short: "Runs a single scan in the foreground and prints the report",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

			token, err := domain.NewIdentityToken(args[0])
			if err != nil {
				logger.Fatal(ctx, "invalid identity token", zap.Error(err))
			}

			registry := getSources(ctx, cfg)

			pl := pipeline.New(registry,
				scout.New(registry, scout.Options{
					ConcurrencyLimit: cfg.Scout.ConcurrencyLimit,
					PerSourceTimeout: cfg.Scout.PerSourceTimeout,
				}, nil),
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
				ghost.New(getRecipients(), ghost.Options{
					SeverityThreshold: cfg.Ghost.SeverityThreshold,
					RequesterName:     cfg.Ghost.RequesterName,
					RequesterEmail:    cfg.Ghost.RequesterEmail,
				}),
				nil)

			onStatus := func(ctx context.Context, status domain.ScanStatus, progress int) error {
				logger.Info(ctx, "scan progressing",
					zap.String("status", string(status)),
					zap.Int("progress", progress))

				return nil
			}

			result, err := pl.Run(ctx,
				domain.ScanID(uuid.New()),
				token,
				pipeline.RunOptions{Sources: sources},
				onStatus)
			if err != nil {
				logger.Fatal(ctx, "scan failed", zap.Error(err))
			}

			out, err := json.MarshalIndent(result.Report, "", "  ")
			if err != nil {
				logger.Fatal(ctx, "could not render report", zap.Error(err))
			}
			fmt.Fprintln(os.Stdout, string(out))

			for _, notice := range result.Notices {
				logger.Info(ctx, "drafted takedown notice",
					zap.String("source", notice.Source),
					zap.String("recipient", notice.Recipient),
					zap.String("legalBasis", string(notice.LegalBasis)))
			}
		},
	}

	cmd.Flags().StringSliceVar(&sources, "sources", nil,
		"restrict the scan to these source names")

	return cmd
}
