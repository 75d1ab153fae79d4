// Package main provides the CLI entrypoint for the ghostscan service.
// It wires subcommands (serve, scan, migrate), loads configuration, and initializes logging.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"ghostscan/internal/config"
	"ghostscan/pkg/domain"
	"ghostscan/pkg/logger"
	"ghostscan/pkg/recipient"
	"ghostscan/pkg/source"
	"ghostscan/pkg/source/brokerdir"
	"ghostscan/pkg/source/gravatar"
	"ghostscan/pkg/source/hibp"
	"ghostscan/pkg/source/social"
	"ghostscan/pkg/storage/postgres"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// getPostgres creates a PostgreSQL client using configuration values and returns it
// along with a cleanup function to close the connection pool.
func getPostgres(ctx context.Context, cfg *config.Config) (*postgres.PgSQL, func()) {
	pgsql, err := postgres.New(ctx, postgres.Options{
		Username:           cfg.Database.Username,
		Password:           cfg.Database.Password,
		Host:               cfg.Database.Host,
		Port:               cfg.Database.Port,
		Database:           cfg.Database.DatabaseName,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime:    cfg.Database.ConnMaxIdleTime,
		MaxOpenConnections: cfg.Database.MaxOpenConnections,
		MaxIdleConnections: cfg.Database.MaxIdleConnections,
		SslMode:            cfg.Database.SslMode,
	})
	if err != nil {
		logger.Fatal(ctx, "could not create postgres storage", zap.Error(err))
	}

	return pgsql, func() {
		logger.Info(ctx, "closing postgres client...")
		if err = pgsql.Close(); err != nil {
			logger.Warn(ctx, "could not close postgres connection", zap.Error(err))
		}
	}
}

// getSources builds the source registry from configuration. The public
// sources are always on; sources needing credentials are only registered
// when those are configured.
func getSources(ctx context.Context, cfg *config.Config) *source.Registry {
	httpClient := &http.Client{Timeout: cfg.Scout.PerSourceTimeout}
	registry := source.NewRegistry()

	registry.Register(gravatar.New(httpClient), source.Policy{})
	for _, platform := range social.Defaults() {
		registry.Register(social.New(httpClient, platform), source.Policy{})
	}

	if cfg.Sources.HibpAPIKey != "" {
		adapter, err := hibp.New(httpClient, cfg.Sources.HibpAPIKey)
		if err != nil {
			logger.Fatal(ctx, "could not create hibp source", zap.Error(err))
		}
		// HIBP rate limits aggressively, give it more headroom than the rest.
		registry.Register(adapter, source.Policy{Timeout: 30 * time.Second})
	} else {
		logger.Warn(ctx, "hibp api key missing, breach discovery disabled")
	}

	if cfg.Sources.BrokerDirBaseURL != "" {
		adapter, err := brokerdir.New(httpClient, brokerdir.Options{
			BaseURL: cfg.Sources.BrokerDirBaseURL,
			APIKey:  cfg.Sources.BrokerDirAPIKey,
		})
		if err != nil {
			logger.Fatal(ctx, "could not create broker directory source", zap.Error(err))
		}
		registry.Register(adapter, source.Policy{})
	} else {
		logger.Warn(ctx, "broker directory url missing, broker discovery disabled")
	}

	return registry
}

// getRecipients returns the takedown contact registry with the built-in
// contact table.
func getRecipients() *recipient.Registry {
	return recipient.NewRegistry()
}

// requiredCategories maps the configured category names to their domain type.
func requiredCategories(cfg *config.Config) []domain.RiskCategory {
	categories := make([]domain.RiskCategory, 0, len(cfg.Auditor.RequiredCategories))
	for _, name := range cfg.Auditor.RequiredCategories {
		categories = append(categories, domain.RiskCategory(name))
	}

	return categories
}

// main sets up the root Cobra command, loads configuration and logging, and
// registers subcommands before executing the CLI.
func main() {
	rootCmd := &cobra.Command{
		Use: "ghostscan",
	}

	// there is no way to access flags before command execution in cobra.
	// configPath here is parsed using the standard flags package.
	// following line is just added to prevent errors when Cobra is parsing the flags.
	rootCmd.PersistentFlags().StringP("config", "c", "config.yml", "Config File Path")

	configPath := flag.String("c", "config.yml", "The config file path")
	flag.Parse()

	log.Println("loading config ...")
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("could not load config file", err)
	}

	logger.Setup(cfg.Environment)

	ctx := context.Background()

	defer func() {
		if p := recover(); p != nil {
			logger.Error(ctx, "captured panic, exiting...", zap.Any("panic", p))
			_ = logger.Get(ctx).Sync()

			panic(p)
		}
	}()

	rootCmd.AddCommand(
		migrateCommand(cfg),
		serveCommand(cfg),
		scanCommand(cfg),
	)

	err = rootCmd.Execute()
	_ = logger.Get(ctx).Sync()
	if err != nil {
		os.Exit(1) //nolint: gocritic
	}
}
