package main

import (
	"fmt"
	"os"

	"github.com/shaibs3/careportal/internal/app"
	"github.com/shaibs3/careportal/internal/config"
	"github.com/shaibs3/careportal/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var envFiles []string

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the care portal API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap(envFiles)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			application, err := app.NewApp(cfg, log)
			if err != nil {
				log.Error("failed to initialize application", zap.Error(err))
				return err
			}
			return application.Run()
		},
	}

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap(envFiles)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if err := app.Migrate(cmd.Context(), cfg, log); err != nil {
				log.Error("migration failed", zap.Error(err))
				return err
			}
			log.Info("migration finished")
			return nil
		},
	}

	root := &cobra.Command{
		Use:           "careportal",
		Short:         "Care portal backend",
		Long:          "REST backend for the elderly care portal: accounts, calendar events and a per user file archive.",
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       fmt.Sprintf("%s (%s, %s)", version, commit, date),
		RunE:          serve.RunE,
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "env files to load (default .env, .env.local)")
	root.AddCommand(serve, migrate)

	return root
}

// bootstrap loads the configuration with a temporary logger, then builds the
// application logger from it
func bootstrap(envFiles []string) (*config.Config, *zap.Logger, error) {
	initialLogger, err := logger.NewLogger("production", "info")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = initialLogger.Sync() }()

	cfg := config.Load(initialLogger, envFiles...)

	var opts []logger.Option
	if cfg.LogFile != "" {
		opts = append(opts, logger.WithRotatingFile(cfg.LogFile, logger.Rotation{
			MaxSizeMB:  cfg.LogRotation.MaxSizeMB,
			MaxBackups: cfg.LogRotation.MaxBackups,
			MaxAgeDays: cfg.LogRotation.MaxAgeDays,
			Compress:   true,
		}))
	}
	appLogger, err := logger.NewLogger(cfg.Environment, cfg.LogLevel, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create application logger: %w", err)
	}

	appLogger.Info("Build info",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("date", date),
	)
	return cfg, appLogger, nil
}
