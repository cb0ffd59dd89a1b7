package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"topic-catalog/internal/config"
	"topic-catalog/internal/database"
)

// app carries what every command needs once configuration is loaded.
type app struct {
	cfg    config.Config
	logger *logrus.Logger
}

func newRootCommand(logger *logrus.Logger) *cobra.Command {
	a := &app{logger: logger}

	root := &cobra.Command{
		Use:   "topicsd",
		Short: "Topic catalog content service",
		Long: `topicsd serves the topic catalog API and manages its store.

Run without a subcommand to start the HTTP server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}

	root.AddCommand(
		newServeCommand(a),
		newMigrateCommand(a),
		newSeedCommand(a),
		newExportCommand(a),
	)
	return root
}

func (a *app) load() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	a.logger.SetLevel(level)
	a.cfg = cfg
	return nil
}

func (a *app) openStore(ctx context.Context) (*database.Handle, error) {
	store, err := database.Open(ctx, a.cfg.Database.URL, true)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.logger.WithField("driver", store.Driver).Debug("database ready")
	return store, nil
}

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			a.logger.WithField("driver", store.Driver).Info("migrations applied")
			return nil
		},
	}
}
