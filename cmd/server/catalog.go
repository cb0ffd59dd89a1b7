package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"topic-catalog/internal/catalog"
	"topic-catalog/internal/service"
	"topic-catalog/internal/storage"
)

func newSeedCommand(a *app) *cobra.Command {
	var (
		file  string
		owner string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import topics from a catalog file",
		Long: `Import topics from a JSON catalog file on behalf of an existing user.

The file may be a local path or an s3://bucket/key location. Topics whose
path already exists are skipped, so seeding is safe to repeat.

Examples:
  topicsd seed --file data/catalog.json --owner admin@example.com
  topicsd seed --file s3://my-bucket/catalog/seed.json --owner admin@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var objects storage.Service
			if _, _, ok := storage.ParseURI(file); ok {
				var err error
				if objects, err = buildStorage(ctx, a.cfg, a.logger); err != nil {
					return fmt.Errorf("setup storage: %w", err)
				}
			}

			r, err := catalog.Open(ctx, objects, file)
			if err != nil {
				return err
			}
			defer r.Close()

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			topics := service.NewTopicService(store.Topics, store.Users)
			result, err := catalog.New(store.Users, topics, a.logger).Seed(ctx, owner, r)
			if err != nil {
				return err
			}

			a.logger.WithField("created", result.Created).WithField("skipped", result.Skipped).Info("catalog seeded")
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Catalog file path or s3://bucket/key")
	cmd.Flags().StringVar(&owner, "owner", "", "Email of the user who will own the imported topics")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newExportCommand(a *app) *cobra.Command {
	var (
		retain int
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a snapshot of every topic",
		Long: `Export a JSON snapshot of every topic.

By default the snapshot is uploaded to <storage.prefix>/catalog-<timestamp>.json
in the configured bucket. Use --output to write it locally instead ("-" for stdout).

Examples:
  topicsd export --retain 7
  topicsd export --output backup.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			topics := service.NewTopicService(store.Topics, store.Users)
			c := catalog.New(store.Users, topics, a.logger)
			now := time.Now()

			if output != "" {
				var (
					count int
					err   error
				)
				if output == "-" {
					count, err = c.Export(ctx, cmd.OutOrStdout(), now)
				} else {
					count, err = exportFile(ctx, c, output, now)
				}
				if err != nil {
					return err
				}
				a.logger.WithField("topics", count).WithField("output", output).Info("snapshot written")
				return nil
			}

			if a.cfg.Storage.Bucket == "" {
				return fmt.Errorf("storage bucket is required")
			}
			objects, err := buildStorage(ctx, a.cfg, a.logger)
			if err != nil {
				return fmt.Errorf("setup storage: %w", err)
			}

			result, err := c.Publish(ctx, objects, a.cfg.Storage.Bucket, a.cfg.Storage.Prefix, retain, now)
			if err != nil {
				return err
			}
			if len(result.Removed) > 0 {
				a.logger.WithField("removed", len(result.Removed)).Info("old snapshots pruned")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&retain, "retain", 0, "Keep only the newest N snapshots (0 keeps all)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the snapshot to a local file instead of object storage")
	return cmd
}

func exportFile(ctx context.Context, c *catalog.Catalog, path string, now time.Time) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create snapshot file: %w", err)
	}
	count, err := c.Export(ctx, f, now)
	closeErr := f.Close()
	if err != nil {
		return 0, err
	}
	if closeErr != nil {
		return 0, fmt.Errorf("close snapshot file %s: %w", path, closeErr)
	}
	return count, nil
}
