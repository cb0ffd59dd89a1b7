// Package database opens the document store named by a connection string and
// hands out repositories bound to it.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"topic-catalog/internal/repository"
	"topic-catalog/internal/repository/postgres"
	"topic-catalog/internal/repository/sqlite"
)

// Driver names the backing store.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Handle owns the open store connection for the lifetime of the process.
type Handle struct {
	Driver Driver
	Users  repository.UserRepository
	Topics repository.TopicRepository

	db *sql.DB
}

// Parse resolves the driver and driver-specific DSN for a connection string.
// postgres:// and postgresql:// URLs select PostgreSQL; sqlite://path, file:path
// or a bare path select SQLite.
func Parse(url string) (Driver, string, error) {
	url = strings.TrimSpace(url)
	switch {
	case url == "":
		return "", "", fmt.Errorf("database url is required")
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return DriverPostgres, url, nil
	case strings.HasPrefix(url, "sqlite://"):
		return DriverSQLite, strings.TrimPrefix(url, "sqlite://"), nil
	case strings.HasPrefix(url, "file:"):
		return DriverSQLite, strings.TrimPrefix(url, "file:"), nil
	case strings.Contains(url, "://"):
		return "", "", fmt.Errorf("unsupported database url scheme in %q", url)
	default:
		return DriverSQLite, url, nil
	}
}

// Open connects to the store and, when migrate is set, applies pending migrations.
func Open(ctx context.Context, url string, migrate bool) (*Handle, error) {
	driver, dsn, err := Parse(url)
	if err != nil {
		return nil, err
	}

	h := &Handle{Driver: driver}
	switch driver {
	case DriverPostgres:
		if h.db, err = postgres.Open(ctx, dsn); err != nil {
			return nil, err
		}
		if migrate {
			if err := postgres.Migrate(ctx, h.db); err != nil {
				_ = h.db.Close()
				return nil, err
			}
		}
		h.Users = postgres.NewUserRepository(h.db)
		h.Topics = postgres.NewTopicRepository(h.db)
	default:
		if h.db, err = sqlite.Open(dsn); err != nil {
			return nil, err
		}
		if migrate {
			if err := sqlite.Migrate(h.db); err != nil {
				_ = h.db.Close()
				return nil, err
			}
		}
		h.Users = sqlite.NewUserRepository(h.db)
		h.Topics = sqlite.NewTopicRepository(h.db)
	}
	return h, nil
}

// Ping verifies the store connection is still alive.
func (h *Handle) Ping(ctx context.Context) error {
	return h.db.PingContext(ctx)
}

// Close releases the store connection.
func (h *Handle) Close() error {
	return h.db.Close()
}
