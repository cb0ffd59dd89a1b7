package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"topic-catalog/internal/domain"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "topics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(db))
	return db
}

func createUser(t *testing.T, repo *UserRepository, name, email string) *domain.User {
	t.Helper()

	user := &domain.User{Name: name, Email: email, PasswordHash: "$2a$12$hash"}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}
