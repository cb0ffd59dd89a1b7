package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"topic-catalog/internal/domain"
	"topic-catalog/internal/repository"
	"topic-catalog/internal/repository/sqlite"
)

type fixture struct {
	users    repository.UserRepository
	topics   repository.TopicRepository
	userSvc  UserService
	topicSvc TopicService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "topics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.Migrate(db))

	users := sqlite.NewUserRepository(db)
	topics := sqlite.NewTopicRepository(db)
	return &fixture{
		users:    users,
		topics:   topics,
		userSvc:  NewUserService(users, bcrypt.MinCost),
		topicSvc: NewTopicService(topics, users),
	}
}

func (f *fixture) register(t *testing.T, name, email string) *domain.User {
	t.Helper()
	user, err := f.userSvc.Register(context.Background(), name, email, "secret")
	require.NoError(t, err)
	return user
}
