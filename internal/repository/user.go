package repository

import (
	"context"

	"topic-catalog/internal/domain"
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	// Create assigns the user's ID and CreatedAt and stores it.
	Create(ctx context.Context, user *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// ListPublic returns every user without password hashes.
	ListPublic(ctx context.Context) ([]domain.User, error)
}
