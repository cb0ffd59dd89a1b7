package repository

import (
	"context"

	"topic-catalog/internal/domain"
)

// TopicRepository exposes persistence operations for Topic documents.
// Listings are returned in creation order.
type TopicRepository interface {
	// Create assigns the topic's ID, CreatedAt and UpdatedAt and stores it.
	Create(ctx context.Context, topic *domain.Topic) error
	FindAll(ctx context.Context) ([]domain.Topic, error)
	FindByOwner(ctx context.Context, ownerID string) ([]domain.Topic, error)
	FindByID(ctx context.Context, id string) (*domain.Topic, error)
	FindByPath(ctx context.Context, path string) (*domain.Topic, error)
	Update(ctx context.Context, id string, patch domain.TopicPatch) (*domain.Topic, error)
	// Delete reports whether a topic was removed.
	Delete(ctx context.Context, id string) (bool, error)
}
