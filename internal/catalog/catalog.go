package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"topic-catalog/internal/domain"
	"topic-catalog/internal/repository"
	"topic-catalog/internal/service"
)

// File is the shape of a catalog import.
type File struct {
	Topics []domain.TopicDraft `json:"topics"`
}

// Snapshot is the shape of a catalog export.
type Snapshot struct {
	ExportedAt time.Time       `json:"exportedAt"`
	Topics     []SnapshotTopic `json:"topics"`
}

type SnapshotTopic struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	domain.TopicDraft
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type SeedResult struct {
	Created int
	Skipped int
}

// Catalog imports and exports topics in bulk through the topic service.
type Catalog struct {
	users  repository.UserRepository
	topics service.TopicService
	logger logrus.FieldLogger
}

func New(users repository.UserRepository, topics service.TopicService, logger logrus.FieldLogger) *Catalog {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Catalog{
		users:  users,
		topics: topics,
		logger: logger,
	}
}

// Seed creates every draft in r on behalf of ownerEmail.
// Drafts whose path is already taken are skipped.
func (c *Catalog) Seed(ctx context.Context, ownerEmail string, r io.Reader) (SeedResult, error) {
	var result SeedResult

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var file File
	if err := dec.Decode(&file); err != nil {
		return result, fmt.Errorf("decode catalog file: %w", err)
	}

	owner, err := c.users.FindByEmail(ctx, strings.TrimSpace(ownerEmail))
	if err != nil {
		return result, fmt.Errorf("seed owner %q: %w", ownerEmail, err)
	}

	for i, draft := range file.Topics {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if path := strings.TrimSpace(draft.Path); path != "" {
			if _, err := c.topics.FindByPath(ctx, path); err == nil {
				c.logger.WithField("path", path).Debug("topic already present, skipping")
				result.Skipped++
				continue
			} else if !errors.Is(err, domain.ErrNotFound) {
				return result, fmt.Errorf("look up topic %q: %w", path, err)
			}
		}

		topic, err := c.topics.Create(ctx, owner.ID, draft)
		switch {
		case errors.Is(err, domain.ErrDuplicatePath):
			result.Skipped++
		case err != nil:
			return result, fmt.Errorf("seed topic %d (%q): %w", i, draft.Title, err)
		default:
			c.logger.WithField("id", topic.ID).WithField("title", topic.Title).Debug("seeded topic")
			result.Created++
		}
	}

	return result, nil
}

// Export writes a snapshot of every topic to w and returns how many were written.
func (c *Catalog) Export(ctx context.Context, w io.Writer, now time.Time) (int, error) {
	topics, err := c.topics.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list topics: %w", err)
	}

	snapshot := Snapshot{
		ExportedAt: now.UTC(),
		Topics:     make([]SnapshotTopic, len(topics)),
	}
	for i, topic := range topics {
		snapshot.Topics[i] = SnapshotTopic{
			ID:         topic.ID,
			UserID:     topic.OwnerID,
			TopicDraft: topic.TopicDraft,
			CreatedAt:  topic.CreatedAt,
			UpdatedAt:  topic.UpdatedAt,
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot); err != nil {
		return 0, fmt.Errorf("encode snapshot: %w", err)
	}
	return len(topics), nil
}
