package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"topic-catalog/internal/domain"
	"topic-catalog/internal/repository"
)

const (
	selectTopics = `SELECT id, owner_id, title, path, intro, why, examples, best, created_at, updated_at FROM topics`
	pathIndex    = "idx_topics_path"
)

type TopicRepository struct {
	db *sql.DB
}

func NewTopicRepository(db *sql.DB) repository.TopicRepository {
	return &TopicRepository{db: db}
}

func (r *TopicRepository) Create(ctx context.Context, topic *domain.Topic) error {
	doc, err := repository.EncodeDocument(topic.TopicDraft)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	topic.ID = uuid.NewString()
	topic.CreatedAt = now
	topic.UpdatedAt = now

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO topics (id, owner_id, title, path, intro, why, examples, best, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		topic.ID, topic.OwnerID, topic.Title, topic.Path, topic.Intro,
		doc.Why, doc.Examples, doc.Best, topic.CreatedAt, topic.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, pathIndex) {
			return domain.ErrDuplicatePath
		}
		return fmt.Errorf("insert topic: %w", err)
	}
	return nil
}

func (r *TopicRepository) FindAll(ctx context.Context) ([]domain.Topic, error) {
	return r.query(ctx, selectTopics+` ORDER BY seq`)
}

func (r *TopicRepository) FindByOwner(ctx context.Context, ownerID string) ([]domain.Topic, error) {
	return r.query(ctx, selectTopics+` WHERE owner_id = $1 ORDER BY seq`, ownerID)
}

func (r *TopicRepository) FindByID(ctx context.Context, id string) (*domain.Topic, error) {
	return scanTopic(r.db.QueryRowContext(ctx, selectTopics+` WHERE id = $1`, id))
}

func (r *TopicRepository) FindByPath(ctx context.Context, path string) (*domain.Topic, error) {
	if path == "" {
		return nil, domain.ErrTopicNotFound
	}
	return scanTopic(r.db.QueryRowContext(ctx, selectTopics+` WHERE path = $1`, path))
}

func (r *TopicRepository) Update(ctx context.Context, id string, patch domain.TopicPatch) (*domain.Topic, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	topic, err := scanTopic(tx.QueryRowContext(ctx, selectTopics+` WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}

	patch.Apply(&topic.TopicDraft)
	topic.UpdatedAt = time.Now().UTC()

	doc, err := repository.EncodeDocument(topic.TopicDraft)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE topics
		 SET title = $1, path = $2, intro = $3, why = $4, examples = $5, best = $6, updated_at = $7
		 WHERE id = $8`,
		topic.Title, topic.Path, topic.Intro, doc.Why, doc.Examples, doc.Best, topic.UpdatedAt, id)
	if err != nil {
		if isUniqueViolation(err, pathIndex) {
			return nil, domain.ErrDuplicatePath
		}
		return nil, fmt.Errorf("update topic: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit topic update: %w", err)
	}
	return topic, nil
}

func (r *TopicRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM topics WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete topic: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("topic delete rows affected: %w", err)
	}
	return aff > 0, nil
}

func (r *TopicRepository) query(ctx context.Context, query string, args ...any) ([]domain.Topic, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	defer rows.Close()

	topics := []domain.Topic{}
	for rows.Next() {
		topic, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		topics = append(topics, *topic)
	}
	return topics, rows.Err()
}

func scanTopic(scanner interface {
	Scan(dest ...any) error
}) (*domain.Topic, error) {
	var (
		topic domain.Topic
		doc   repository.Document
	)
	if err := scanner.Scan(
		&topic.ID, &topic.OwnerID, &topic.Title, &topic.Path, &topic.Intro,
		&doc.Why, &doc.Examples, &doc.Best, &topic.CreatedAt, &topic.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTopicNotFound
		}
		return nil, fmt.Errorf("scan topic: %w", err)
	}
	if err := doc.Decode(&topic.TopicDraft); err != nil {
		return nil, err
	}
	topic.CreatedAt = topic.CreatedAt.UTC()
	topic.UpdatedAt = topic.UpdatedAt.UTC()
	return &topic, nil
}
