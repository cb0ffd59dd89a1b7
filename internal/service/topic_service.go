package service

import (
	"context"
	"errors"
	"strings"

	"topic-catalog/internal/domain"
	"topic-catalog/internal/repository"
)

// TopicService coordinates topic operations and enforces ownership.
type TopicService interface {
	ListAll(ctx context.Context) ([]domain.Topic, error)
	FindByPath(ctx context.Context, path string) (*domain.Topic, error)
	ListForOwner(ctx context.Context, ownerID string) ([]domain.Topic, error)
	Get(ctx context.Context, id string) (*domain.Topic, error)
	Create(ctx context.Context, ownerID string, draft domain.TopicDraft) (*domain.Topic, error)
	Update(ctx context.Context, callerID, id string, patch domain.TopicPatch) (*domain.Topic, error)
	Delete(ctx context.Context, callerID, id string) error
}

type topicService struct {
	topics repository.TopicRepository
	users  repository.UserRepository
}

func NewTopicService(topics repository.TopicRepository, users repository.UserRepository) TopicService {
	return &topicService{
		topics: topics,
		users:  users,
	}
}

func (s *topicService) ListAll(ctx context.Context) ([]domain.Topic, error) {
	return s.topics.FindAll(ctx)
}

func (s *topicService) FindByPath(ctx context.Context, path string) (*domain.Topic, error) {
	return s.topics.FindByPath(ctx, strings.TrimSpace(path))
}

func (s *topicService) ListForOwner(ctx context.Context, ownerID string) ([]domain.Topic, error) {
	ownerID, err := canonicalID("userId", strings.TrimSpace(ownerID))
	if err != nil {
		return nil, err
	}
	return s.topics.FindByOwner(ctx, ownerID)
}

func (s *topicService) Get(ctx context.Context, id string) (*domain.Topic, error) {
	id, err := canonicalID("id", id)
	if err != nil {
		return nil, domain.ErrTopicNotFound
	}
	return s.topics.FindByID(ctx, id)
}

func (s *topicService) Create(ctx context.Context, ownerID string, draft domain.TopicDraft) (*domain.Topic, error) {
	ownerID, err := canonicalID("userId", strings.TrimSpace(ownerID))
	if err != nil {
		return nil, err
	}

	normalizeDraft(&draft)
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByID(ctx, ownerID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Invalid("userId", "does not match a registered user")
		}
		return nil, err
	}

	topic := &domain.Topic{
		TopicDraft: draft,
		OwnerID:    ownerID,
	}
	if err := s.topics.Create(ctx, topic); err != nil {
		return nil, err
	}
	return topic, nil
}

func (s *topicService) Update(ctx context.Context, callerID, id string, patch domain.TopicPatch) (*domain.Topic, error) {
	topic, err := s.owned(ctx, callerID, id)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return topic, nil
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		patch.Title = &title
	}
	if patch.Path != nil {
		path := strings.TrimSpace(*patch.Path)
		patch.Path = &path
	}

	draft := topic.TopicDraft
	patch.Apply(&draft)
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	return s.topics.Update(ctx, topic.ID, patch)
}

func (s *topicService) Delete(ctx context.Context, callerID, id string) error {
	topic, err := s.owned(ctx, callerID, id)
	if err != nil {
		return err
	}

	removed, err := s.topics.Delete(ctx, topic.ID)
	if err != nil {
		return err
	}
	if !removed {
		return domain.ErrTopicNotFound
	}
	return nil
}

// owned loads the topic and checks that callerID owns it.
func (s *topicService) owned(ctx context.Context, callerID, id string) (*domain.Topic, error) {
	if callerID == "" {
		return nil, domain.ErrUnauthorized
	}

	topic, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if topic.OwnerID != callerID {
		return nil, domain.ErrForbidden
	}
	return topic, nil
}
