package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"topic-catalog/internal/domain"
)

// maxBodyBytes holds the largest draft the validator accepts (about 1.2M runes)
// even when a client escapes every rune as a \uXXXX surrogate pair.
const maxBodyBytes = 16 << 20

var errBodyTooLarge = errors.New("request body too large")

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createTopicRequest struct {
	UserID string `json:"userId"`
	domain.TopicDraft
}

type AuthResponse struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}

type UserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type TopicResponse struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Title     string           `json:"title"`
	Path      string           `json:"path"`
	Intro     string           `json:"intro"`
	Why       domain.Section   `json:"why"`
	Examples  []domain.Example `json:"examples"`
	Best      domain.Practices `json:"best"`
	CreatedAt string           `json:"createdAt"`
	UpdatedAt string           `json:"updatedAt"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// bindStrict decodes a JSON body, rejecting unknown fields at any depth.
func bindStrict(c *gin.Context, dst any) error {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Invalid("", "request body is required")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		return domain.Invalid("", fmt.Sprintf("invalid request body: %v", err))
	}
	if dec.More() {
		return domain.Invalid("", "invalid request body: unexpected data after JSON object")
	}
	return nil
}

func userToResponse(user domain.User) UserResponse {
	return UserResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
	}
}

func topicToResponse(topic domain.Topic) TopicResponse {
	resp := TopicResponse{
		ID:        topic.ID,
		UserID:    topic.OwnerID,
		Title:     topic.Title,
		Path:      topic.Path,
		Intro:     topic.Intro,
		Why:       topic.Why,
		Examples:  topic.Examples,
		Best:      topic.Best,
		CreatedAt: topic.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt: topic.UpdatedAt.Format(time.RFC3339Nano),
	}
	// clients iterate these without null checks
	if resp.Why.Points == nil {
		resp.Why.Points = []string{}
	}
	if resp.Best.Points == nil {
		resp.Best.Points = []string{}
	}
	if resp.Examples == nil {
		resp.Examples = []domain.Example{}
	}
	return resp
}

func topicsToResponse(topics []domain.Topic) []TopicResponse {
	resp := make([]TopicResponse, len(topics))
	for i := range topics {
		resp[i] = topicToResponse(topics[i])
	}
	return resp
}
