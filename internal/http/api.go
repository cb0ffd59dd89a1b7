package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"topic-catalog/internal/auth"
	"topic-catalog/internal/domain"
	"topic-catalog/internal/service"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config carries the collaborators of a Handler.
type Config struct {
	Users  service.UserService
	Topics service.TopicService
	Tokens *auth.Issuer
	Store  Pinger
	Logger *logrus.Logger
	Limit  RateLimit
	// TrustedProxies may set the client IP through forwarding headers.
	// Empty means the connection's remote address is always used.
	TrustedProxies []string
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users  service.UserService
	topics service.TopicService
	tokens *auth.Issuer
	store  Pinger
	logger *logrus.Logger
	limit  RateLimit
	// nil trusts no proxy
	proxies []string
}

func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		users:   cfg.Users,
		topics:  cfg.Topics,
		tokens:  cfg.Tokens,
		store:   cfg.Store,
		logger:  logger,
		limit:   cfg.Limit,
		proxies: cfg.TrustedProxies,
	}
}

// RegisterRoutes installs the API on router. It also decides which proxies
// may report the client IP, since the credential throttle keys on it.
func (h *Handler) RegisterRoutes(router *gin.Engine) error {
	if err := router.SetTrustedProxies(h.proxies); err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}
	router.Use(h.requestLogger())

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "API is running!")
	})
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, MessageResponse{Message: "Route not found"})
	})

	api := router.Group("/api")
	{
		api.GET("/health", h.health)

		users := api.Group("/users")
		users.GET("", h.listUsers)
		credentials := users.Group("", h.rateLimit())
		credentials.POST("/register", h.register)
		credentials.POST("/login", h.login)

		items := api.Group("/items", h.identify())
		items.GET("", h.listTopics)
		items.GET("/user/:userId", h.listOwnerTopics)
		items.GET("/:id", h.getTopic)
		items.POST("", h.createTopic)
		items.PUT("/:id", h.updateTopic)
		items.DELETE("/:id", h.deleteTopic)
	}
	return nil
}

func (h *Handler) health(c *gin.Context) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			h.logger.WithError(err).Warn("health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]UserResponse, len(users))
	for i := range users {
		resp[i] = userToResponse(users[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := bindStrict(c, &req); err != nil {
		h.writeError(c, err)
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.respondWithToken(c, http.StatusCreated, user)
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := bindStrict(c, &req); err != nil {
		h.writeError(c, err)
		return
	}

	user, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			c.JSON(http.StatusBadRequest, MessageResponse{Message: "User not found"})
			return
		}
		h.writeError(c, err)
		return
	}
	h.respondWithToken(c, http.StatusOK, user)
}

func (h *Handler) respondWithToken(c *gin.Context, status int, user *domain.User) {
	token, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(status, AuthResponse{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Token:  token,
	})
}

func (h *Handler) listTopics(c *gin.Context) {
	if path, ok := c.GetQuery("path"); ok {
		topic, err := h.topics.FindByPath(c.Request.Context(), path)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			c.JSON(http.StatusOK, []TopicResponse{})
		case err != nil:
			h.writeError(c, err)
		default:
			c.JSON(http.StatusOK, []TopicResponse{topicToResponse(*topic)})
		}
		return
	}

	topics, err := h.topics.ListAll(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, topicsToResponse(topics))
}

func (h *Handler) listOwnerTopics(c *gin.Context) {
	topics, err := h.topics.ListForOwner(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, topicsToResponse(topics))
}

func (h *Handler) getTopic(c *gin.Context) {
	topic, err := h.topics.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, topicToResponse(*topic))
}

func (h *Handler) createTopic(c *gin.Context) {
	var req createTopicRequest
	if err := bindStrict(c, &req); err != nil {
		h.writeError(c, err)
		return
	}
	if caller := callerID(c); caller != "" && !sameID(caller, req.UserID) {
		h.writeError(c, domain.ErrForbidden)
		return
	}

	topic, err := h.topics.Create(c.Request.Context(), req.UserID, req.TopicDraft)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, topicToResponse(*topic))
}

func (h *Handler) updateTopic(c *gin.Context) {
	var patch domain.TopicPatch
	if err := bindStrict(c, &patch); err != nil {
		h.writeError(c, err)
		return
	}

	topic, err := h.topics.Update(c.Request.Context(), callerID(c), c.Param("id"), patch)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, topicToResponse(*topic))
}

func (h *Handler) deleteTopic(c *gin.Context) {
	if err := h.topics.Delete(c.Request.Context(), callerID(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Topic deleted successfully"})
}
