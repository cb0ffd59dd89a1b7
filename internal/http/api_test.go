package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"topic-catalog/internal/auth"
	"topic-catalog/internal/database"
	"topic-catalog/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	tokens *auth.Issuer
	store  *database.Handle
}

func newTestServer(t *testing.T, limit RateLimit, trustedProxies ...string) *testServer {
	t.Helper()

	handle, err := database.Open(context.Background(), filepath.Join(t.TempDir(), "topics.db"), true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = handle.Close() })

	tokens, err := auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	handler := NewHandler(Config{
		Users:          service.NewUserService(handle.Users, bcrypt.MinCost),
		Topics:         service.NewTopicService(handle.Topics, handle.Users),
		Tokens:         tokens,
		Store:          handle,
		Logger:         logger,
		Limit:          limit,
		TrustedProxies: trustedProxies,
	})
	router := gin.New()
	require.NoError(t, handler.RegisterRoutes(router))

	return &testServer{router: router, tokens: tokens, store: handle}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	return s.serve(s.request(t, method, path, body, token))
}

func (s *testServer) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) request(t *testing.T, method, path string, body any, token string) *http.Request {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func (s *testServer) register(t *testing.T, name, email string) AuthResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/users/register", gin.H{
		"name":     name,
		"email":    email,
		"password": "secret",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[AuthResponse](t, rec)
}

func (s *testServer) createTopic(t *testing.T, owner AuthResponse, title, path string) TopicResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/items", gin.H{
		"userId": owner.UserID,
		"title":  title,
		"path":   path,
		"why":    gin.H{"title": "Why", "points": []string{"fast"}},
	}, owner.Token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[TopicResponse](t, rec)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestRootAndUnknownRoute(t *testing.T) {
	srv := newTestServer(t, RateLimit{})

	rec := srv.do(t, http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "API is running!", rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/api/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", decode[MessageResponse](t, rec).Message)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, RateLimit{})
	rec := srv.do(t, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	router := gin.New()
	require.NoError(t, NewHandler(Config{Store: stubPinger{err: errors.New("connection refused")}, Logger: logger}).RegisterRoutes(router))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	srv := newTestServer(t, RateLimit{})

	registered := srv.register(t, "Ada", "ada@example.com")
	assert.NotEmpty(t, registered.UserID)
	assert.Equal(t, "Ada", registered.Name)
	claims, err := srv.tokens.Verify(registered.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.UserID, claims.Subject)

	rec := srv.do(t, http.MethodPost, "/api/users/register", gin.H{
		"name": "Ada again", "email": "ada@example.com", "password": "other",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already registered", decode[MessageResponse](t, rec).Message)

	rec = srv.do(t, http.MethodPost, "/api/users/register", gin.H{"name": "Bob", "email": "bob@example.com"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/users/login", gin.H{"email": "ada@example.com", "password": "wrong"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Incorrect password", decode[MessageResponse](t, rec).Message)

	rec = srv.do(t, http.MethodPost, "/api/users/login", gin.H{"email": "ghost@example.com", "password": "secret"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User not found", decode[MessageResponse](t, rec).Message)

	rec = srv.do(t, http.MethodPost, "/api/users/login", gin.H{"email": "ada@example.com", "password": "secret"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	loggedIn := decode[AuthResponse](t, rec)
	assert.Equal(t, registered.UserID, loggedIn.UserID)
	assert.NotEmpty(t, loggedIn.Token)
}

func TestRegisterRejectsUnknownFields(t *testing.T) {
	srv := newTestServer(t, RateLimit{})

	rec := srv.do(t, http.MethodPost, "/api/users/register",
		`{"name":"Ada","email":"ada@example.com","password":"secret","admin":true}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[MessageResponse](t, rec).Message, "admin")
}

func TestListUsersOmitsPasswords(t *testing.T) {
	srv := newTestServer(t, RateLimit{})
	ada := srv.register(t, "Ada", "ada@example.com")
	srv.register(t, "Bob", "bob@example.com")

	rec := srv.do(t, http.MethodGet, "/api/users", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, strings.ToLower(rec.Body.String()), "password")

	users := decode[[]UserResponse](t, rec)
	require.Len(t, users, 2)
	assert.Equal(t, UserResponse{ID: ada.UserID, Name: "Ada", Email: "ada@example.com"}, users[0])
}

func TestTopicLifecycle(t *testing.T) {
	srv := newTestServer(t, RateLimit{})
	owner := srv.register(t, "Ada", "ada@example.com")

	created := srv.createTopic(t, owner, "Closures", "/closures")
	assert.Equal(t, owner.UserID, created.UserID)
	assert.Equal(t, []string{"fast"}, created.Why.Points)
	assert.Equal(t, []string{}, created.Best.Points)
	_, err := time.Parse(time.RFC3339, created.CreatedAt)
	require.NoError(t, err)

	rec := srv.do(t, http.MethodGet, "/api/items/user/"+owner.UserID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	owned := decode[[]TopicResponse](t, rec)
	require.Len(t, owned, 1)
	assert.Equal(t, created.ID, owned[0].ID)

	rec = srv.do(t, http.MethodGet, "/api/items/"+created.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Closures", decode[TopicResponse](t, rec).Title)

	rec = srv.do(t, http.MethodDelete, "/api/items/"+created.ID, nil, owner.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Topic deleted successfully", decode[MessageResponse](t, rec).Message)

	rec = srv.do(t, http.MethodGet, "/api/items/"+created.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodDelete, "/api/items/"+created.ID, nil, owner.Token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTopics(t *testing.T) {
	srv := newTestServer(t, RateLimit{})
	owner := srv.register(t, "Ada", "ada@example.com")
	first := srv.createTopic(t, owner, "Closures", "/closures")
	second := srv.createTopic(t, owner, "Promises", "/promises")

	rec := srv.do(t, http.MethodGet, "/api/items", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[[]TopicResponse](t, rec)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, second.ID, all[1].ID)

	rec = srv.do(t, http.MethodGet, "/api/items?path=/promises", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	byPath := decode[[]TopicResponse](t, rec)
	require.Len(t, byPath, 1)
	assert.Equal(t, second.ID, byPath[0].ID)

	rec = srv.do(t, http.MethodGet, "/api/items?path=/missing", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/api/items/user/not-a-uuid", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/items/not-a-uuid", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateTopicRejections(t *testing.T) {
	srv := newTestServer(t, RateLimit{})
	ada := srv.register(t, "Ada", "ada@example.com")
	bob := srv.register(t, "Bob", "bob@example.com")
	srv.createTopic(t, ada, "Closures", "/closures")

	tests := []struct {
		name   string
		body   any
		token  string
		status int
	}{
		{
			name:   "missing title",
			body:   gin.H{"userId": ada.UserID},
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown field",
			body:   gin.H{"userId": ada.UserID, "title": "X", "color": "red"},
			status: http.StatusBadRequest,
		},
		{
			name:   "malformed owner",
			body:   gin.H{"userId": "nope", "title": "X"},
			status: http.StatusBadRequest,
		},
		{
			name:   "duplicate path",
			body:   gin.H{"userId": ada.UserID, "title": "Again", "path": "/closures"},
			status: http.StatusBadRequest,
		},
		{
			name:   "token for another user",
			body:   gin.H{"userId": ada.UserID, "title": "X"},
			token:  bob.Token,
			status: http.StatusForbidden,
		},
		{
			name:   "invalid token",
			body:   gin.H{"userId": ada.UserID, "title": "X"},
			token:  "garbage",
			status: http.StatusUnauthorized,
		},
		{
			name:   "malformed json",
			body:   `{"userId":`,
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodPost, "/api/items", tt.body, tt.token)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[MessageResponse](t, rec).Message)
		})
	}
}

func TestCreateTopicWithoutToken(t *testing.T) {
	srv := newTestServer(t, RateLimit{})
	ada := srv.register(t, "Ada", "ada@example.com")

	rec := srv.do(t, http.MethodPost, "/api/items", gin.H{"userId": ada.UserID, "title": "Anonymous"}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, ada.UserID, decode[TopicResponse](t, rec).UserID)
}

func TestUpdateTopic(t *testing.T) {
	srv := newTestServer(t, RateLimit{})
	ada := srv.register(t, "Ada", "ada@example.com")
	bob := srv.register(t, "Bob", "bob@example.com")
	topic := srv.createTopic(t, ada, "Closures", "/closures")
	path := "/api/items/" + topic.ID

	rec := srv.do(t, http.MethodPut, path, gin.H{"title": "Hijacked"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(t, http.MethodPut, path, gin.H{"title": "Hijacked"}, bob.Token)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(t, http.MethodPut, path, gin.H{"title": ""}, ada.Token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPut, path, gin.H{"title": "Closures in depth"}, ada.Token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[TopicResponse](t, rec)
	assert.Equal(t, "Closures in depth", updated.Title)
	assert.Equal(t, "/closures", updated.Path)
	assert.Equal(t, []string{"fast"}, updated.Why.Points)

	rec = srv.do(t, http.MethodPut, "/api/items/00000000-0000-0000-0000-000000000000", gin.H{"title": "X"}, ada.Token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteTopicRequiresOwner(t *testing.T) {
	srv := newTestServer(t, RateLimit{})
	ada := srv.register(t, "Ada", "ada@example.com")
	bob := srv.register(t, "Bob", "bob@example.com")
	topic := srv.createTopic(t, ada, "Closures", "")

	rec := srv.do(t, http.MethodDelete, "/api/items/"+topic.ID, nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(t, http.MethodDelete, "/api/items/"+topic.ID, nil, bob.Token)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/items/"+topic.ID, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCredentialEndpointsAreThrottled(t *testing.T) {
	srv := newTestServer(t, RateLimit{PerMinute: 1, Burst: 2})

	body := gin.H{"email": "ghost@example.com", "password": "secret"}
	for i := 0; i < 2; i++ {
		rec := srv.do(t, http.MethodPost, "/api/users/login", body, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}

	rec := srv.do(t, http.MethodPost, "/api/users/login", body, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = srv.do(t, http.MethodGet, "/api/users", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestThrottleIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	srv := newTestServer(t, RateLimit{PerMinute: 1, Burst: 1})

	var codes []int
	for i := 0; i < 4; i++ {
		req := srv.request(t, http.MethodPost, "/api/users/login", gin.H{"email": "ghost@example.com", "password": "x"}, "")
		req.RemoteAddr = "203.0.113.7:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i+1))
		codes = append(codes, srv.serve(req).Code)
	}
	assert.Equal(t, []int{
		http.StatusBadRequest,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
	}, codes)
}

func TestThrottleUsesForwardedForFromTrustedProxy(t *testing.T) {
	srv := newTestServer(t, RateLimit{PerMinute: 1, Burst: 1}, "203.0.113.0/24")

	login := func(client string) int {
		req := srv.request(t, http.MethodPost, "/api/users/login", gin.H{"email": "ghost@example.com", "password": "x"}, "")
		req.RemoteAddr = "203.0.113.7:4000"
		req.Header.Set("X-Forwarded-For", client)
		return srv.serve(req).Code
	}

	assert.Equal(t, http.StatusBadRequest, login("198.51.100.1"))
	assert.Equal(t, http.StatusBadRequest, login("198.51.100.2"))
	assert.Equal(t, http.StatusTooManyRequests, login("198.51.100.1"))
}

// maximalDraftBody encodes the largest draft the validator accepts, writing
// every rune as an escaped surrogate pair.
func maximalDraftBody(userID string) string {
	const wide = `\ud83d\ude00`
	str := func(n int) string {
		return `"` + strings.Repeat(wide, n) + `"`
	}
	list := func(count, n int) string {
		items := make([]string, count)
		for i := range items {
			items[i] = str(n)
		}
		return "[" + strings.Join(items, ",") + "]"
	}
	examples := make([]string, 50)
	for i := range examples {
		examples[i] = `{"title":` + str(200) + `,"code":` + str(20000) + `}`
	}

	return `{"userId":"` + userID + `","title":` + str(200) +
		`,"path":"/` + strings.Repeat(wide, 199) + `"` +
		`,"intro":` + str(5000) +
		`,"why":{"title":` + str(200) + `,"points":` + list(50, 2000) + `}` +
		`,"examples":[` + strings.Join(examples, ",") + `]` +
		`,"best":{"title":` + str(200) + `,"points":` + list(50, 2000) + `,"conclusion":` + str(2000) + `}}`
}

func TestCreateTopicAcceptsLargestValidDraft(t *testing.T) {
	srv := newTestServer(t, RateLimit{})
	ada := srv.register(t, "Ada", "ada@example.com")

	body := maximalDraftBody(ada.UserID)
	require.LessOrEqual(t, len(body), maxBodyBytes)

	rec := srv.do(t, http.MethodPost, "/api/items", body, ada.Token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[TopicResponse](t, rec)
	require.Len(t, created.Examples, 50)
	assert.Equal(t, 20000, utf8.RuneCountInString(created.Examples[49].Code))
	assert.Len(t, created.Best.Points, 50)
	assert.Equal(t, 200, utf8.RuneCountInString(created.Path))
}

func TestCreateTopicRejectsOversizedBody(t *testing.T) {
	srv := newTestServer(t, RateLimit{})
	ada := srv.register(t, "Ada", "ada@example.com")

	body := `{"userId":"` + ada.UserID + `","title":"x","intro":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	rec := srv.do(t, http.MethodPost, "/api/items", body, ada.Token)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "Request body too large", decode[MessageResponse](t, rec).Message)
}

func TestStoreFailureHidesDetail(t *testing.T) {
	srv := newTestServer(t, RateLimit{})
	require.NoError(t, srv.store.Close())

	for _, path := range []string{"/api/items", "/api/users"} {
		rec := srv.do(t, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
		assert.JSONEq(t, `{"message":"Server error"}`, rec.Body.String(), path)
	}

	rec := srv.do(t, http.MethodPost, "/api/users/register", gin.H{
		"name": "Ada", "email": "ada@example.com", "password": "secret",
	}, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Server error"}`, rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNonCanonicalOwnerIDs(t *testing.T) {
	srv := newTestServer(t, RateLimit{})
	ada := srv.register(t, "Ada", "ada@example.com")
	upper := strings.ToUpper(ada.UserID)

	rec := srv.do(t, http.MethodPost, "/api/items", gin.H{"userId": upper, "title": "Closures"}, ada.Token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[TopicResponse](t, rec)
	assert.Equal(t, ada.UserID, created.UserID)

	rec = srv.do(t, http.MethodGet, "/api/items/user/"+upper, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	owned := decode[[]TopicResponse](t, rec)
	require.Len(t, owned, 1)
	assert.Equal(t, created.ID, owned[0].ID)

	rec = srv.do(t, http.MethodGet, "/api/items/"+strings.ToUpper(created.ID), nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWithCORSPreflight(t *testing.T) {
	srv := newTestServer(t, RateLimit{})
	handler := WithCORS(srv.router, []string{"*"})

	req := httptest.NewRequest(http.MethodOptions, "/api/items", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	status, message := statusFor(errors.New("disk on fire"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Server error", message)
}
