package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vantage-erp/vantage-erp/internal/auth"
	"github.com/vantage-erp/vantage-erp/internal/shared"
)

type stubAuthRepo struct {
	user  *auth.User
	roles []string
}

func (s *stubAuthRepo) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubAuthRepo) UserRoles(_ context.Context, _ int64) ([]string, error) {
	return s.roles, nil
}

func (s *stubAuthRepo) CreateSession(context.Context, string, int64, time.Time, string, string) error {
	return nil
}

func (s *stubAuthRepo) DeleteSession(context.Context, string) error {
	return nil
}

// Drives the full middleware chain over real HTTP: a fresh client must be
// able to bootstrap a CSRF token and log in.
func TestLoginThroughMiddlewareStack(t *testing.T) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	sessions := shared.NewSessionManager(redisClient, "vantage_session", "test-secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &stubAuthRepo{
		user: &auth.User{
			ID:           7,
			Email:        "jo@example.com",
			FullName:     "Jo Smith",
			PasswordHash: string(hash),
			IsActive:     true,
		},
		roles: []string{"MANAGER"},
	}
	authHandler := auth.NewHandler(logger, auth.NewService(repo), sessions, csrf)

	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         logger,
		SessionManager: sessions,
		CSRFManager:    csrf,
	}) {
		r.Use(mw)
	}
	r.Route("/auth", authHandler.MountRoutes)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}
	loginBody := `{"email":"jo@example.com","password":"s3cret-pass"}`

	// Without a token the login POST is rejected at the gate.
	resp, err := client.Post(srv.URL+"/auth/login", "application/json", strings.NewReader(loginBody))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = client.Get(srv.URL + "/auth/csrf")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tokenResp struct {
		CSRFToken string `json:"csrfToken"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tokenResp))
	resp.Body.Close()
	require.NotEmpty(t, tokenResp.CSRFToken)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/auth/login", strings.NewReader(loginBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(shared.CSRFHeader, tokenResp.CSRFToken)

	resp, err = client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var login struct {
		UserID int64    `json:"userId"`
		Roles  []string `json:"roles"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))
	assert.Equal(t, int64(7), login.UserID)
	assert.Equal(t, []string{"MANAGER"}, login.Roles)
}
