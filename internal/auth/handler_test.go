package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vantage-erp/vantage-erp/internal/shared"
)

type stubRepo struct {
	user     *User
	roles    []string
	sessions map[string]int64
}

func (s *stubRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) UserRoles(_ context.Context, _ int64) ([]string, error) {
	return s.roles, nil
}

func (s *stubRepo) CreateSession(_ context.Context, id string, userID int64, _ time.Time, _, _ string) error {
	if s.sessions == nil {
		s.sessions = make(map[string]int64)
	}
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(_ context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func newTestHandler(t *testing.T, repo *stubRepo) (*Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := shared.NewSessionManager(client, "vantage_session", "test-secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(logger, NewService(repo), sessions, csrf), sessions
}

func withSession(r *http.Request, sessions *shared.SessionManager) *http.Request {
	sess, _ := sessions.Load(r.Context(), r)
	return r.WithContext(shared.ContextWithSession(r.Context(), sess))
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &stubRepo{
		user: &User{
			ID:           7,
			Email:        "jo@example.com",
			FullName:     "Jo Smith",
			PasswordHash: string(hash),
			IsActive:     true,
		},
		roles: []string{"ROLE_MANAGER", "sales"},
	}
	handler, sessions := newTestHandler(t, repo)

	body := `{"email":"jo@example.com","password":"s3cret-pass"}`
	r := withSession(httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)), sessions)
	w := httptest.NewRecorder()
	handler.handleLogin(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var resp loginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(7), resp.UserID)
	assert.Equal(t, "Jo Smith", resp.FullName)
	assert.Equal(t, []string{"MANAGER", "SALES"}, resp.Roles, "raw role names normalize on login")
	assert.NotEmpty(t, resp.CSRFToken)
	assert.Len(t, repo.sessions, 1)
}

func TestLoginWrongPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &stubRepo{
		user: &User{ID: 7, Email: "jo@example.com", PasswordHash: string(hash), IsActive: true},
	}
	handler, sessions := newTestHandler(t, repo)

	body := `{"email":"jo@example.com","password":"wrong-password"}`
	r := withSession(httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)), sessions)
	w := httptest.NewRecorder()
	handler.handleLogin(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginInactiveUser(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &stubRepo{
		user: &User{ID: 7, Email: "jo@example.com", PasswordHash: string(hash), IsActive: false},
	}
	handler, sessions := newTestHandler(t, repo)

	body := `{"email":"jo@example.com","password":"s3cret-pass"}`
	r := withSession(httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)), sessions)
	w := httptest.NewRecorder()
	handler.handleLogin(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginRejectsMalformedBody(t *testing.T) {
	handler, sessions := newTestHandler(t, &stubRepo{})

	r := withSession(httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":`)), sessions)
	w := httptest.NewRecorder()
	handler.handleLogin(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMeRequiresLogin(t *testing.T) {
	handler, sessions := newTestHandler(t, &stubRepo{})

	r := withSession(httptest.NewRequest(http.MethodGet, "/auth/me", nil), sessions)
	w := httptest.NewRecorder()
	handler.handleMe(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
