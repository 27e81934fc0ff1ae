package handlers

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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sevasetu/backoffice/internal/auth"
	"github.com/sevasetu/backoffice/internal/middleware"
	"github.com/sevasetu/backoffice/internal/models"
	"github.com/sevasetu/backoffice/internal/models/dto"
	"github.com/sevasetu/backoffice/internal/storage"
)

type memUserStore struct {
	nextID int64
	users  map[int64]models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[int64]models.User)}
}

func (s *memUserStore) CreateUser(_ context.Context, user models.User) (models.User, error) {
	for _, existing := range s.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return models.User{}, storage.ErrAlreadyExists
		}
	}
	s.nextID++
	user.ID = s.nextID
	user.CreatedAt = time.Now()
	s.users[user.ID] = user
	return user, nil
}

func (s *memUserStore) FindByID(_ context.Context, id int64) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return user, nil
}

func (s *memUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func mustAddUser(t *testing.T, store *memUserStore, email, password string, role models.Role, status models.Status) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user, err := store.CreateUser(context.Background(), models.User{
		Username:     strings.SplitN(email, "@", 2)[0],
		Email:        email,
		Role:         role,
		Status:       status,
		PasswordHash: string(hash),
	})
	require.NoError(t, err)
	return user
}

func testAuthHandler(store storage.UserStore) *AuthHandler {
	tokens := auth.NewTokenManager("test-secret", "sevasetu-backoffice", time.Hour)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAuthHandler(store, tokens, log)
}

type envelopeBody struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, target, body string, ctxUser *models.Profile) (*httptest.ResponseRecorder, envelopeBody) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if ctxUser != nil {
		req = req.WithContext(middleware.WithUser(req.Context(), *ctxUser))
	}
	rec := httptest.NewRecorder()
	handler(rec, req)

	var env envelopeBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestLoginSuccess(t *testing.T) {
	store := newMemUserStore()
	user := mustAddUser(t, store, "asha@example.com", "secret123", models.RoleTreasurer, models.StatusActive)
	handler := testAuthHandler(store)

	rec, env := doJSON(t, handler.Login, http.MethodPost, "/auth/login",
		`{"email":"asha@example.com","password":"secret123"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	var resp dto.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, user.Profile(), resp.User)
}

func TestLoginWrongPassword(t *testing.T) {
	store := newMemUserStore()
	mustAddUser(t, store, "asha@example.com", "secret123", models.RoleTreasurer, models.StatusActive)
	handler := testAuthHandler(store)

	rec, env := doJSON(t, handler.Login, http.MethodPost, "/auth/login",
		`{"email":"asha@example.com","password":"wrong"}`, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", env.Error)
}

func TestLoginUnknownEmailMatchesWrongPassword(t *testing.T) {
	store := newMemUserStore()
	mustAddUser(t, store, "asha@example.com", "secret123", models.RoleTreasurer, models.StatusActive)
	handler := testAuthHandler(store)

	unknownRec, unknownEnv := doJSON(t, handler.Login, http.MethodPost, "/auth/login",
		`{"email":"nobody@example.com","password":"secret123"}`, nil)
	wrongRec, wrongEnv := doJSON(t, handler.Login, http.MethodPost, "/auth/login",
		`{"email":"asha@example.com","password":"wrong"}`, nil)

	assert.Equal(t, wrongRec.Code, unknownRec.Code)
	assert.Equal(t, wrongEnv.Error, unknownEnv.Error)
}

func TestLoginInactiveAccountLooksLikeBadCredentials(t *testing.T) {
	store := newMemUserStore()
	mustAddUser(t, store, "asha@example.com", "secret123", models.RoleTreasurer, models.StatusInactive)
	handler := testAuthHandler(store)

	rec, env := doJSON(t, handler.Login, http.MethodPost, "/auth/login",
		`{"email":"asha@example.com","password":"secret123"}`, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", env.Error)
}

func TestLoginRejectsBadPayload(t *testing.T) {
	handler := testAuthHandler(newMemUserStore())

	for _, body := range []string{"not json", `{"email":"","password":""}`, `{"email":"a@b.c"}`} {
		rec, env := doJSON(t, handler.Login, http.MethodPost, "/auth/login", body, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
		assert.False(t, env.Success)
	}
}

func TestProfileEchoesAuthenticatedUser(t *testing.T) {
	handler := testAuthHandler(newMemUserStore())
	profile := models.Profile{ID: 5, Username: "asha", Email: "asha@example.com", Role: models.RoleViewer, Status: models.StatusActive}

	rec, env := doJSON(t, handler.Profile, http.MethodGet, "/auth/profile", "", &profile)

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.Profile
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, profile, got)
}

func TestProfileWithoutPrincipalIs401(t *testing.T) {
	handler := testAuthHandler(newMemUserStore())

	rec, env := doJSON(t, handler.Profile, http.MethodGet, "/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "access token required", env.Error)
}

func TestRegisterCreatesActiveUser(t *testing.T) {
	store := newMemUserStore()
	handler := testAuthHandler(store)

	rec, env := doJSON(t, handler.Register, http.MethodPost, "/auth/register",
		`{"username":"ravi","email":"ravi@example.com","password":"longenough","role":"treasurer"}`, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Profile
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, models.RoleTreasurer, created.Role)
	assert.Equal(t, models.StatusActive, created.Status)

	stored, err := store.FindByEmail(context.Background(), "ravi@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "longenough", stored.PasswordHash, "password is stored hashed")
}

func TestRegisterDefaultsToViewer(t *testing.T) {
	handler := testAuthHandler(newMemUserStore())

	rec, env := doJSON(t, handler.Register, http.MethodPost, "/auth/register",
		`{"username":"ravi","email":"ravi@example.com","password":"longenough"}`, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Profile
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, models.RoleViewer, created.Role)
}

func TestRegisterValidation(t *testing.T) {
	handler := testAuthHandler(newMemUserStore())

	cases := map[string]string{
		"short password": `{"username":"ravi","email":"ravi@example.com","password":"short"}`,
		"missing email":  `{"username":"ravi","password":"longenough"}`,
		"unknown role":   `{"username":"ravi","email":"ravi@example.com","password":"longenough","role":"owner"}`,
	}
	for name, body := range cases {
		rec, _ := doJSON(t, handler.Register, http.MethodPost, "/auth/register", body, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestRegisterDuplicateIsConflict(t *testing.T) {
	store := newMemUserStore()
	mustAddUser(t, store, "ravi@example.com", "secret123", models.RoleViewer, models.StatusActive)
	handler := testAuthHandler(store)

	rec, env := doJSON(t, handler.Register, http.MethodPost, "/auth/register",
		`{"username":"ravi2","email":"ravi@example.com","password":"longenough"}`, nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "user already exists", env.Error)
}
