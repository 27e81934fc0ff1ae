package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/sevasetu/backoffice/internal/auth"
	"github.com/sevasetu/backoffice/internal/http/respond"
	"github.com/sevasetu/backoffice/internal/middleware"
	"github.com/sevasetu/backoffice/internal/models"
	"github.com/sevasetu/backoffice/internal/models/dto"
	"github.com/sevasetu/backoffice/internal/storage"
)

// AuthHandler owns login, profile, and staff registration endpoints.
type AuthHandler struct {
	store  storage.UserStore
	tokens *auth.TokenManager
	log    *slog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(store storage.UserStore, tokens *auth.TokenManager, log *slog.Logger) *AuthHandler {
	return &AuthHandler{store: store, tokens: tokens, log: log}
}

// Login authenticates email+password and returns the profile alongside a
// fresh access token, so clients can seed their cache without a second call.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.store.FindByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.log.Error("login lookup failed", "email", email, "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		respond.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if user.Status != models.StatusActive {
		// Same classification as bad credentials: a disabled account must
		// not be distinguishable from a wrong password.
		h.log.Info("login rejected for inactive user", "user_id", user.ID)
		respond.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.tokens.Generate(user)
	if err != nil {
		h.log.Error("token generation failed", "user_id", user.ID, "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	respond.JSON(w, http.StatusOK, dto.LoginResponse{User: user.Profile(), AccessToken: token})
}

// Profile returns the profile the Authenticator resolved for this request.
// This is the "who am I" endpoint clients use to revalidate a session.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "access token required")
		return
	}
	respond.JSON(w, http.StatusOK, user)
}

// Register creates a staff account. Routed behind the admin role gate.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	role := models.Role(strings.TrimSpace(req.Role))
	if role == "" {
		role = models.RoleViewer
	}
	if err := validateRegistration(req.Username, req.Email, req.Password, role); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user := models.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.TrimSpace(req.Email),
		Role:         role,
		Status:       models.StatusActive,
		PasswordHash: string(hash),
	}
	created, err := h.store.CreateUser(r.Context(), user)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			respond.Error(w, http.StatusConflict, "user already exists")
		default:
			h.log.Error("create user failed", "email", user.Email, "error", err)
			respond.Error(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	respond.JSON(w, http.StatusCreated, created.Profile())
}

func validateRegistration(username, email, password string, role models.Role) error {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(email) == "" {
		return errors.New("username and email are required")
	}
	if len(password) < 8 || !utf8.ValidString(password) {
		return errors.New("password must be at least 8 characters")
	}
	if !role.Valid() {
		return errors.New("role must be one of: admin, treasurer, viewer")
	}
	return nil
}
