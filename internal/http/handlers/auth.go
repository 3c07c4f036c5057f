package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/userhub/internal/auth"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/repo/postgres"
	"github.com/geocoder89/userhub/internal/security"
	"github.com/gin-gonic/gin"
)

// UserAccounts is the slice of the store the auth endpoints need.
type UserAccounts interface {
	Create(ctx context.Context, name, email, passwordHash string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	TouchLastLogin(ctx context.Context, id string) error
}

type AuthHandler struct {
	users UserAccounts
	jwt   *auth.Manager
	log   *slog.Logger
}

func NewAuthHandler(users UserAccounts, jwtManager *auth.Manager, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users: users,
		jwt:   jwtManager,
		log:   log,
	}
}

// All three fields are required and non-empty; nothing more. Notably no
// minimum password length and no email shape check: presence is the only
// rule, uniqueness belongs to the store.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)

	defer cancel()

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		h.log.Error("hash password", "err", err)
		RespondInternal(ctx, "Could not create user")
		return
	}

	u, err := h.users.Create(cctx, req.Name, req.Email, hash)

	if err != nil {
		if errors.Is(err, postgres.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", "Email already exists")
			return
		}

		h.log.Error("create user", "err", err)
		RespondInternal(ctx, "Could not create user")
		return
	}

	token, err := h.jwt.Issue(u.ID, u.Email)

	if err != nil {
		h.log.Error("issue token", "err", err)
		RespondInternal(ctx, "Could not create user")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    u,
		"token":   token,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for DB lookup
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			h.log.Error("login lookup", "err", err)
			RespondInternal(ctx, "Could not log in")
			return
		}

		// same wording as the wrong-password branch, on purpose
		RespondUnauthorized(ctx, "invalid_credentials", "Invalid email or password")
		return
	}

	// the blocked check comes before the password comparison: a blocked
	// account never learns whether its password still works
	if foundUser.Blocked() {
		RespondForbidden(ctx, "account_blocked", "Account is blocked")
		return
	}

	if !security.CheckPassword(foundUser.PasswordHash, req.Password) {
		RespondUnauthorized(ctx, "invalid_credentials", "Invalid email or password")
		return
	}

	if err := h.users.TouchLastLogin(cctx, foundUser.ID); err != nil {
		// login still succeeds; the timestamp is advisory
		h.log.Error("touch last login", "err", err, "user_id", foundUser.ID)
	}

	token, err := h.jwt.Issue(foundUser.ID, foundUser.Email)

	if err != nil {
		h.log.Error("issue token", "err", err)
		RespondInternal(ctx, "Could not log in")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    foundUser,
		"token":   token,
	})
}
