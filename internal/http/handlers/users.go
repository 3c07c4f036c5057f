package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// UserAdmin is the slice of the store the administration endpoints need.
type UserAdmin interface {
	List(ctx context.Context, f user.ListFilter) ([]user.User, error)
	SetStatus(ctx context.Context, ids []string, status user.Status) ([]user.User, error)
	Delete(ctx context.Context, ids []string) ([]user.DeletedUser, error)
}

type UsersHandler struct {
	users UserAdmin
	log   *slog.Logger
}

func NewUsersHandler(users UserAdmin, log *slog.Logger) *UsersHandler {
	return &UsersHandler{
		users: users,
		log:   log,
	}
}

// BulkRequest is shared by block, unblock and delete: a non-empty array of
// user ids. Missing, non-array and empty-array inputs are all 400s.
type BulkRequest struct {
	UserIDs []string `json:"userIds" binding:"required,min=1"`
}

func (h *UsersHandler) List(ctx *gin.Context) {
	filter := user.ListFilter{
		Search:    ctx.Query("filter"),
		Status:    ctx.DefaultQuery("statusFilter", "all"),
		SortBy:    ctx.DefaultQuery("sortBy", "last_login_time"),
		SortOrder: ctx.DefaultQuery("sortOrder", "desc"),
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	users, err := h.users.List(cctx, filter)

	if err != nil {
		h.log.Error("list users", "err", err)
		RespondInternal(ctx, "Could not list users")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"users": users,
		"total": len(users),
	})
}

func (h *UsersHandler) Block(ctx *gin.Context) {
	h.setStatus(ctx, user.StatusBlocked, "blocked")
}

func (h *UsersHandler) Unblock(ctx *gin.Context) {
	h.setStatus(ctx, user.StatusActive, "unblocked")
}

func (h *UsersHandler) setStatus(ctx *gin.Context, status user.Status, verb string) {
	var req BulkRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	// one set-based statement; ids that match nothing are simply absent
	// from the result, not an error
	updated, err := h.users.SetStatus(cctx, req.UserIDs, status)

	if err != nil {
		h.log.Error("bulk set status", "err", err, "status", status)
		RespondInternal(ctx, "Could not update users")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":      fmt.Sprintf("%d user(s) %s successfully", len(updated), verb),
		"updatedUsers": updated,
	})
}

func (h *UsersHandler) Delete(ctx *gin.Context) {
	var req BulkRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	deleted, err := h.users.Delete(cctx, req.UserIDs)

	if err != nil {
		h.log.Error("bulk delete", "err", err)
		RespondInternal(ctx, "Could not delete users")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":      fmt.Sprintf("%d user(s) deleted successfully", len(deleted)),
		"deletedUsers": deleted,
	})
}
