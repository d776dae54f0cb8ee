package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

const usersTimeout = 3 * time.Second

type UserManager interface {
	CreateUser(ctx context.Context, req user.CreateUserRequest) (user.User, error)
	ListUsers(ctx context.Context, f user.ListFilter) ([]user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	UpdateSelf(ctx context.Context, id string, req user.UpdateSelfRequest) (user.User, error)
	DeleteSelf(ctx context.Context, id string) (user.User, error)
}

type UsersHandler struct {
	users UserManager
}

func NewUsersHandler(users UserManager) *UsersHandler {
	return &UsersHandler{users: users}
}

// meResponse mirrors the decoded token, not the stored row.
type meResponse struct {
	UserID string    `json:"userId"`
	Email  string    `json:"email"`
	Role   user.Role `json:"role"`
}

func (h *UsersHandler) Create(ctx *gin.Context) {
	var req user.CreateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	u, err := h.users.CreateUser(cctx, req)
	if err != nil {
		respondServiceError(ctx, err, "Could not create user")
		return
	}

	ctx.JSON(http.StatusCreated, u)
}

func (h *UsersHandler) List(ctx *gin.Context) {
	limit, ok := queryInt(ctx, "limit")
	if !ok {
		return
	}
	offset, ok := queryInt(ctx, "offset")
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), usersTimeout)
	defer cancel()

	users, err := h.users.ListUsers(cctx, user.ListFilter{Limit: limit, Offset: offset})
	if err != nil {
		respondServiceError(ctx, err, "Could not list users")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": users,
		"count": len(users),
	})
}

func (h *UsersHandler) Me(ctx *gin.Context) {
	claims, ok := middlewares.ClaimsFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	ctx.JSON(http.StatusOK, meResponse{
		UserID: claims.UserID(),
		Email:  claims.Email,
		Role:   claims.Role,
	})
}

func (h *UsersHandler) Get(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), usersTimeout)
	defer cancel()

	u, err := h.users.GetUser(cctx, ctx.Param("id"))
	if err != nil {
		respondServiceError(ctx, err, "Could not fetch user")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) UpdateMe(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	var req user.UpdateSelfRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	u, err := h.users.UpdateSelf(cctx, userID, req)
	if err != nil {
		respondServiceError(ctx, err, "Could not update user")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) DeleteMe(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), usersTimeout)
	defer cancel()

	u, err := h.users.DeleteSelf(cctx, userID)
	if err != nil {
		respondServiceError(ctx, err, "Could not delete user")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

// queryInt reads an optional non-negative integer query param. It writes
// the 400 itself and returns false on a bad value.
func queryInt(ctx *gin.Context, key string) (int, bool) {
	raw := ctx.Query(key)
	if raw == "" {
		return 0, true
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		RespondBadRequest(ctx, "Invalid query parameter", []FieldError{{
			Field:   key,
			Rule:    "min",
			Param:   "0",
			Message: "must be a non-negative integer",
		}})
		return 0, false
	}

	return n, true
}
