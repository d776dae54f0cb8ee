package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// upper bound for one auth request's store calls plus bcrypt
const authTimeout = 5 * time.Second

type AuthFlows interface {
	Register(ctx context.Context, req user.RegisterRequest) (string, error)
	Login(ctx context.Context, req user.LoginRequest) (string, error)
}

type AuthHandler struct {
	auth AuthFlows
}

func NewAuthHandler(auth AuthFlows) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	token, err := h.auth.Register(cctx, req)
	if err != nil {
		respondServiceError(ctx, err, "Could not register user")
		return
	}

	ctx.JSON(http.StatusCreated, tokenResponse{AccessToken: token})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	token, err := h.auth.Login(cctx, req)
	if err != nil {
		respondServiceError(ctx, err, "Could not log in")
		return
	}

	ctx.JSON(http.StatusOK, tokenResponse{AccessToken: token})
}
