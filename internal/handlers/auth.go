package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/uptimer-dev/uptimer/internal/models"
	"github.com/uptimer-dev/uptimer/internal/services"
	"github.com/uptimer-dev/uptimer/internal/types"
	"github.com/uptimer-dev/uptimer/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

func (h *Handler) setSessionCookie(ctx *gin.Context, token string, maxAge int) {
	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		Domain:   h.cfg.Domain,
		MaxAge:   maxAge,
		Secure:   h.cfg.IsProduction(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) CreateUser(ctx *gin.Context) {
	var req CreateUserRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)

	exists, err := h.store.UserExists(ctx.Request.Context(), req.Username, req.Email)
	if err != nil {
		h.respondError(ctx, err, "")
		return
	}

	if exists {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Username or email already exists"})
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)

	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(passwordHash),
	}

	if err := h.store.CreateUser(ctx.Request.Context(), &user); err != nil {
		h.respondError(ctx, err, "")
		return
	}

	if !h.issueSession(ctx, &user) {
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"user": types.UserResponse{ID: user.ID, Username: user.Username, Email: user.Email},
	})
}

func (h *Handler) LoginUser(ctx *gin.Context) {
	var req LoginUserRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	user, err := h.store.GetUserByEmail(ctx.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))

	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email or password"})
			return
		}
		h.respondError(ctx, err, "")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email or password"})
		return
	}

	if !h.issueSession(ctx, user) {
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"user": types.UserResponse{ID: user.ID, Username: user.Username, Email: user.Email},
	})
}

func (h *Handler) issueSession(ctx *gin.Context, user *models.User) bool {
	token, err := h.jwt.GenerateJWT(user.ID, user.Username, user.Email)

	if err != nil {
		h.logger.Error("failed to generate JWT", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return false
	}

	h.setSessionCookie(ctx, token, 60*60*24*7)
	ctx.Header("Authorization", "Bearer "+token)

	return true
}

func (h *Handler) Me(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"user": types.UserResponse{ID: currentUser.ID, Username: currentUser.Username, Email: currentUser.Email},
	})
}

// LogoutUser clears the session and stops the auto-refresh job of the user.
func (h *Handler) LogoutUser(ctx *gin.Context) {
	if currentUser, err := utils.GetCurrentUser(ctx); err == nil {
		h.scheduler.DisableAutoRefresh(currentUser.Username)
	}

	h.setSessionCookie(ctx, "", -1)

	ctx.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
