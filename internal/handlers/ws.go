package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/uptimer-dev/uptimer/internal/utils"
	"go.uber.org/zap"
)

type RefreshRequest struct {
	Enable bool `json:"enable"`
}

// AutoRefresh turns the ten second monitor push of the current user on or
// off.
func (h *Handler) AutoRefresh(ctx *gin.Context) {
	user, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req RefreshRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if !req.Enable {
		h.scheduler.DisableAutoRefresh(user.Username)
		ctx.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}

	if err := h.scheduler.EnableAutoRefresh(user.ID, user.Username); err != nil {
		h.respondError(ctx, err, "")
		return
	}

	monitors, err := h.scheduler.Snapshot(ctx.Request.Context(), user.ID)

	if err != nil {
		h.respondError(ctx, err, "")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"enabled": true, "monitors": monitors})
}

// WebSocket subscribes the connection to the live updates of the current
// user.
func (h *Handler) WebSocket(c *gin.Context) {
	user, err := utils.GetCurrentUser(c)

	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.hub.Serve(user.ID, conn)
}
