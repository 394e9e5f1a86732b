package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/uptimer-dev/uptimer/internal/models"
	"github.com/uptimer-dev/uptimer/internal/scheduler"
	"github.com/uptimer-dev/uptimer/internal/services"
	"github.com/uptimer-dev/uptimer/internal/types"
	"github.com/uptimer-dev/uptimer/internal/utils"
	"gorm.io/datatypes"
)

type MonitorRequest struct {
	Name           string            `json:"name" binding:"required"`
	Type           types.MonitorType `json:"type" binding:"required"`
	URL            string            `json:"url" binding:"required"`
	Active         bool              `json:"active"`
	Frequency      int               `json:"frequency" binding:"required,gt=0"`
	AlertThreshold int               `json:"alert_threshold" binding:"gte=0"`
	NotificationID *uint             `json:"notification_id"`
	Config         json.RawMessage   `json:"config"`
}

const heartbeatWindowHours = 24

func (h *Handler) bindMonitor(ctx *gin.Context, userID uint, monitor *models.Monitor) bool {
	var req MonitorRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}

	if req.NotificationID != nil {
		if _, err := h.store.GetNotificationGroup(ctx.Request.Context(), userID, *req.NotificationID); err != nil {
			h.respondError(ctx, err, "Notification group not found")
			return false
		}
	}

	monitor.UserID = userID
	monitor.Name = req.Name
	monitor.Type = req.Type
	monitor.URL = req.URL
	monitor.Active = req.Active
	monitor.Frequency = req.Frequency
	monitor.AlertThreshold = req.AlertThreshold
	monitor.NotificationID = req.NotificationID
	monitor.Config = datatypes.JSON(req.Config)

	if err := scheduler.ValidateMonitor(monitor); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}

	return true
}

func (h *Handler) CreateMonitor(ctx *gin.Context) {
	user, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var monitor models.Monitor

	if !h.bindMonitor(ctx, user.ID, &monitor) {
		return
	}

	if err := h.scheduler.CreateMonitor(ctx.Request.Context(), &monitor); err != nil {
		h.respondError(ctx, err, "")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"message": "Monitor created successfully", "monitor": monitor})
}

func (h *Handler) GetMonitors(ctx *gin.Context) {
	user, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	summaries, err := h.scheduler.Summaries(ctx.Request.Context(), user.ID)

	if err != nil {
		h.respondError(ctx, err, "")
		return
	}

	ctx.JSON(http.StatusOK, summaries)
}

func (h *Handler) loadMonitor(ctx *gin.Context) (*models.Monitor, string, bool) {
	user, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return nil, "", false
	}

	id, err := utils.GetID(ctx, "monitor_id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, "", false
	}

	monitor, err := h.store.GetUserMonitor(ctx.Request.Context(), user.ID, id)

	if err != nil {
		h.respondError(ctx, err, "Monitor not found")
		return nil, "", false
	}

	return monitor, user.Username, true
}

func (h *Handler) GetMonitor(ctx *gin.Context) {
	monitor, _, ok := h.loadMonitor(ctx)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, monitor)
}

func (h *Handler) UpdateMonitor(ctx *gin.Context) {
	monitor, _, ok := h.loadMonitor(ctx)
	if !ok {
		return
	}

	previousName := monitor.Name
	monitor.Notifications = nil

	if !h.bindMonitor(ctx, monitor.UserID, monitor) {
		return
	}

	if err := h.scheduler.UpdateMonitor(ctx.Request.Context(), monitor, previousName); err != nil {
		h.respondError(ctx, err, "Monitor not found")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Monitor updated successfully", "monitor": monitor})
}

func (h *Handler) ToggleMonitor(ctx *gin.Context) {
	monitor, username, ok := h.loadMonitor(ctx)
	if !ok {
		return
	}

	if err := h.scheduler.ToggleMonitor(ctx.Request.Context(), monitor, username); err != nil {
		h.respondError(ctx, err, "Monitor not found")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"id": monitor.ID, "active": monitor.Active})
}

func (h *Handler) DeleteMonitor(ctx *gin.Context) {
	monitor, username, ok := h.loadMonitor(ctx)
	if !ok {
		return
	}

	if err := h.scheduler.DeleteMonitor(ctx.Request.Context(), monitor, username); err != nil {
		h.respondError(ctx, err, "Monitor not found")
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *Handler) GetHeartbeats(ctx *gin.Context) {
	monitor, _, ok := h.loadMonitor(ctx)
	if !ok {
		return
	}

	heartbeats, err := h.store.GetHeartbeats(ctx.Request.Context(), monitor.Type, monitor.ID, utils.GetHours(ctx, heartbeatWindowHours))

	if err != nil {
		h.respondError(ctx, err, "")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"heartbeats": heartbeats,
		"uptime":     services.UptimePercentage(heartbeats),
	})
}
