package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/uptimer-dev/uptimer/internal/models"
	"github.com/uptimer-dev/uptimer/internal/scheduler"
	"github.com/uptimer-dev/uptimer/internal/utils"
)

type SSLMonitorRequest struct {
	Name           string `json:"name" binding:"required"`
	URL            string `json:"url" binding:"required"`
	Active         bool   `json:"active"`
	Frequency      int    `json:"frequency" binding:"required,gt=0"`
	AlertThreshold int    `json:"alert_threshold" binding:"gte=0"`
	NotificationID *uint  `json:"notification_id"`
}

func (h *Handler) bindSSLMonitor(ctx *gin.Context, userID uint, monitor *models.SSLMonitor) bool {
	var req SSLMonitorRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}

	url, err := utils.NormalizeHTTPSURL(req.URL)

	if err != nil {
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
	monitor.URL = url
	monitor.Active = req.Active
	monitor.Frequency = req.Frequency
	monitor.AlertThreshold = req.AlertThreshold
	monitor.NotificationID = req.NotificationID

	if err := scheduler.ValidateSSLMonitor(monitor); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}

	return true
}

func (h *Handler) CreateSSLMonitor(ctx *gin.Context) {
	user, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var monitor models.SSLMonitor

	if !h.bindSSLMonitor(ctx, user.ID, &monitor) {
		return
	}

	if err := h.scheduler.CreateSSLMonitor(ctx.Request.Context(), &monitor); err != nil {
		h.respondError(ctx, err, "")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"message": "SSL monitor created successfully", "monitor": monitor})
}

func (h *Handler) GetSSLMonitors(ctx *gin.Context) {
	user, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	monitors, err := h.store.ListSSLMonitors(ctx.Request.Context(), user.ID)

	if err != nil {
		h.respondError(ctx, err, "")
		return
	}

	ctx.JSON(http.StatusOK, monitors)
}

func (h *Handler) loadSSLMonitor(ctx *gin.Context) (*models.SSLMonitor, bool) {
	user, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return nil, false
	}

	id, err := utils.GetID(ctx, "monitor_id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	monitor, err := h.store.GetUserSSLMonitor(ctx.Request.Context(), user.ID, id)

	if err != nil {
		h.respondError(ctx, err, "SSL monitor not found")
		return nil, false
	}

	return monitor, true
}

func (h *Handler) GetSSLMonitor(ctx *gin.Context) {
	monitor, ok := h.loadSSLMonitor(ctx)
	if !ok {
		return
	}

	info, err := monitor.SSLInfo()

	if err != nil {
		h.respondError(ctx, err, "")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"monitor": monitor, "info": info})
}

func (h *Handler) UpdateSSLMonitor(ctx *gin.Context) {
	monitor, ok := h.loadSSLMonitor(ctx)
	if !ok {
		return
	}

	previousName := monitor.Name
	monitor.Notifications = nil

	if !h.bindSSLMonitor(ctx, monitor.UserID, monitor) {
		return
	}

	if err := h.scheduler.UpdateSSLMonitor(ctx.Request.Context(), monitor, previousName); err != nil {
		h.respondError(ctx, err, "SSL monitor not found")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "SSL monitor updated successfully", "monitor": monitor})
}

func (h *Handler) ToggleSSLMonitor(ctx *gin.Context) {
	monitor, ok := h.loadSSLMonitor(ctx)
	if !ok {
		return
	}

	if err := h.scheduler.ToggleSSLMonitor(ctx.Request.Context(), monitor); err != nil {
		h.respondError(ctx, err, "SSL monitor not found")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"id": monitor.ID, "active": monitor.Active})
}

func (h *Handler) DeleteSSLMonitor(ctx *gin.Context) {
	monitor, ok := h.loadSSLMonitor(ctx)
	if !ok {
		return
	}

	if err := h.scheduler.DeleteSSLMonitor(ctx.Request.Context(), monitor); err != nil {
		h.respondError(ctx, err, "SSL monitor not found")
		return
	}

	ctx.Status(http.StatusNoContent)
}
