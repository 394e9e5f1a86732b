package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/uptimer-dev/uptimer/internal/models"
	"github.com/uptimer-dev/uptimer/internal/utils"
)

type NotificationRequest struct {
	GroupName      string   `json:"group_name" binding:"required"`
	Emails         []string `json:"emails" binding:"dive,email"`
	SlackWebhook   string   `json:"slack_webhook" binding:"omitempty,url"`
	DiscordWebhook string   `json:"discord_webhook" binding:"omitempty,url"`
}

func (r NotificationRequest) apply(group *models.NotificationGroup) {
	emails := make([]string, 0, len(r.Emails))
	for _, email := range r.Emails {
		emails = append(emails, strings.ToLower(strings.TrimSpace(email)))
	}

	group.GroupName = strings.TrimSpace(r.GroupName)
	group.Emails = emails
	group.SlackWebhook = r.SlackWebhook
	group.DiscordWebhook = r.DiscordWebhook
}

func (h *Handler) CreateNotificationGroup(ctx *gin.Context) {
	user, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req NotificationRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group := models.NotificationGroup{UserID: user.ID}
	req.apply(&group)

	if err := h.store.CreateNotificationGroup(ctx.Request.Context(), &group); err != nil {
		h.respondError(ctx, err, "")
		return
	}

	ctx.JSON(http.StatusCreated, group)
}

func (h *Handler) GetNotificationGroups(ctx *gin.Context) {
	user, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	groups, err := h.store.ListNotificationGroups(ctx.Request.Context(), user.ID)

	if err != nil {
		h.respondError(ctx, err, "")
		return
	}

	ctx.JSON(http.StatusOK, groups)
}

func (h *Handler) UpdateNotificationGroup(ctx *gin.Context) {
	user, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	id, err := utils.GetID(ctx, "notification_id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := h.store.GetNotificationGroup(ctx.Request.Context(), user.ID, id)

	if err != nil {
		h.respondError(ctx, err, "Notification group not found")
		return
	}

	var req NotificationRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req.apply(group)

	if err := h.store.SaveNotificationGroup(ctx.Request.Context(), group); err != nil {
		h.respondError(ctx, err, "")
		return
	}

	ctx.JSON(http.StatusOK, group)
}

func (h *Handler) DeleteNotificationGroup(ctx *gin.Context) {
	user, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	id, err := utils.GetID(ctx, "notification_id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.DeleteNotificationGroup(ctx.Request.Context(), user.ID, id); err != nil {
		h.respondError(ctx, err, "Notification group not found")
		return
	}

	ctx.Status(http.StatusNoContent)
}
