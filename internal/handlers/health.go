package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (h *Handler) HealthCheck(c *gin.Context) {
	status := http.StatusOK
	database := "ok"

	if sqlDB, err := h.store.DB().DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status = http.StatusServiceUnavailable
		database = "unavailable"
	}

	c.JSON(status, gin.H{
		"status":    http.StatusText(status),
		"database":  database,
		"jobs":      len(h.scheduler.Jobs().Keys()),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
