package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/uptimer-dev/uptimer/internal/config"
	"github.com/uptimer-dev/uptimer/internal/handlers"
)

func NewRouter(cfg *config.Config, h *handlers.Handler, authMiddleware gin.HandlerFunc) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api")
	{
		api.GET("/health", h.HealthCheck)
		api.GET("/ws", authMiddleware, h.WebSocket)
		api.POST("/refresh", authMiddleware, h.AutoRefresh)

		auth := api.Group("/auth")
		{
			auth.POST("/register", h.CreateUser)
			auth.POST("/login", h.LoginUser)
			auth.POST("/logout", authMiddleware, h.LogoutUser)
			auth.GET("/me", authMiddleware, h.Me)
		}

		monitors := api.Group("/monitors", authMiddleware)
		{
			monitors.POST("", h.CreateMonitor)
			monitors.GET("", h.GetMonitors)
			monitors.GET("/:monitor_id", h.GetMonitor)
			monitors.PUT("/:monitor_id", h.UpdateMonitor)
			monitors.PATCH("/:monitor_id/toggle", h.ToggleMonitor)
			monitors.GET("/:monitor_id/heartbeats", h.GetHeartbeats)
			monitors.DELETE("/:monitor_id", h.DeleteMonitor)
		}

		ssl := api.Group("/ssl", authMiddleware)
		{
			ssl.POST("", h.CreateSSLMonitor)
			ssl.GET("", h.GetSSLMonitors)
			ssl.GET("/:monitor_id", h.GetSSLMonitor)
			ssl.PUT("/:monitor_id", h.UpdateSSLMonitor)
			ssl.PATCH("/:monitor_id/toggle", h.ToggleSSLMonitor)
			ssl.DELETE("/:monitor_id", h.DeleteSSLMonitor)
		}

		notifications := api.Group("/notifications", authMiddleware)
		{
			notifications.POST("", h.CreateNotificationGroup)
			notifications.GET("", h.GetNotificationGroups)
			notifications.PUT("/:notification_id", h.UpdateNotificationGroup)
			notifications.DELETE("/:notification_id", h.DeleteNotificationGroup)
		}
	}

	return r
}
