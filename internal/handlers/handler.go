package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/uptimer-dev/uptimer/internal/auth"
	"github.com/uptimer-dev/uptimer/internal/config"
	"github.com/uptimer-dev/uptimer/internal/pubsub"
	"github.com/uptimer-dev/uptimer/internal/scheduler"
	"github.com/uptimer-dev/uptimer/internal/services"
	"go.uber.org/zap"
)

// Handler serves the HTTP API on top of the store and the scheduler.
type Handler struct {
	cfg       *config.Config
	store     *services.Store
	scheduler *scheduler.Scheduler
	hub       *pubsub.Hub
	jwt       *auth.Manager
	logger    *zap.Logger
	upgrader  websocket.Upgrader
}

func New(cfg *config.Config, store *services.Store, sched *scheduler.Scheduler, hub *pubsub.Hub, jwt *auth.Manager, logger *zap.Logger) *Handler {
	h := &Handler{
		cfg:       cfg,
		store:     store,
		scheduler: sched,
		hub:       hub,
		jwt:       jwt,
		logger:    logger,
	}

	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			for _, allowed := range cfg.AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}

	return h
}

// respondError maps store and validation errors onto JSON responses.
func (h *Handler) respondError(ctx *gin.Context, err error, notFound string) {
	if errors.Is(err, services.ErrNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": notFound})
		return
	}

	h.logger.Error("request failed", zap.String("path", ctx.FullPath()), zap.Error(err))
	ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
