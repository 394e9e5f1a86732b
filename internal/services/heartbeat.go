package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/uptimer-dev/uptimer/db"
	"github.com/uptimer-dev/uptimer/internal/models"
	"github.com/uptimer-dev/uptimer/internal/types"
	"gorm.io/gorm"
)

// CreateHeartbeat appends a heartbeat to the table of the monitor type.
func (s *Store) CreateHeartbeat(ctx context.Context, kind types.MonitorType, heartbeat *models.Heartbeat) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown monitor type %q", kind)
	}

	if err := s.db.WithContext(ctx).Table(db.HeartbeatTable(kind)).Create(heartbeat).Error; err != nil {
		return fmt.Errorf("create %s heartbeat: %w", kind, err)
	}

	return nil
}

// GetHeartbeats returns the heartbeats of the last hours, newest first.
func (s *Store) GetHeartbeats(ctx context.Context, kind types.MonitorType, monitorID uint, hours int) ([]models.Heartbeat, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown monitor type %q", kind)
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)

	var heartbeats []models.Heartbeat
	err := s.db.WithContext(ctx).
		Table(db.HeartbeatTable(kind)).
		Where("monitor_id = ? AND timestamp >= ?", monitorID, since).
		Order("timestamp DESC").
		Order("id DESC").
		Find(&heartbeats).Error

	return heartbeats, err
}

func (s *Store) DeleteHeartbeats(ctx context.Context, kind types.MonitorType, monitorID uint) error {
	return deleteHeartbeats(s.db.WithContext(ctx), kind, monitorID)
}

func deleteHeartbeats(tx *gorm.DB, kind types.MonitorType, monitorID uint) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown monitor type %q", kind)
	}

	return tx.Table(db.HeartbeatTable(kind)).Where("monitor_id = ?", monitorID).Delete(&models.Heartbeat{}).Error
}

// UptimePercentage is the rounded share of up heartbeats. An empty window has
// no uptime.
func UptimePercentage(heartbeats []models.Heartbeat) int {
	if len(heartbeats) == 0 {
		return 0
	}

	down := 0
	for _, hb := range heartbeats {
		if hb.Status == types.StatusDown {
			down++
		}
	}

	total := len(heartbeats)

	return int(math.Round(float64(total-down) / float64(total) * 100))
}
