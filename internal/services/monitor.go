package services

import (
	"context"
	"fmt"
	"time"

	"github.com/uptimer-dev/uptimer/internal/models"
	"github.com/uptimer-dev/uptimer/internal/types"
	"gorm.io/gorm"
)

func (s *Store) CreateMonitor(ctx context.Context, monitor *models.Monitor) error {
	if err := s.db.WithContext(ctx).Create(monitor).Error; err != nil {
		return fmt.Errorf("create monitor: %w", err)
	}
	return nil
}

// GetMonitor loads a monitor with its notification group.
func (s *Store) GetMonitor(ctx context.Context, id uint) (*models.Monitor, error) {
	var monitor models.Monitor
	if err := s.db.WithContext(ctx).Preload("Notifications").First(&monitor, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &monitor, nil
}

// GetUserMonitor loads a monitor only when it belongs to userID.
func (s *Store) GetUserMonitor(ctx context.Context, userID, id uint) (*models.Monitor, error) {
	var monitor models.Monitor
	err := s.db.WithContext(ctx).
		Preload("Notifications").
		Where("id = ? AND user_id = ?", id, userID).
		First(&monitor).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &monitor, nil
}

func (s *Store) ListMonitors(ctx context.Context, userID uint) ([]models.Monitor, error) {
	var monitors []models.Monitor
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&monitors).Error
	return monitors, err
}

func (s *Store) ListActiveMonitors(ctx context.Context) ([]models.Monitor, error) {
	var monitors []models.Monitor
	err := s.db.WithContext(ctx).Where("active = ?", true).Order("id").Find(&monitors).Error
	return monitors, err
}

func (s *Store) CountActiveMonitors(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Monitor{}).
		Where("user_id = ? AND active = ?", userID, true).
		Count(&count).Error
	return count, err
}

func (s *Store) SaveMonitor(ctx context.Context, monitor *models.Monitor) error {
	return s.db.WithContext(ctx).Omit("User", "Notifications").Save(monitor).Error
}

func (s *Store) SetMonitorActive(ctx context.Context, id uint, active bool) error {
	return s.db.WithContext(ctx).Model(&models.Monitor{}).Where("id = ?", id).Update("active", active).Error
}

// UpdateMonitorStatus applies the outcome of a probe to the monitor row. Only
// a change of status is written.
func (s *Store) UpdateMonitorStatus(ctx context.Context, monitor *models.Monitor, ts time.Time, success bool) error {
	if !ApplyStatus(monitor, ts, success) {
		return nil
	}

	return s.db.WithContext(ctx).
		Model(&models.Monitor{}).
		Where("id = ?", monitor.ID).
		Updates(map[string]interface{}{
			"status":       monitor.Status,
			"last_changed": monitor.LastChanged,
		}).Error
}

// DeleteMonitor removes the heartbeats of the monitor and then the monitor
// itself.
func (s *Store) DeleteMonitor(ctx context.Context, monitor *models.Monitor) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteHeartbeats(tx, monitor.Type, monitor.ID); err != nil {
			return err
		}
		return tx.Delete(&models.Monitor{}, monitor.ID).Error
	})
}

// ApplyStatus moves the monitor to the status implied by success. It returns
// false and leaves the monitor untouched when the status did not change, so
// LastChanged only ever records transitions.
func ApplyStatus(monitor *models.Monitor, ts time.Time, success bool) bool {
	status := types.StatusUp
	if !success {
		status = types.StatusDown
	}

	if monitor.Status == status {
		return false
	}

	monitor.Status = status
	monitor.LastChanged = &ts

	return true
}
