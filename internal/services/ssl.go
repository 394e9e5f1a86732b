package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/uptimer-dev/uptimer/internal/models"
	"github.com/uptimer-dev/uptimer/internal/types"
	"gorm.io/datatypes"
)

func (s *Store) CreateSSLMonitor(ctx context.Context, monitor *models.SSLMonitor) error {
	if err := s.db.WithContext(ctx).Create(monitor).Error; err != nil {
		return fmt.Errorf("create ssl monitor: %w", err)
	}
	return nil
}

func (s *Store) GetSSLMonitor(ctx context.Context, id uint) (*models.SSLMonitor, error) {
	var monitor models.SSLMonitor
	if err := s.db.WithContext(ctx).Preload("Notifications").First(&monitor, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &monitor, nil
}

func (s *Store) GetUserSSLMonitor(ctx context.Context, userID, id uint) (*models.SSLMonitor, error) {
	var monitor models.SSLMonitor
	err := s.db.WithContext(ctx).
		Preload("Notifications").
		Where("id = ? AND user_id = ?", id, userID).
		First(&monitor).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &monitor, nil
}

func (s *Store) ListSSLMonitors(ctx context.Context, userID uint) ([]models.SSLMonitor, error) {
	var monitors []models.SSLMonitor
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&monitors).Error
	return monitors, err
}

func (s *Store) ListActiveSSLMonitors(ctx context.Context) ([]models.SSLMonitor, error) {
	var monitors []models.SSLMonitor
	err := s.db.WithContext(ctx).Where("active = ?", true).Order("id").Find(&monitors).Error
	return monitors, err
}

func (s *Store) SaveSSLMonitor(ctx context.Context, monitor *models.SSLMonitor) error {
	return s.db.WithContext(ctx).Omit("User", "Notifications").Save(monitor).Error
}

func (s *Store) SetSSLMonitorActive(ctx context.Context, id uint, active bool) error {
	return s.db.WithContext(ctx).Model(&models.SSLMonitor{}).Where("id = ?", id).Update("active", active).Error
}

// UpdateSSLInfo overwrites the stored certificate details of a monitor.
func (s *Store) UpdateSSLInfo(ctx context.Context, id uint, info *types.SSLInfo) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode ssl info: %w", err)
	}

	return s.db.WithContext(ctx).
		Model(&models.SSLMonitor{}).
		Where("id = ?", id).
		Update("info", datatypes.JSON(raw)).Error
}

func (s *Store) DeleteSSLMonitor(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&models.SSLMonitor{}, id).Error
}
