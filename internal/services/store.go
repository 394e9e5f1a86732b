package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/uptimer-dev/uptimer/internal/models"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

// Store is the gorm backed persistence layer for users, monitors, SSL
// monitors, notification groups and heartbeats.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for health checks.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// UserExists reports whether a user already owns the username or email.
func (s *Store) UserExists(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) CreateNotificationGroup(ctx context.Context, group *models.NotificationGroup) error {
	if err := s.db.WithContext(ctx).Create(group).Error; err != nil {
		return fmt.Errorf("create notification group: %w", err)
	}
	return nil
}

func (s *Store) GetNotificationGroup(ctx context.Context, userID, id uint) (*models.NotificationGroup, error) {
	var group models.NotificationGroup
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&group).Error; err != nil {
		return nil, notFound(err)
	}
	return &group, nil
}

func (s *Store) ListNotificationGroups(ctx context.Context, userID uint) ([]models.NotificationGroup, error) {
	var groups []models.NotificationGroup
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&groups).Error
	return groups, err
}

func (s *Store) SaveNotificationGroup(ctx context.Context, group *models.NotificationGroup) error {
	return s.db.WithContext(ctx).Save(group).Error
}

// DeleteNotificationGroup detaches the group from every monitor referencing
// it before removing the row.
func (s *Store) DeleteNotificationGroup(ctx context.Context, userID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Monitor{}).Where("notification_id = ?", id).Update("notification_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.SSLMonitor{}).Where("notification_id = ?", id).Update("notification_id", nil).Error; err != nil {
			return err
		}

		result := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&models.NotificationGroup{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
