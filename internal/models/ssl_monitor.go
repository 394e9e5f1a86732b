package models

import (
	"encoding/json"

	"github.com/uptimer-dev/uptimer/internal/types"
	"gorm.io/datatypes"
)

type SSLMonitor struct {
	BaseModel

	UserID         uint           `gorm:"not null;index" json:"user_id"`
	NotificationID *uint          `gorm:"index" json:"notification_id"`
	Name           string         `gorm:"not null" json:"name"`
	URL            string         `gorm:"not null" json:"url"`
	Active         bool           `gorm:"not null;default:false;index" json:"active"`
	Frequency      int            `gorm:"not null" json:"frequency"`
	AlertThreshold int            `gorm:"not null;default:0" json:"alert_threshold"`
	Info           datatypes.JSON `json:"info"`

	// Relationships
	User          User               `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Notifications *NotificationGroup `gorm:"foreignKey:NotificationID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"notifications,omitempty"`
}

func (SSLMonitor) TableName() string {
	return "ssl_monitors"
}

// SSLInfo returns the last stored certificate inspection, if any.
func (m *SSLMonitor) SSLInfo() (*types.SSLInfo, error) {
	if len(m.Info) == 0 {
		return nil, nil
	}

	var info types.SSLInfo
	if err := json.Unmarshal(m.Info, &info); err != nil {
		return nil, err
	}

	return &info, nil
}
