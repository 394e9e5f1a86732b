package models

import (
	"time"

	"github.com/uptimer-dev/uptimer/internal/types"
	"gorm.io/datatypes"
)

type Monitor struct {
	BaseModel

	UserID         uint              `gorm:"not null;index" json:"user_id"`
	NotificationID *uint             `gorm:"index" json:"notification_id"`
	Name           string            `gorm:"not null" json:"name"`
	Type           types.MonitorType `gorm:"not null" json:"type"`
	URL            string            `gorm:"not null" json:"url"`
	Active         bool              `gorm:"not null;default:false;index" json:"active"`
	Frequency      int               `gorm:"not null" json:"frequency"` // seconds between checks
	AlertThreshold int               `gorm:"not null;default:0" json:"alert_threshold"`
	Status         int               `gorm:"not null;default:0" json:"status"`
	LastChanged    *time.Time        `json:"last_changed"`
	Config         datatypes.JSON    `json:"config"`

	// Relationships
	User          User               `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Notifications *NotificationGroup `gorm:"foreignKey:NotificationID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"notifications,omitempty"`
}

// ProbeConfig decodes the protocol specific configuration of the monitor.
func (m *Monitor) ProbeConfig() (types.ProbeConfig, error) {
	return types.DecodeConfig(m.Type, m.Config)
}
