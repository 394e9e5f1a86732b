package models

import (
	"gorm.io/datatypes"
)

// NotificationGroup is a named set of alert recipients owned by a user.
type NotificationGroup struct {
	BaseModel

	UserID         uint                        `gorm:"not null;index" json:"user_id"`
	GroupName      string                      `gorm:"not null" json:"group_name"`
	Emails         datatypes.JSONSlice[string] `json:"emails"`
	SlackWebhook   string                      `json:"slack_webhook,omitempty"`
	DiscordWebhook string                      `json:"discord_webhook,omitempty"`

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

func (NotificationGroup) TableName() string {
	return "notifications"
}
