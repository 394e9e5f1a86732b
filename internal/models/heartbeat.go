package models

import (
	"time"
)

// Heartbeat is one probe execution. Each monitor type keeps its heartbeats in
// its own table, see HeartbeatTable.
type Heartbeat struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	MonitorID    uint      `gorm:"not null" json:"monitor_id"`
	Status       int       `gorm:"not null" json:"status"`
	Code         int       `gorm:"not null" json:"code"`
	Message      string    `json:"message"`
	Timestamp    time.Time `gorm:"not null" json:"timestamp"`
	ResponseTime int64     `gorm:"not null" json:"response_time"`

	// TCP, MongoDB, Redis and SQL probes
	Connection string `json:"connection,omitempty"`

	// HTTP probes
	ReqHeaders string `json:"req_headers,omitempty"`
	ResHeaders string `json:"res_headers,omitempty"`
	ReqBody    string `json:"req_body,omitempty"`
	ResBody    string `json:"res_body,omitempty"`
}
