package types

const ContextUserKey = "user"

type MonitorType string

const (
	HTTP     MonitorType = "http"
	TCP      MonitorType = "tcp"
	MongoDB  MonitorType = "mongodb"
	Redis    MonitorType = "redis"
	Postgres MonitorType = "postgres"
	MySQL    MonitorType = "mysql"
)

// MonitorTypes lists every monitor type that owns a heartbeat table.
var MonitorTypes = []MonitorType{HTTP, TCP, MongoDB, Redis, Postgres, MySQL}

func (t MonitorType) Valid() bool {
	for _, known := range MonitorTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Monitor status values as persisted on the monitor row and its heartbeats.
const (
	StatusUp   = 0
	StatusDown = 1
)

// Connection outcomes reported by the socket level probes.
const (
	ConnectionEstablished = "established"
	ConnectionRefused     = "refused"
)

// Pub/sub topics.
const (
	TopicMonitorsUpdated = "MONITORS_UPDATED"
)

// Email templates.
const (
	TemplateErrorStatus   = "errorStatus"
	TemplateSuccessStatus = "successStatus"
)
