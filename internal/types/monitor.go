package types

import (
	"encoding/json"
	"fmt"
)

// ProbeConfig is the protocol specific part of a monitor. The concrete type is
// selected by the monitor type.
type ProbeConfig interface {
	Kind() MonitorType
}

type HttpConfig struct {
	Method        string            `json:"method"`
	Headers       map[string]string `json:"headers,omitempty"`
	Body          string            `json:"body,omitempty"` // raw JSON text
	AuthMethod    string            `json:"auth_method,omitempty"` // "none", "basic", "token"
	BasicAuthUser string            `json:"basic_auth_user,omitempty"`
	BasicAuthPass string            `json:"basic_auth_pass,omitempty"`
	BearerToken   string            `json:"bearer_token,omitempty"`
	Timeout       int               `json:"timeout"` // seconds
	Redirects     int               `json:"redirects"`
	StatusCodes   []int             `json:"status_codes"`
	ResponseTime  int               `json:"response_time"` // milliseconds
	ContentTypes  []string          `json:"content_types,omitempty"`
}

func (*HttpConfig) Kind() MonitorType { return HTTP }

type TCPConfig struct {
	Port    int `json:"port"`
	Timeout int `json:"timeout"` // milliseconds
}

func (*TCPConfig) Kind() MonitorType { return TCP }

// ConnectionConfig holds the expected outcome of a MongoDB or Redis ping.
type ConnectionConfig struct {
	Type       MonitorType `json:"-"`
	Connection string      `json:"connection"`
}

func (c *ConnectionConfig) Kind() MonitorType { return c.Type }

type DatabaseConfig struct {
	Type     MonitorType `json:"-"`
	Host     string      `json:"host"`
	Port     int         `json:"port"`
	Database string      `json:"database"`
	Username string      `json:"username"`
	Password string      `json:"password"`
	Timeout  int         `json:"timeout"`
	SSLMode  string      `json:"ssl_mode,omitempty"` // For postgres
}

func (c *DatabaseConfig) Kind() MonitorType { return c.Type }

// DecodeConfig unmarshals a stored config blob into the struct matching kind
// and fills in protocol defaults.
func DecodeConfig(kind MonitorType, raw []byte) (ProbeConfig, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	var cfg ProbeConfig

	switch kind {
	case HTTP:
		c := &HttpConfig{}
		if err := json.Unmarshal(raw, c); err != nil {
			return nil, fmt.Errorf("invalid http config: %w", err)
		}
		if c.Method == "" {
			c.Method = "GET"
		}
		if len(c.StatusCodes) == 0 {
			c.StatusCodes = []int{200}
		}
		if c.Timeout == 0 {
			c.Timeout = 10
		}
		if c.ResponseTime == 0 {
			c.ResponseTime = c.Timeout * 1000
		}
		cfg = c
	case TCP:
		c := &TCPConfig{}
		if err := json.Unmarshal(raw, c); err != nil {
			return nil, fmt.Errorf("invalid tcp config: %w", err)
		}
		if c.Port == 0 {
			c.Port = 80
		}
		if c.Timeout == 0 {
			c.Timeout = 1000
		}
		cfg = c
	case MongoDB, Redis:
		c := &ConnectionConfig{Type: kind}
		if err := json.Unmarshal(raw, c); err != nil {
			return nil, fmt.Errorf("invalid %s config: %w", kind, err)
		}
		if c.Connection == "" {
			c.Connection = ConnectionEstablished
		}
		cfg = c
	case Postgres, MySQL:
		c := &DatabaseConfig{Type: kind}
		if err := json.Unmarshal(raw, c); err != nil {
			return nil, fmt.Errorf("invalid %s config: %w", kind, err)
		}
		cfg = c
	default:
		return nil, fmt.Errorf("unsupported monitor type: %s", kind)
	}

	return cfg, nil
}

type UserResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
