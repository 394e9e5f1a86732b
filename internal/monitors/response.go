package monitors

import (
	"fmt"
	"time"

	"github.com/uptimer-dev/uptimer/internal/types"
)

// Response is the normalized outcome of a socket level probe (TCP, MongoDB,
// Redis and SQL databases).
type Response struct {
	Status       string `json:"status"` // established or refused
	ResponseTime int64  `json:"response_time"`
	Code         int    `json:"code"`
	Message      string `json:"message"`
}

// ProbeError carries the refused Response of a failed probe.
type ProbeError struct {
	Response
	Err error
}

func (e *ProbeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

func established(start time.Time, message string) Response {
	return Response{
		Status:       types.ConnectionEstablished,
		ResponseTime: time.Since(start).Milliseconds(),
		Code:         200,
		Message:      message,
	}
}

func refused(start time.Time, code int, message string, err error) *ProbeError {
	return &ProbeError{
		Response: Response{
			Status:       types.ConnectionRefused,
			ResponseTime: time.Since(start).Milliseconds(),
			Code:         code,
			Message:      message,
		},
		Err: err,
	}
}
