package monitors

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"
)

// CheckTCP opens a raw TCP connection to host:port.
func CheckTCP(ctx context.Context, host string, port int, timeout time.Duration) (Response, error) {
	start := time.Now()

	if host == "" {
		host = "127.0.0.1"
	}

	if port == 0 {
		port = 80
	}

	if timeout <= 0 {
		timeout = time.Second
	}

	dialer := net.Dialer{Timeout: timeout}

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return Response{}, refused(start, 500, "TCP socket timed out", err)
		}

		message := err.Error()
		if message == "" {
			message = "TCP connection failed"
		}

		return Response{}, refused(start, 500, message, nil)
	}

	conn.Close()

	return established(start, "Host is up and running"), nil
}
