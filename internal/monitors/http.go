package monitors

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/uptimer-dev/uptimer/internal/types"
)

const maxBodySnapshot = 64 * 1024

var (
	ErrInvalidBody      = errors.New("JSON body is invalid")
	ErrTooManyRedirects = errors.New("stopped after too many redirects")
)

// HTTPResult is a completed HTTP exchange, whatever its status code.
type HTTPResult struct {
	Code         int
	Status       string
	ContentType  string
	ResponseTime int64
	ReqHeaders   string
	ResHeaders   string
	ReqBody      string
	ResBody      string
}

// Message formats the upstream status line.
func (r *HTTPResult) Message() string {
	return r.Status
}

// Assert checks the response against the expectations of the monitor: status
// code whitelist, maximum response time and, when configured, content types.
func (r *HTTPResult) Assert(config *types.HttpConfig) error {
	if !slices.Contains(config.StatusCodes, r.Code) {
		return fmt.Errorf("unexpected status code: %d", r.Code)
	}

	if int64(config.ResponseTime) < r.ResponseTime {
		return fmt.Errorf("response time %dms exceeds %dms", r.ResponseTime, config.ResponseTime)
	}

	if len(config.ContentTypes) > 0 && !slices.Contains(config.ContentTypes, r.ContentType) {
		return fmt.Errorf("unexpected content type: %q", r.ContentType)
	}

	return nil
}

// HTTPError is a transport level failure of an HTTP probe.
type HTTPError struct {
	Code         int
	Message      string
	ResponseTime int64
	ResHeaders   string
	ResBody      string
	Err          error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func GetHTTP(ctx context.Context, url string, config *types.HttpConfig) (*HTTPResult, error) {
	var body io.Reader
	var reqBody string

	if len(config.Body) > 0 {
		if !json.Valid([]byte(config.Body)) {
			return nil, ErrInvalidBody
		}
		reqBody = config.Body
		body = strings.NewReader(config.Body)
	}

	method := strings.ToUpper(config.Method)
	if method == "" {
		method = http.MethodGet
	}

	timeout := time.Duration(config.Timeout) * time.Second

	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) > config.Redirects {
				return ErrTooManyRedirects
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)

	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "text/html,application/json")

	if reqBody != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	switch config.AuthMethod {
	case "basic":
		credentials := base64.StdEncoding.EncodeToString([]byte(config.BasicAuthUser + ":" + config.BasicAuthPass))
		req.Header.Set("Authorization", "Basic "+credentials)
	case "token":
		req.Header.Set("Authorization", "Bearer "+config.BearerToken)
	}

	for key, value := range config.Headers {
		req.Header.Set(key, value)
	}

	start := time.Now()

	resp, err := client.Do(req)

	if err != nil {
		return nil, transportError(start, resp, err)
	}

	defer resp.Body.Close()

	resBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySnapshot))

	return &HTTPResult{
		Code:         resp.StatusCode,
		Status:       statusLine(resp),
		ContentType:  resp.Header.Get("Content-Type"),
		ResponseTime: time.Since(start).Milliseconds(),
		ReqHeaders:   encodeHeaders(req.Header),
		ResHeaders:   encodeHeaders(resp.Header),
		ReqBody:      reqBody,
		ResBody:      string(resBody),
	}, nil
}

// transportError prefers the upstream response when the client returned one
// (a redirect beyond the configured limit), otherwise it reports code 500.
func transportError(start time.Time, resp *http.Response, err error) *HTTPError {
	httpErr := &HTTPError{
		Code:         500,
		Message:      "Http monitor error",
		ResponseTime: time.Since(start).Milliseconds(),
		Err:          err,
	}

	if resp != nil {
		httpErr.Code = resp.StatusCode
		httpErr.Message = statusLine(resp)
		httpErr.ResHeaders = encodeHeaders(resp.Header)
	}

	return httpErr
}

func statusLine(resp *http.Response) string {
	return fmt.Sprintf("%d - %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}

func encodeHeaders(header http.Header) string {
	if len(header) == 0 {
		return ""
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(header); err != nil {
		return ""
	}

	return strings.TrimSpace(buf.String())
}
