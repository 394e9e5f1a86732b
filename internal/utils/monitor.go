package utils

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetID parses the numeric path parameter name.
func GetID(ctx *gin.Context, name string) (uint, error) {
	raw := ctx.Param(name)

	if raw == "" {
		return 0, errors.New("ID not found")
	}

	id, err := strconv.ParseUint(raw, 10, 32)

	if err != nil || id == 0 {
		return 0, errors.New("Invalid ID")
	}

	return uint(id), nil
}

// GetHours parses the optional "hours" query parameter, bounded to a week.
func GetHours(ctx *gin.Context, fallback int) int {
	hours, err := strconv.Atoi(ctx.DefaultQuery("hours", strconv.Itoa(fallback)))
	if err != nil || hours <= 0 {
		return fallback
	}
	if hours > 168 {
		return 168
	}
	return hours
}

// NormalizeHTTPSURL validates an SSL monitor target and strips path, query
// and trailing slashes so only scheme, host and port remain.
func NormalizeHTTPSURL(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", errors.New("url cannot be empty")
	}

	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", errors.New("invalid URL format")
	}

	if parsed.Scheme != "https" {
		return "", errors.New("url must use https")
	}

	if parsed.Hostname() == "" {
		return "", errors.New("no hostname found in URL")
	}

	return "https://" + strings.ToLower(parsed.Host), nil
}
