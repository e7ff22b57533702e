package provider

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ParseRetryAfter reads a Retry-After header given as delta seconds or an HTTP date.
// It returns nil when the header is absent or unparseable.
func ParseRetryAfter(value string, now time.Time) *int {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			seconds = 0
		}
		return &seconds
	}

	if at, err := http.ParseTime(value); err == nil {
		seconds := int(at.Sub(now).Round(time.Second) / time.Second)
		if seconds < 0 {
			seconds = 0
		}
		return &seconds
	}

	return nil
}
