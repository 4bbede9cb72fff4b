package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMissingAPIKey is returned before any request when no credential is configured.
	ErrMissingAPIKey = errors.New("llm: api key is not configured")
	// ErrEmptyResponse means the provider answered without any choice.
	ErrEmptyResponse = errors.New("llm: response contained no choices")
)

// StatusError is a non-success answer from the provider.
type StatusError struct {
	StatusCode    int
	RetryAfter    time.Duration
	HasRetryAfter bool
	Body          string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("llm: provider returned status %d", e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// ParseRetryAfter accepts delay-seconds or an HTTP date. ok is false when the
// header is absent or malformed.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(value); err == nil {
		return max(t.Sub(now), 0), true
	}
	return 0, false
}
