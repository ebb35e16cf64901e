package reddit

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/actuator"
)

// APIError is a non-2xx response other than 429.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("reddit %s %s: %d %s: %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// IsNotFound reports whether err is a 404 (deleted thread, banned sub).
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// ThingError is an entry of the "errors" array in an api_type=json response,
// e.g. ["DELETED_COMMENT", "that comment has been deleted", "parent"].
type ThingError struct {
	Code    string
	Message string
	Field   string
}

func (e *ThingError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("reddit %s: %s (%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("reddit %s: %s", e.Code, e.Message)
}

func rateLimitFromResponse(resp *http.Response, body []byte) error {
	wait := parseRetryAfter(resp.Header.Get("Retry-After"))
	if wait == 0 {
		wait = parseSeconds(resp.Header.Get("X-Ratelimit-Reset"))
	}
	msg := snippet(body)
	if msg == "" {
		msg = resp.Status
	}
	return &actuator.RateLimitError{RetryAfter: wait, Message: msg}
}

func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if when, err := http.ParseTime(v); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return 0
}

// parseSeconds accepts Reddit's X-Ratelimit-Reset value, which may carry a
// fractional part.
func parseSeconds(v string) time.Duration {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f <= 0 || math.IsInf(f, 0) {
		return 0
	}
	return time.Duration(math.Ceil(f)) * time.Second
}

var waitPattern = regexp.MustCompile(`(?i)(\d+)\s*(millisecond|second|minute|hour)s?`)

// parseWaitMessage extracts the wait from texts such as
// "you are doing that too much. try again in 5 minutes.".
func parseWaitMessage(msg string) time.Duration {
	m := waitPattern.FindStringSubmatch(msg)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	unit := time.Second
	switch strings.ToLower(m[2]) {
	case "millisecond":
		unit = time.Millisecond
	case "minute":
		unit = time.Minute
	case "hour":
		unit = time.Hour
	}
	return time.Duration(n) * unit
}

// thingErrors converts the "errors" array of a json response. A RATELIMIT
// entry becomes an *actuator.RateLimitError; hint is the response's
// "ratelimit" field in seconds, if any.
func thingErrors(raw [][]string, hint float64) error {
	if len(raw) == 0 {
		return nil
	}
	var errs []error
	for _, e := range raw {
		te := &ThingError{}
		if len(e) > 0 {
			te.Code = e[0]
		}
		if len(e) > 1 {
			te.Message = e[1]
		}
		if len(e) > 2 {
			te.Field = e[2]
		}
		if te.Code == "RATELIMIT" {
			wait := parseSeconds(strconv.FormatFloat(hint, 'f', -1, 64))
			if wait == 0 {
				wait = parseWaitMessage(te.Message)
			}
			return &actuator.RateLimitError{RetryAfter: wait, Message: te.Message}
		}
		errs = append(errs, te)
	}
	return errors.Join(errs...)
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 300 {
		s = s[:300] + "..."
	}
	return s
}
