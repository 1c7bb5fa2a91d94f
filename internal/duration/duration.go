// internal/duration/duration.go
package duration

import (
	"strconv"
	"strings"
	"time"

	custom_errors "repo-notion-sync/internal/errors"
)

const day = 24 * time.Hour

// Parse converts an interval such as "12h" or "1d" into a time.Duration.
func Parse(s string) (time.Duration, error) {
	var unit time.Duration
	switch {
	case strings.HasSuffix(s, "h"):
		unit = time.Hour
	case strings.HasSuffix(s, "d"):
		unit = day
	default:
		return 0, &custom_errors.ErrInvalidDurationFormat{Value: s}
	}

	digits := s[:len(s)-1]
	if digits == "" || strings.TrimLeft(digits, "0123456789") != "" {
		return 0, &custom_errors.ErrInvalidDurationFormat{Value: s}
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n > int64(1<<63-1)/int64(unit) {
		return 0, &custom_errors.ErrInvalidDurationFormat{Value: s}
	}
	return time.Duration(n) * unit, nil
}

// Format renders d in the form accepted by Parse. Whole days use the "d"
// suffix; anything else is truncated to whole hours.
func Format(d time.Duration) string {
	if d >= day && d%day == 0 {
		return strconv.FormatInt(int64(d/day), 10) + "d"
	}
	return strconv.FormatInt(int64(d/time.Hour), 10) + "h"
}
