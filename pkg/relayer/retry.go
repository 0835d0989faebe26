package relayer

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// MinRetryAfter floors every wait, whatever the server asked for.
	MinRetryAfter = time.Second
	// DefaultRetryAfter is used when the Retry-After header is missing or unparsable.
	DefaultRetryAfter = 2 * time.Second
	// maxLoopIterations is a safety ceiling on post and poll iterations.
	maxLoopIterations = 100
	// maxRetryAfterSeconds is the largest whole-second count a time.Duration holds.
	maxRetryAfterSeconds = math.MaxInt64 / int64(time.Second)
)

// parseRetryAfter reads Retry-After as a non-negative integer count of seconds.
// Counts beyond what a time.Duration can hold are clamped.
func parseRetryAfter(h http.Header) (time.Duration, string, bool) {
	raw := strings.TrimSpace(h.Get("Retry-After"))
	if raw == "" {
		return 0, raw, false
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if (err != nil && !errors.Is(err, strconv.ErrRange)) || secs < 0 {
		return 0, raw, false
	}
	if secs > maxRetryAfterSeconds {
		secs = maxRetryAfterSeconds
	}
	return time.Duration(secs) * time.Second, raw, true
}

func floorRetryAfter(d time.Duration) time.Duration {
	if d < MinRetryAfter {
		return MinRetryAfter
	}
	return d
}
