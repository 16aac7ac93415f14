package cache

import (
	"fmt"
	"time"
)

const (
	// RateLimitWindow is the length of one fixed rate limit window.
	RateLimitWindow = time.Minute
	// RateLimitTTL outlives the window so a counter is never dropped mid-window.
	RateLimitTTL = 2 * RateLimitWindow
)

// RateLimitKey generates Redis key for one client's counter in one window
func RateLimitKey(clientIP string, window int64) string {
	return fmt.Sprintf("ratelimit:ip:%s:%d", clientIP, window)
}

// RateLimitWindowAt returns the index of the window t falls into.
func RateLimitWindowAt(t time.Time) int64 {
	return t.Unix() / int64(RateLimitWindow/time.Second)
}
