package middlewares

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"gracechat-server/internal/infrastructure/auth"
	"gracechat-server/internal/infrastructure/metrics"
)

// slidingWindow counts requests per caller inside a rolling window. A full
// sweep runs at most once per window so idle callers do not accumulate.
type slidingWindow struct {
	limit  int
	window time.Duration

	mu        sync.Mutex
	history   map[string][]time.Time
	lastSweep time.Time
}

func newSlidingWindow(limit int, window time.Duration) *slidingWindow {
	return &slidingWindow{
		limit:   limit,
		window:  window,
		history: make(map[string][]time.Time),
	}
}

// allow records the request unless the caller is over the limit. On rejection
// it returns how long the caller should wait before retrying.
func (w *slidingWindow) allow(key string, now time.Time) (bool, time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if now.Sub(w.lastSweep) >= w.window {
		w.sweep(now)
	}

	kept := pruneBefore(w.history[key], now.Add(-w.window))
	if len(kept) >= w.limit {
		w.history[key] = kept
		return false, w.window - now.Sub(kept[0])
	}
	w.history[key] = append(kept, now)
	return true, 0
}

// sweep prunes every caller and drops the ones with no recent requests.
func (w *slidingWindow) sweep(now time.Time) {
	cutoff := now.Add(-w.window)
	for key, stamps := range w.history {
		kept := pruneBefore(stamps, cutoff)
		if len(kept) == 0 {
			delete(w.history, key)
			continue
		}
		w.history[key] = kept
	}
	w.lastSweep = now
}

func pruneBefore(stamps []time.Time, cutoff time.Time) []time.Time {
	kept := stamps[:0]
	for _, stamp := range stamps {
		if stamp.After(cutoff) {
			kept = append(kept, stamp)
		}
	}
	return kept
}

// RateLimitMiddleware rejects a caller's request once it has sent more than
// `limit` requests within the rolling window. Rejected requests never reach
// the guidance provider.
func RateLimitMiddleware(limit int, window time.Duration) gin.HandlerFunc {
	limiter := newSlidingWindow(limit, window)

	return func(c *gin.Context) {
		ok, retryAfter := limiter.allow(rateKey(c), time.Now())
		if !ok {
			metrics.QuotaRejectionsTotal.Inc()
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests. Please wait before asking again.",
			})
			return
		}
		c.Next()
	}
}

// rateKey identifies the caller: the authenticated principal when present,
// the network address otherwise.
func rateKey(c *gin.Context) string {
	if sub := auth.Subject(c); sub != "" {
		return "pid:" + sub
	}
	if ip := clientIP(c.ClientIP()); ip != "" {
		return "ip:" + ip
	}
	return "anonymous"
}

// Normalize IPv6-mapped IPv4 etc.
func clientIP(raw string) string {
	if raw == "" {
		return ""
	}
	if ip := net.ParseIP(raw); ip != nil {
		return ip.String()
	}
	return raw
}
