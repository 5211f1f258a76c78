package api

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
)

const requestIDHeader = "X-Request-Id"

// requestIDs hands out monotonic ULIDs; the entropy source needs a lock
// because gin runs handlers concurrently.
type requestIDs struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func newRequestIDs() *requestIDs {
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &requestIDs{entropy: ulid.Monotonic(src, 0)}
}

func (g *requestIDs) next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

// RequestID tags every request with a ULID, honoring one supplied by the
// caller or an upstream proxy.
func RequestID() gin.HandlerFunc {
	gen := newRequestIDs()
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = gen.next()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// RequestLogger emits one structured line per request.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.InfoContext(c.Request.Context(), "request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", c.GetString("request_id")))
	}
}
