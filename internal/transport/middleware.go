package transport

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	portidem "github.com/alanyang/build-mesh/internal/port/idempotency"
)

// IdempotencyHeader carries the client-chosen key for a mutating request.
const IdempotencyHeader = "Idempotency-Key"

// noisyPaths are high-frequency read paths logged at Debug to keep Info clean.
var noisyPaths = map[string]bool{
	"/api/buildrequests": true,
	"/api/workers":       true,
	"/api/distributor":   true,
	"/api/ws":            true,
	"/metrics":           true,
}

func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if c.Request.Method == http.MethodOptions {
			return
		}

		level := slog.LevelInfo
		if c.Request.Method == http.MethodGet && noisyPaths[c.Request.URL.Path] {
			level = slog.LevelDebug
		}
		slog.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS, PUT")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+IdempotencyHeader)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// storedResponse is what the idempotency store keeps for a key.
type storedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body,omitempty"`
}

// captureWriter tees the response body so it can be stored after the handler runs.
type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the stored response for a POST or DELETE that carries
// an Idempotency-Key already seen. Only 2xx responses are stored, so a failed request
// can be retried with the same key.
func IdempotencyMiddleware(store portidem.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if key == "" || (c.Request.Method != http.MethodPost && c.Request.Method != http.MethodDelete) {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		if raw, found, err := store.Check(ctx, key); err != nil {
			slog.ErrorContext(ctx, "idempotency check failed", "key", key, "error", err)
		} else if found {
			var prev storedResponse
			if err := json.Unmarshal(raw, &prev); err == nil {
				c.Header("Idempotent-Replay", "true")
				if len(prev.Body) == 0 {
					c.AbortWithStatus(prev.Status)
					return
				}
				c.Data(prev.Status, "application/json; charset=utf-8", prev.Body)
				c.Abort()
				return
			}
			slog.WarnContext(ctx, "ignoring unreadable idempotency record", "key", key)
		}

		cw := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = cw
		c.Next()

		status := cw.Status()
		if status < 200 || status >= 300 {
			return
		}
		rec := storedResponse{Status: status}
		if cw.body.Len() > 0 {
			rec.Body = json.RawMessage(cw.body.Bytes())
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return
		}
		op := c.Request.Method + " " + c.FullPath()
		if err := store.Store(ctx, key, op, data); err != nil {
			slog.ErrorContext(ctx, "failed to store idempotency record", "key", key, "error", err)
		}
	}
}
