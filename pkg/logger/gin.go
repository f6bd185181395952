package logger

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	headerRequestID = "X-Request-Id"
	maxRequestIDLen = 64

	ginLoggerKey = "headsetd.logger"

	// ClientKey is the gin context key holding the authenticated client id. The auth
	// middleware sets it; RequestLogger reads it after the handler chain ran.
	ClientKey = "headsetd.client"
)

// RequestLogger tags every request with a request id, stores the tagged logger in both
// the gin and request contexts, and writes one line per finished request.
//
// Health probes log at debug. Long-lived event streams (status 101) log as "stream" so
// their duration is not read as request latency. The query string is never logged; it
// can carry access_token.
func RequestLogger(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		rid := c.GetHeader(headerRequestID)
		if rid == "" || len(rid) > maxRequestIDLen {
			rid = uuid.NewString()
		}
		c.Writer.Header().Set(headerRequestID, rid)

		reqLogger := l.With("request_id", rid)
		c.Set(ginLoggerKey, reqLogger)
		c.Request = c.Request.WithContext(With(c.Request.Context(), reqLogger))

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		attrs := []any{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if client := c.GetString(ClientKey); client != "" {
			attrs = append(attrs, "client", client)
		}

		switch {
		case len(c.Errors) > 0:
			reqLogger.Error("request", append(attrs, "errors", c.Errors.String())...)
		case status == http.StatusSwitchingProtocols:
			reqLogger.Info("stream", attrs...)
		case route == "/healthz":
			reqLogger.Debug("request", attrs...)
		default:
			reqLogger.Info("request", attrs...)
		}
	}
}

// FromGin returns the request logger set by RequestLogger, or slog.Default().
func FromGin(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(ginLoggerKey); ok {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}
