package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/smallbiznis/flyerpoint/internal/observability/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	headerRequestID     = "X-Request-Id"
	headerCorrelationID = "X-Correlation-Id"
)

// MiddlewareConfig controls request logging.
type MiddlewareConfig struct {
	Debug bool
	// ErrorClassifier maps the last handler error to (type, code) log fields.
	ErrorClassifier func(err error) (string, string)
}

// GinMiddleware assigns request and correlation ids, then writes one
// http_request entry per request once the handlers return.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := requestIDFrom(c)
		c.Set("request_id", requestID)
		c.Header(headerRequestID, requestID)

		ctx := obscontext.WithRequestID(c.Request.Context(), requestID)
		ctx = obscontext.WithCorrelationID(ctx, c.GetHeader(headerCorrelationID))
		ctx, correlationID := obscontext.EnsureCorrelationID(ctx)
		c.Header(headerCorrelationID, correlationID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Int64("bytes_in", max(c.Request.ContentLength, 0)),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
		}
		if event := c.GetString("reward_event"); event != "" {
			fields = append(fields, zap.String("reward_event", event))
		}

		errorCode := ""
		if last := c.Errors.Last(); last != nil {
			errorType := ""
			if cfg.ErrorClassifier != nil {
				errorType, errorCode = cfg.ErrorClassifier(last.Err)
			}
			fields = append(fields, zap.String("error_type", errorType), zap.String("error_code", errorCode))
			if cfg.Debug {
				fields = append(fields, zap.Stack("stack"))
			}
		}

		FromContext(c.Request.Context()).Log(requestLevel(route, c.Writer.Status(), errorCode), "http_request", fields...)
	}
}

func requestIDFrom(c *gin.Context) string {
	for _, candidate := range []string{c.GetHeader(headerRequestID), c.GetString("request_id")} {
		if id := strings.TrimSpace(candidate); id != "" {
			return id
		}
	}
	return uuid.NewString()
}

// requestLevel demotes scrapes and duplicate reward claims to debug.
func requestLevel(route string, status int, errorCode string) zapcore.Level {
	switch {
	case route == "/metrics" || route == "/health":
		return zapcore.DebugLevel
	case status == http.StatusConflict && errorCode == "already_rewarded" && rewardRoutes[route]:
		return zapcore.DebugLevel
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

var rewardRoutes = map[string]bool{
	"/api/share":        true,
	"/api/quiz/attempt": true,
	"/api/qr/verify":    true,
}
