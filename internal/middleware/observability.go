package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pantrykit/pantry-api/pkg/logger"
	"github.com/pantrykit/pantry-api/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// sensitiveQueryParams never reach the logs; token carries a live magic link
var sensitiveQueryParams = map[string]bool{
	"token": true, "code": true, "secret": true, "key": true,
	"recaptchatoken": true, "api_key": true,
}

// ObservabilityMiddleware instruments HTTP requests with metrics and logging
func ObservabilityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		metrics.ActiveRequests.WithLabelValues(method).Inc()
		defer metrics.ActiveRequests.WithLabelValues(method).Dec()

		c.Next()

		// Route templates keep label cardinality bounded; proxied pages and
		// gate redirects have no template
		path := c.FullPath()
		if path == "" {
			path = routeFallback(c.Writer.Status())
		}

		// Measure duration
		duration := metrics.MeasureDuration(start)
		status := c.Writer.Status()
		statusStr := strconv.Itoa(status)

		metrics.HTTPRequestDuration.WithLabelValues(method, path, statusStr).Observe(duration)
		metrics.HTTPRequestTotal.WithLabelValues(method, path, statusStr).Inc()

		actualPath := c.Request.URL.Path
		fields := []zap.Field{
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.Int("response_size", c.Writer.Size()),
		}
		if claims, err := GetSession(c); err == nil {
			fields = append(fields, zap.String("user_id", claims.UserID))
		}

		if status >= 400 {
			if len(c.Params) > 0 {
				params := make(map[string]string, len(c.Params))
				for _, p := range c.Params {
					params[p.Key] = p.Value
				}
				fields = append(fields, zap.Any("route_params", params))
			}

			if query := c.Request.URL.Query(); len(query) > 0 {
				sanitized := make(map[string]string, len(query))
				for k, v := range query {
					if !sensitiveQueryParams[strings.ToLower(k)] && len(v) > 0 {
						sanitized[k] = v[0]
					}
				}
				if len(sanitized) > 0 {
					fields = append(fields, zap.Any("query_params", sanitized))
				}
			}

			if len(c.Errors) > 0 {
				fields = append(fields, zap.String("error", c.Errors.String()))
			}
		}

		logger.LogHTTPRequest(c.Request.Context(), method, actualPath, status, duration, fields...)
	}
}

func routeFallback(status int) string {
	switch {
	case status == http.StatusFound:
		return "gate_redirect"
	case status == http.StatusNotFound:
		return "unmatched"
	default:
		return "frontend"
	}
}
