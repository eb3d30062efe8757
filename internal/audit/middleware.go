package audit

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WriteMiddleware records every non-GET request under /api/ after it has been
// served. Sink failures are logged at debug and never affect the response.
func WriteMiddleware(p *Client, logger *zap.Logger) gin.HandlerFunc {
	if p == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		method := strings.ToUpper(c.Request.Method)
		if !strings.HasPrefix(path, "/api/") {
			return
		}
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			return
		}

		status := c.Writer.Status()
		details := map[string]any{
			"method":   method,
			"path":     path,
			"route":    c.FullPath(),
			"status":   status,
			"duration": time.Since(start).String(),
		}
		if id := c.Param("id"); id != "" {
			details["deal_id"] = id
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := p.Send(ctx, Record{
			Action:  "dealflow_http_write",
			Level:   LevelFromStatus(status),
			Details: details,
		})
		if err != nil && logger != nil {
			logger.Debug("audit log failed", zap.Error(err))
		}
	}
}

func LevelFromStatus(status int) string {
	if status >= 500 {
		return "error"
	}
	if status >= 400 {
		return "warn"
	}
	return "info"
}
