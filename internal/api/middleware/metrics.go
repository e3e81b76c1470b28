package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"queue-dispatch/pkg/metrics"
)

// Metrics HTTP 耗时指标中间件，route 标签取路由模板而非原始路径
func Metrics(rec *metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		rec.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
