package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPMetrics is the request accounting sink.
type HTTPMetrics interface {
	RequestStarted()
	RequestFinished()
	RecordHTTPRequest(method, path string, statusCode int, duration time.Duration)
}

// Metrics records in-flight and completed requests.  The path label is the
// matched route template so ids in URLs do not explode cardinality.
func Metrics(m HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		m.RequestStarted()
		start := time.Now()
		defer func() {
			m.RequestFinished()
			path := c.FullPath()
			if path == "" {
				path = "unmatched"
			}
			m.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
		}()
		c.Next()
	}
}
