package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/inappgate/internal/infrastructure/tracing"
)

// Middleware creates a Gin middleware for metrics collection. Requests are
// labelled by route template, never by raw path, to bound cardinality.
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tracing.Rewritten(c.Request.Context()) {
			c.Next()
			return
		}

		start := time.Now()
		method := c.Request.Method

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		size := int64(c.Writer.Size())
		if size < 0 {
			size = 0
		}

		metrics.RecordHTTPRequest(method, route, status, time.Since(start), size)
	}
}
