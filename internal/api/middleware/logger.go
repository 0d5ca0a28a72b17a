package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/inappgate/internal/infrastructure/logging"
	"github.com/GriffinCanCode/inappgate/internal/infrastructure/tracing"
)

// RequestLogger logs one line per request at debug level. Query strings are
// left out because they carry visitor destinations.
func RequestLogger(logger *logging.Logger) gin.HandlerFunc {
	log := logger.Named("http")
	return func(c *gin.Context) {
		if tracing.Rewritten(c.Request.Context()) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		fields := append(tracing.Fields(c.Request.Context()),
			zap.String("method", c.Request.Method),
			logging.Path(c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
		if len(c.Errors) > 0 {
			log.Warn("Request failed", append(fields, zap.String("errors", c.Errors.String()))...)
			return
		}
		log.Debug("Request", fields...)
	}
}
