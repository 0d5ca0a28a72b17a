package middleware

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/inappgate/internal/domain/intercept"
	"github.com/GriffinCanCode/inappgate/internal/infrastructure/logging"
	"github.com/GriffinCanCode/inappgate/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/inappgate/internal/infrastructure/tracing"
)

// Intercept applies the interception policy to every request. In rewrite
// mode the interstitial is served under the original URL via engine; the
// re-dispatched request is marked with tracing.WithRewrite so the global
// middleware records it once, in the outer pass.
func Intercept(policy *intercept.Policy, engine *gin.Engine, logger *logging.Logger, metrics *monitoring.Metrics) gin.HandlerFunc {
	if logger == nil {
		logger = logging.NewNop()
	}
	log := logger.Named("intercept")

	return func(c *gin.Context) {
		r := c.Request
		if tracing.Rewritten(r.Context()) {
			c.Next()
			return
		}

		in := policy.Request(r)
		outcome := policy.Decide(in)

		action := "passthrough"
		switch {
		case outcome.Passthrough():
		case outcome.Rewrite && engine != nil:
			action = "rewrite"
		default:
			action = "redirect"
		}
		if metrics != nil {
			metrics.RecordInterception(outcome.State.String(), action)
		}
		if outcome.State != intercept.StateExcluded {
			log.Debug("Interception decision",
				append(tracing.Fields(r.Context()),
					zap.String("state", outcome.State.String()),
					zap.String("action", action),
					zap.Bool("continued", in.Continued),
					logging.Path(in.Path),
					logging.UserAgent(in.UserAgent),
					logging.Location(outcome.Location),
				)...,
			)
		}

		switch action {
		case "passthrough":
			c.Next()
		case "rewrite":
			target, err := url.Parse(outcome.Location)
			if err != nil {
				c.Redirect(http.StatusFound, outcome.Location)
				c.Abort()
				return
			}
			c.Request = r.WithContext(tracing.WithRewrite(r.Context()))
			c.Request.URL.Path = target.Path
			c.Request.URL.RawPath = ""
			c.Request.URL.RawQuery = target.RawQuery
			engine.HandleContext(c)
			c.Abort()
		default:
			c.Redirect(http.StatusFound, outcome.Location)
			c.Abort()
		}
	}
}
