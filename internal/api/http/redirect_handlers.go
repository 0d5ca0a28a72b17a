package http

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/inappgate/internal/domain/intercept"
	"github.com/GriffinCanCode/inappgate/internal/domain/interstitial"
	"github.com/GriffinCanCode/inappgate/internal/infrastructure/logging"
	"github.com/GriffinCanCode/inappgate/internal/infrastructure/tracing"
)

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Referrer-Policy", "no-referrer")
}

// Open is the guarded redirect. Allowed targets get a 302 to the exact
// candidate plus the continue marker, so the interception policy lets the
// visitor through on arrival; every rejection gets a 302 to the landing path.
func (h *Handlers) Open(c *gin.Context) {
	candidate := c.Query(interstitial.GuardParam)
	decision := h.allowList.Resolve(candidate)
	h.metrics.RecordRedirect(decision.Allowed(), string(decision.Reason))

	noStore(c)
	ctxFields := tracing.Fields(c.Request.Context())

	if !decision.Allowed() {
		h.logger.Info("Redirect rejected",
			append(ctxFields,
				logging.Reason(string(decision.Reason)),
				logging.Host(decision.Host),
				zap.Int("length", len(candidate)),
			)...,
		)
		c.Redirect(http.StatusFound, h.landingPath)
		return
	}

	h.logger.Debug("Redirect allowed", append(ctxFields, logging.Host(decision.Host))...)
	intercept.MarkContinued(c.Writer, c.Request, h.proxies, h.continueTTL)
	c.Redirect(http.StatusFound, decision.Target)
}

// Interstitial renders the open-in-browser page for the destination carried
// in the query.
func (h *Handlers) Interstitial(c *gin.Context) {
	ua := c.Request.UserAgent()
	match, embedded := h.classifier.Detect(ua)
	h.metrics.RecordClassification(match.App)

	plan := h.planner.BuildPlan(c.Query(intercept.DestinationParam), ua, intercept.Origin(c.Request, h.proxies))

	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, plan); err != nil {
		h.logger.Error("Interstitial render failed", append(tracing.Fields(c.Request.Context()), zap.Error(err))...)
		_ = c.Error(err)
		c.Redirect(http.StatusFound, h.landingPath)
		return
	}

	h.logger.Debug("Interstitial served",
		append(tracing.Fields(c.Request.Context()),
			logging.App(match.App),
			zap.Bool("embedded", embedded),
			zap.String("platform", string(plan.Platform)),
		)...,
	)

	noStore(c)
	c.Header("X-Robots-Tag", "noindex")
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
