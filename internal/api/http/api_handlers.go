package http

import (
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/inappgate/internal/domain/detect"
	"github.com/GriffinCanCode/inappgate/internal/domain/interstitial"
)

// ClassifyResponse is returned by Classify.
type ClassifyResponse struct {
	Embedded bool   `json:"embedded"`
	App      string `json:"app,omitempty"`
	Platform string `json:"platform"`
}

// ResolveResponse is returned by Resolve.
type ResolveResponse struct {
	Allowed bool   `json:"allowed"`
	Target  string `json:"target,omitempty"`
	Host    string `json:"host,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// writeJSON encodes with sonic and escapes HTML so echoed URLs are inert.
func (h *Handlers) writeJSON(c *gin.Context, status int, v any) {
	data, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		h.logger.Error("JSON encode failed", zap.Error(err))
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Data(status, "application/json; charset=utf-8", data)
}

// Classify reports the verdict for the ua query parameter, or for the
// caller's own User-Agent when absent.
func (h *Handlers) Classify(c *gin.Context) {
	ua, ok := c.GetQuery("ua")
	if !ok {
		ua = c.Request.UserAgent()
	}

	match, embedded := h.classifier.Detect(ua)
	h.metrics.RecordClassification(match.App)

	h.writeJSON(c, http.StatusOK, ClassifyResponse{
		Embedded: embedded,
		App:      match.App,
		Platform: string(detect.PlatformOf(ua)),
	})
}

// Resolve dry-runs the guarded redirect without redirecting.
func (h *Handlers) Resolve(c *gin.Context) {
	d := h.allowList.Resolve(c.Query(interstitial.GuardParam))

	h.writeJSON(c, http.StatusOK, ResolveResponse{
		Allowed: d.Allowed(),
		Target:  d.Target,
		Host:    d.Host,
		Reason:  string(d.Reason),
	})
}

// Stats returns the running totals kept by the metrics collector.
func (h *Handlers) Stats(c *gin.Context) {
	h.writeJSON(c, http.StatusOK, h.metrics.Snapshot())
}

// AllowList lists the configured allow-list entries.
func (h *Handlers) AllowList(c *gin.Context) {
	entries := h.allowList.Entries()
	hosts := make([]string, 0, len(entries))
	for _, e := range entries {
		hosts = append(hosts, e.String())
	}
	h.writeJSON(c, http.StatusOK, gin.H{"hosts": hosts})
}

// Root describes the service when the root path is not redirected.
func (h *Handlers) Root(c *gin.Context) {
	h.writeJSON(c, http.StatusOK, gin.H{
		"service": "inappgate",
		"version": Version,
		"status":  "running",
	})
}

// Health reports liveness.
func (h *Handlers) Health(c *gin.Context) {
	h.writeJSON(c, http.StatusOK, gin.H{
		"status":        "healthy",
		"version":       Version,
		"allowed_hosts": h.allowList.Len(),
	})
}
