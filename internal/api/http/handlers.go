package http

import (
	"errors"
	"time"

	"github.com/GriffinCanCode/inappgate/internal/domain/detect"
	"github.com/GriffinCanCode/inappgate/internal/domain/intercept"
	"github.com/GriffinCanCode/inappgate/internal/domain/interstitial"
	"github.com/GriffinCanCode/inappgate/internal/domain/redirect"
	"github.com/GriffinCanCode/inappgate/internal/infrastructure/logging"
	"github.com/GriffinCanCode/inappgate/internal/infrastructure/monitoring"
)

// Version is reported by Root and Health.
var Version = "dev"

// Handlers holds the gate's HTTP handlers and their dependencies.
type Handlers struct {
	allowList   *redirect.AllowList
	classifier  *detect.Classifier
	planner     interstitial.Planner
	renderer    *interstitial.Renderer
	landingPath string
	proxies     *intercept.Proxies
	continueTTL time.Duration
	logger      *logging.Logger
	metrics     *monitoring.Metrics
}

// Deps are the collaborators required by NewHandlers. Proxies, Logger and
// Metrics may be nil; a zero ContinueTTL uses intercept.DefaultContinueTTL.
type Deps struct {
	AllowList   *redirect.AllowList
	Classifier  *detect.Classifier
	Planner     interstitial.Planner
	Renderer    *interstitial.Renderer
	LandingPath string
	Proxies     *intercept.Proxies
	ContinueTTL time.Duration
	Logger      *logging.Logger
	Metrics     *monitoring.Metrics
}

// NewHandlers creates the handler set.
func NewHandlers(d Deps) (*Handlers, error) {
	switch {
	case d.AllowList == nil:
		return nil, errors.New("allow-list is required")
	case d.Classifier == nil:
		return nil, errors.New("classifier is required")
	case d.Renderer == nil:
		return nil, errors.New("renderer is required")
	case d.LandingPath == "":
		return nil, errors.New("landing path is required")
	}

	logger := d.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	metrics := d.Metrics
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}

	return &Handlers{
		allowList:   d.AllowList,
		classifier:  d.Classifier,
		planner:     d.Planner,
		renderer:    d.Renderer,
		landingPath: d.LandingPath,
		proxies:     d.Proxies,
		continueTTL: d.ContinueTTL,
		logger:      logger.Named("handlers"),
		metrics:     metrics,
	}, nil
}
