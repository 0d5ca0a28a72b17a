package server

import (
	"fmt"

	"github.com/GriffinCanCode/inappgate/internal/domain/detect"
	"github.com/GriffinCanCode/inappgate/internal/domain/intercept"
	"github.com/GriffinCanCode/inappgate/internal/domain/interstitial"
	"github.com/GriffinCanCode/inappgate/internal/domain/redirect"
	"github.com/GriffinCanCode/inappgate/internal/infrastructure/config"
)

// Components are the domain objects built from configuration.
type Components struct {
	Classifier *detect.Classifier
	AllowList  *redirect.AllowList
	Policy     *intercept.Policy
	Proxies    *intercept.Proxies
	Planner    interstitial.Planner
	Renderer   *interstitial.Renderer
}

// NewClassifier builds the classifier from the gate config, including rules
// file signatures.
func NewClassifier(g config.GateConfig) (*detect.Classifier, error) {
	extra := make([]detect.Signature, 0, len(g.Signatures))
	for _, s := range g.Signatures {
		extra = append(extra, detect.Signature{Name: s.Name, Pattern: s.Pattern})
	}
	return detect.NewClassifier(detect.Options{
		LegacyAndroidWebView: g.DetectLegacyWebView,
		IOSWebView:           g.DetectIOSWebView,
	}, extra...)
}

// BuildComponents validates and assembles every domain object.
func BuildComponents(g config.GateConfig) (*Components, error) {
	classifier, err := NewClassifier(g)
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}

	allowList, err := redirect.NewAllowList(g.AllowedHosts)
	if err != nil {
		return nil, fmt.Errorf("build allow-list: %w", err)
	}

	proxies, err := intercept.ParseProxies(g.TrustedProxies)
	if err != nil {
		return nil, err
	}

	mode, err := intercept.ParseMode(g.Mode)
	if err != nil {
		return nil, err
	}
	policy, err := intercept.NewPolicy(classifier, intercept.Config{
		ExcludedPaths:    g.ExcludedPaths,
		InterstitialPath: g.InterstitialPath,
		GuardPath:        g.GuardPath,
		LandingPath:      g.LandingPath,
		RootRedirect:     g.RootRedirect,
		Mode:             mode,
		Proxies:          proxies,
	})
	if err != nil {
		return nil, fmt.Errorf("build interception policy: %w", err)
	}

	renderer, err := interstitial.NewRenderer(g.Message)
	if err != nil {
		return nil, err
	}

	return &Components{
		Classifier: classifier,
		AllowList:  allowList,
		Policy:     policy,
		Proxies:    proxies,
		Planner: interstitial.Planner{
			GuardPath:      g.GuardPath,
			LandingPath:    g.LandingPath,
			FallbackDelay:  g.FallbackDelay,
			AndroidPackage: g.AndroidPackage,
			AutoOpen:       g.AutoOpen,
		},
		Renderer: renderer,
	}, nil
}
