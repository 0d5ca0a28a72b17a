// Package interstitial builds and renders the page shown to embedded-browser
// visitors.
//
// Every navigation the page can trigger (open externally, continue, timed
// fallback) targets the guarded redirect endpoint, never the raw destination
// parameter.
package interstitial

import (
	"net/url"
	"strings"
	"time"

	"github.com/GriffinCanCode/inappgate/internal/domain/detect"
)

// GuardParam is the query parameter read by the guarded redirect endpoint.
const GuardParam = "u"

// DefaultFallbackDelay matches the timer used when the external-open attempt
// produces no visible effect.
const DefaultFallbackDelay = 1500 * time.Millisecond

// DefaultAndroidPackage is Chrome, the browser most Android devices ship.
const DefaultAndroidPackage = "com.android.chrome"

// Plan describes every navigation the interstitial can perform.
type Plan struct {
	Destination   string
	Platform      detect.Platform
	ExternalURL   string
	ContinueURL   string
	FallbackURL   string
	FallbackDelay time.Duration
	// ShowGuidance is set where no programmatic external open exists and the
	// visitor must use the app's "open in browser" menu.
	ShowGuidance bool
	// AutoOpen runs the external-then-fallback sequence on page load instead
	// of waiting for a click.
	AutoOpen bool
}

// Planner builds plans from static configuration.
type Planner struct {
	GuardPath     string
	LandingPath   string
	FallbackDelay time.Duration
	// AndroidPackage is the browser package targeted by the intent URL.
	// Empty lets Android pick the default browser.
	AndroidPackage string
	// AutoOpen attempts the external open as soon as the page loads. It never
	// applies where guidance is shown, so the guidance stays readable.
	AutoOpen bool
}

// BuildPlan returns the plan for one interstitial view. destination is the raw
// query parameter; origin is scheme://host of the current request.
func (p Planner) BuildPlan(destination, userAgent, origin string) Plan {
	if strings.TrimSpace(destination) == "" {
		destination = origin + p.LandingPath
	}

	guard := p.GuardURL(origin, destination)
	delay := p.FallbackDelay
	if delay <= 0 {
		delay = DefaultFallbackDelay
	}

	plan := Plan{
		Destination:   destination,
		Platform:      detect.PlatformOf(userAgent),
		ContinueURL:   guard,
		FallbackURL:   guard,
		FallbackDelay: delay,
	}

	switch plan.Platform {
	case detect.PlatformAndroid:
		plan.ExternalURL = IntentURL(guard, p.AndroidPackage)
	case detect.PlatformIOS:
		plan.ExternalURL = guard
		plan.ShowGuidance = true
	default:
		plan.ExternalURL = guard
	}
	plan.AutoOpen = p.AutoOpen && !plan.ShowGuidance
	return plan
}

// GuardURL returns the absolute guarded endpoint URL for destination.
func (p Planner) GuardURL(origin, destination string) string {
	q := url.Values{}
	q.Set(GuardParam, destination)
	return origin + p.GuardPath + "?" + q.Encode()
}

// IntentURL wraps an absolute http(s) URL in an Android intent URL that asks
// the OS to open it in a browser, falling back to the same URL in place.
func IntentURL(target, pkg string) string {
	scheme := "https"
	rest := target
	switch {
	case strings.HasPrefix(target, "https://"):
		rest = strings.TrimPrefix(target, "https://")
	case strings.HasPrefix(target, "http://"):
		scheme = "http"
		rest = strings.TrimPrefix(target, "http://")
	}

	var b strings.Builder
	b.WriteString("intent://")
	b.WriteString(rest)
	b.WriteString("#Intent;scheme=")
	b.WriteString(scheme)
	b.WriteString(";")
	if pkg != "" {
		b.WriteString("package=")
		b.WriteString(pkg)
		b.WriteString(";")
	}
	b.WriteString("S.browser_fallback_url=")
	b.WriteString(url.QueryEscape(target))
	b.WriteString(";end;")
	return b.String()
}
