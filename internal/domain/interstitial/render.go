package interstitial

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/microcosm-cc/bluemonday"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page holds everything the template needs.
type Page struct {
	Plan
	Message template.HTML
	// ExternalHref carries intent:// URLs, which html/template would
	// otherwise replace as an unsafe scheme.
	ExternalHref   template.URL
	Guidance       string
	FallbackMillis int64
}

// Renderer renders the interstitial page. The operator message is sanitized
// once at construction.
type Renderer struct {
	tmpl     *template.Template
	message  template.HTML
	guidance string
}

// DefaultGuidance is shown on iOS where apps offer no programmatic escape.
const DefaultGuidance = "Tap the menu (⋯) and choose \"Open in Safari\" or \"Open in browser\"."

// NewRenderer parses the embedded template and sanitizes message, which may
// contain simple formatting markup.
func NewRenderer(message string) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/interstitial.html")
	if err != nil {
		return nil, fmt.Errorf("parse interstitial template: %w", err)
	}

	policy := bluemonday.UGCPolicy()
	return &Renderer{
		tmpl:     tmpl,
		message:  template.HTML(policy.Sanitize(message)),
		guidance: DefaultGuidance,
	}, nil
}

// Render writes the page for plan to w.
func (r *Renderer) Render(w io.Writer, plan Plan) error {
	page := Page{
		Plan:           plan,
		Message:        r.message,
		ExternalHref:   template.URL(plan.ExternalURL),
		FallbackMillis: plan.FallbackDelay.Milliseconds(),
	}
	if plan.ShowGuidance {
		page.Guidance = r.guidance
	}
	return r.tmpl.ExecuteTemplate(w, "interstitial.html", page)
}
