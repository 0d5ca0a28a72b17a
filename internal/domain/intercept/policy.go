// Package intercept decides, per request, whether a visitor is sent to the
// interstitial page, passed through, or cosmetically redirected.
//
// Each request ends in exactly one terminal state:
//
//	Start -> Excluded   path matches an exclusion rule
//	      -> Embedded   embedded browser on a non-excluded path
//	      -> Normal     everything else, including embedded visitors that
//	                    already carry the continue marker
//
// The interstitial path and the guarded redirect path are always part of the
// exclusion set, so a request for the interstitial can never be routed to the
// interstitial again. The guarded redirect sets the continue marker, so the
// destination it sends a visitor to is not intercepted either.
package intercept

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// State is the terminal state of a single decision.
type State int

const (
	StateExcluded State = iota
	StateEmbedded
	StateNormal
)

// String returns the label used in logs and metrics.
func (s State) String() string {
	switch s {
	case StateExcluded:
		return "excluded"
	case StateEmbedded:
		return "embedded"
	case StateNormal:
		return "normal"
	default:
		return "unknown"
	}
}

// Mode selects how an embedded visitor reaches the interstitial.
type Mode string

const (
	ModeRedirect Mode = "redirect" // 302 to the interstitial
	ModeRewrite  Mode = "rewrite"  // serve the interstitial under the original URL
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeRedirect, "":
		return ModeRedirect, nil
	case ModeRewrite:
		return ModeRewrite, nil
	default:
		return "", fmt.Errorf("unknown interception mode %q", s)
	}
}

// DestinationParam carries the original absolute URL to the interstitial.
const DestinationParam = "destination"

// Classifier is the subset of the detect package the policy depends on.
type Classifier interface {
	Classify(userAgent string) bool
}

// Config holds the static inputs of a Policy.
type Config struct {
	ExcludedPaths    []string
	InterstitialPath string
	GuardPath        string
	RootPath         string
	LandingPath      string
	RootRedirect     bool
	Mode             Mode
	// Proxies may set X-Forwarded-Proto and X-Forwarded-Host. Nil trusts none.
	Proxies *Proxies
}

// Request is the part of an HTTP request the policy looks at.
type Request struct {
	Path        string
	UserAgent   string
	OriginalURL string
	Continued   bool
}

// Outcome is the result of Decide.
type Outcome struct {
	State State
	// Location is the interstitial URL for StateEmbedded, or the landing path
	// for a cosmetic root redirect. Empty means pass through.
	Location string
	Rewrite  bool
}

// Passthrough reports whether the request continues untouched.
func (o Outcome) Passthrough() bool {
	return o.Location == ""
}

// Policy is immutable and safe for concurrent use.
type Policy struct {
	classifier Classifier
	rules      []rule
	cfg        Config
}

type rule struct {
	raw  string
	glob bool
}

func (r rule) match(path string) bool {
	if r.glob {
		ok, err := doublestar.Match(r.raw, path)
		return err == nil && ok
	}
	return hasPathPrefix(path, r.raw)
}

// hasPathPrefix matches on segment boundaries: "/open" covers "/open" and
// "/open/x" and "/open?..", but not "/openpage".
func hasPathPrefix(path, prefix string) bool {
	if prefix == "/" {
		return true
	}
	p := strings.TrimSuffix(prefix, "/")
	if path == p {
		return true
	}
	return strings.HasPrefix(path, p+"/")
}

// NewPolicy validates cfg and builds a Policy.
func NewPolicy(classifier Classifier, cfg Config) (*Policy, error) {
	if classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	for name, p := range map[string]string{
		"interstitial path": cfg.InterstitialPath,
		"guard path":        cfg.GuardPath,
		"landing path":      cfg.LandingPath,
	} {
		if !strings.HasPrefix(p, "/") {
			return nil, fmt.Errorf("%s %q must start with /", name, p)
		}
	}
	if cfg.RootPath == "" {
		cfg.RootPath = "/"
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeRedirect
	}
	if _, err := ParseMode(string(cfg.Mode)); err != nil {
		return nil, err
	}

	p := &Policy{classifier: classifier, cfg: cfg}

	// Loop prevention: the interstitial and the guard endpoint are never intercepted.
	excluded := append([]string{cfg.InterstitialPath, cfg.GuardPath}, cfg.ExcludedPaths...)
	seen := make(map[string]struct{}, len(excluded))
	for _, raw := range excluded {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if _, ok := seen[raw]; ok {
			continue
		}
		seen[raw] = struct{}{}

		if !strings.HasPrefix(raw, "/") {
			return nil, fmt.Errorf("excluded path %q must start with /", raw)
		}
		r := rule{raw: raw, glob: strings.ContainsAny(raw, "*?[{")}
		if r.glob && !doublestar.ValidatePattern(raw) {
			return nil, fmt.Errorf("excluded path %q: invalid glob pattern", raw)
		}
		p.rules = append(p.rules, r)
	}

	return p, nil
}

// Request extracts the policy inputs from r.
func (p *Policy) Request(r *http.Request) Request {
	return Request{
		Path:        r.URL.Path,
		UserAgent:   r.UserAgent(),
		OriginalURL: OriginalURL(r, p.cfg.Proxies),
		Continued:   Continued(r),
	}
}

// Excluded reports whether path matches an exclusion rule.
func (p *Policy) Excluded(path string) bool {
	for _, r := range p.rules {
		if r.match(path) {
			return true
		}
	}
	return false
}

// Decide evaluates the policy for one request. OriginalURL is only used in
// the embedded branch.
func (p *Policy) Decide(req Request) Outcome {
	if p.Excluded(req.Path) {
		return Outcome{State: StateExcluded}
	}

	if !req.Continued && p.classifier.Classify(req.UserAgent) {
		return Outcome{
			State:    StateEmbedded,
			Location: p.InterstitialURL(req.OriginalURL),
			Rewrite:  p.cfg.Mode == ModeRewrite,
		}
	}

	if p.cfg.RootRedirect && req.Path == p.cfg.RootPath && req.Path != p.cfg.LandingPath {
		return Outcome{State: StateNormal, Location: p.cfg.LandingPath}
	}
	return Outcome{State: StateNormal}
}

// InterstitialURL returns the interstitial path with destination attached.
func (p *Policy) InterstitialURL(destination string) string {
	q := url.Values{}
	q.Set(DestinationParam, destination)
	return p.cfg.InterstitialPath + "?" + q.Encode()
}
