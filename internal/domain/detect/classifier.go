package detect

import (
	"fmt"
	"regexp"
	"strings"
)

// Signature names one embedded browser and the pattern that identifies it.
type Signature struct {
	Name    string
	Pattern string
}

// Match describes a positive classification.
type Match struct {
	App string
}

// Heuristic names reported in Match.App when no branded signature matched.
const (
	AppAndroidWebView = "Android WebView"
	AppLegacyWebView  = "Android WebView (legacy)"
	AppIOSWebView     = "iOS WebView"
)

// DefaultSignatures is the built-in signature table.
var DefaultSignatures = []Signature{
	{Name: "Messenger", Pattern: `FBAN/Messenger|MessengerForiOS|FB_IAB/Orca`},
	{Name: "Facebook", Pattern: `FBAN|FBAV|FB_IAB|FBIOS|FB4A`},
	{Name: "Instagram", Pattern: `Instagram`},
	{Name: "Telegram", Pattern: `Telegram`},
	{Name: "Twitter", Pattern: `Twitter`},
	{Name: "LINE", Pattern: `\bLine/`},
	{Name: "WhatsApp", Pattern: `WhatsApp`},
	{Name: "WeChat", Pattern: `MicroMessenger`},
	{Name: "Snapchat", Pattern: `Snapchat`},
	{Name: "TikTok", Pattern: `musical_ly|BytedanceWebview|TikTok`},
	{Name: "LinkedIn", Pattern: `LinkedInApp`},
	{Name: "Pinterest", Pattern: `Pinterest`},
	{Name: "WebView", Pattern: `\bWebView\b`},
}

var (
	androidWV     = regexp.MustCompile(`(?i);\s*wv\)`)
	androidToken  = regexp.MustCompile(`(?i)\bAndroid\b`)
	versionToken  = regexp.MustCompile(`(?i)\bVersion/\d`)
	chromeToken   = regexp.MustCompile(`(?i)\bChrome/`)
	iosDevice     = regexp.MustCompile(`(?i)\b(iPhone|iPad|iPod)\b`)
	safariToken   = regexp.MustCompile(`(?i)\bSafari/`)
	standaloneIOS = regexp.MustCompile(`(?i)\b(CriOS|FxiOS|EdgiOS|OPiOS)/`)
)

// Options toggles the heuristics that are prone to false positives.
type Options struct {
	LegacyAndroidWebView bool
	IOSWebView           bool
}

// DefaultOptions enables the legacy Android heuristic only.
func DefaultOptions() Options {
	return Options{LegacyAndroidWebView: true}
}

type compiled struct {
	name string
	re   *regexp.Regexp
}

// Classifier holds a compiled signature table. It is immutable after
// construction and safe for concurrent use.
type Classifier struct {
	signatures []compiled
	opts       Options
}

// NewClassifier compiles the default table plus any extra signatures.
func NewClassifier(opts Options, extra ...Signature) (*Classifier, error) {
	all := make([]Signature, 0, len(DefaultSignatures)+len(extra))
	all = append(all, DefaultSignatures...)
	all = append(all, extra...)

	c := &Classifier{opts: opts, signatures: make([]compiled, 0, len(all))}
	for _, sig := range all {
		if strings.TrimSpace(sig.Pattern) == "" {
			return nil, fmt.Errorf("signature %q: empty pattern", sig.Name)
		}
		re, err := regexp.Compile("(?i)" + sig.Pattern)
		if err != nil {
			return nil, fmt.Errorf("signature %q: %w", sig.Name, err)
		}
		c.signatures = append(c.signatures, compiled{name: sig.Name, re: re})
	}
	return c, nil
}

var defaultClassifier = func() *Classifier {
	c, err := NewClassifier(DefaultOptions())
	if err != nil {
		panic(err)
	}
	return c
}()

// Default returns the classifier built from DefaultSignatures and DefaultOptions.
func Default() *Classifier {
	return defaultClassifier
}

// Classify reports whether userAgent belongs to an embedded browser.
func Classify(userAgent string) bool {
	return defaultClassifier.Classify(userAgent)
}

// Classify reports whether userAgent belongs to an embedded browser.
func (c *Classifier) Classify(userAgent string) bool {
	_, ok := c.Detect(userAgent)
	return ok
}

// Detect returns the first matching signature. An empty userAgent never matches.
func (c *Classifier) Detect(userAgent string) (Match, bool) {
	if strings.TrimSpace(userAgent) == "" {
		return Match{}, false
	}

	for _, sig := range c.signatures {
		if sig.re.MatchString(userAgent) {
			return Match{App: sig.name}, true
		}
	}

	if androidWV.MatchString(userAgent) {
		return Match{App: AppAndroidWebView}, true
	}

	if c.opts.LegacyAndroidWebView &&
		androidToken.MatchString(userAgent) &&
		versionToken.MatchString(userAgent) &&
		chromeToken.MatchString(userAgent) {
		return Match{App: AppLegacyWebView}, true
	}

	if c.opts.IOSWebView &&
		iosDevice.MatchString(userAgent) &&
		!safariToken.MatchString(userAgent) &&
		!standaloneIOS.MatchString(userAgent) {
		return Match{App: AppIOSWebView}, true
	}

	return Match{}, false
}
