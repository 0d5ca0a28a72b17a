package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	GRPC      GRPCConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Gate      GateConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// GRPCConfig holds the gRPC health endpoint configuration.
type GRPCConfig struct {
	Address string `envconfig:"GRPC_ADDR" default:":9090"`
	Enabled bool   `envconfig:"GRPC_ENABLED" default:"false"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration for the redirect endpoint.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"20"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"40"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// DefaultMessage is the interstitial prompt shown when GATE_MESSAGE is unset.
const DefaultMessage = "<p>For the best experience, open this page in your browser.</p>"

// GateConfig holds the detection, interception and redirect settings.
type GateConfig struct {
	AllowedHosts        []string      `envconfig:"GATE_ALLOWED_HOSTS" default:"histudios.ir,*.histudios.ir"`
	ExcludedPaths       []string      `envconfig:"GATE_EXCLUDED_PATHS" default:"/static,/assets,/favicon.ico,/robots.txt,/health,/metrics,/api"`
	InterstitialPath    string        `envconfig:"GATE_INTERSTITIAL_PATH" default:"/openpage/"`
	GuardPath           string        `envconfig:"GATE_GUARD_PATH" default:"/open"`
	LandingPath         string        `envconfig:"GATE_LANDING_PATH" default:"/home/"`
	RootRedirect        bool          `envconfig:"GATE_ROOT_REDIRECT" default:"true"`
	Mode                string        `envconfig:"GATE_MODE" default:"redirect"`
	DetectLegacyWebView bool          `envconfig:"GATE_DETECT_LEGACY_WEBVIEW" default:"true"`
	DetectIOSWebView    bool          `envconfig:"GATE_DETECT_IOS_WEBVIEW" default:"false"`
	FallbackDelay       time.Duration `envconfig:"GATE_FALLBACK_DELAY" default:"1500ms"`
	AutoOpen            bool          `envconfig:"GATE_AUTO_OPEN" default:"true"`
	ContinueTTL         time.Duration `envconfig:"GATE_CONTINUE_TTL" default:"30m"`
	AndroidPackage      string        `envconfig:"GATE_ANDROID_PACKAGE" default:"com.android.chrome"`
	Message             string        `envconfig:"GATE_MESSAGE"`
	RulesFile           string        `envconfig:"GATE_RULES_FILE"`
	// SiteDir, when set, serves static files for every passthrough request
	// that matches no gate route.
	SiteDir string `envconfig:"GATE_SITE_DIR"`
	// TrustedProxies lists the peers (IPs or CIDRs) whose X-Forwarded-*
	// headers are honoured. Empty trusts nobody.
	TrustedProxies []string `envconfig:"GATE_TRUSTED_PROXIES"`

	// Signatures come only from the rules file.
	Signatures []SignatureRule `ignored:"true"`
}

// Load loads configuration from environment variables, merges the rules
// file when one is configured, and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Gate.Message == "" {
		cfg.Gate.Message = DefaultMessage
	}

	if cfg.Gate.RulesFile != "" {
		rules, err := LoadRules(cfg.Gate.RulesFile)
		if err != nil {
			return nil, err
		}
		cfg.Gate.Apply(rules)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		GRPC: GRPCConfig{
			Address: ":9090",
			Enabled: false,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			Enabled:           true,
		},
		Gate: GateConfig{
			AllowedHosts:        []string{"histudios.ir", "*.histudios.ir"},
			ExcludedPaths:       []string{"/static", "/assets", "/favicon.ico", "/robots.txt", "/health", "/metrics", "/api"},
			InterstitialPath:    "/openpage/",
			GuardPath:           "/open",
			LandingPath:         "/home/",
			RootRedirect:        true,
			Mode:                "redirect",
			DetectLegacyWebView: true,
			DetectIOSWebView:    false,
			FallbackDelay:       1500 * time.Millisecond,
			AutoOpen:            true,
			ContinueTTL:         30 * time.Minute,
			AndroidPackage:      "com.android.chrome",
			Message:             DefaultMessage,
		},
	}
}

// Address returns the HTTP listen address.
func (c *Config) Address() string {
	return c.Server.Host + ":" + c.Server.Port
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if c.GRPC.Enabled && c.GRPC.Address == "" {
		errs = append(errs, errors.New("GRPC_ADDR must not be empty when gRPC is enabled"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}

	g := c.Gate
	if len(g.AllowedHosts) == 0 {
		errs = append(errs, errors.New("GATE_ALLOWED_HOSTS must list at least one host"))
	}
	for name, path := range map[string]string{
		"GATE_INTERSTITIAL_PATH": g.InterstitialPath,
		"GATE_GUARD_PATH":        g.GuardPath,
		"GATE_LANDING_PATH":      g.LandingPath,
	} {
		if !strings.HasPrefix(path, "/") {
			errs = append(errs, fmt.Errorf("%s must be an absolute path, got %q", name, path))
		}
	}
	if g.InterstitialPath == g.GuardPath {
		errs = append(errs, errors.New("GATE_INTERSTITIAL_PATH and GATE_GUARD_PATH must differ"))
	}
	switch strings.ToLower(g.Mode) {
	case "", "redirect", "rewrite":
	default:
		errs = append(errs, fmt.Errorf("GATE_MODE must be redirect or rewrite, got %q", g.Mode))
	}
	if g.SiteDir != "" {
		if info, err := os.Stat(g.SiteDir); err != nil || !info.IsDir() {
			errs = append(errs, fmt.Errorf("GATE_SITE_DIR %q is not a directory", g.SiteDir))
		}
	}
	if g.FallbackDelay < 0 {
		errs = append(errs, errors.New("GATE_FALLBACK_DELAY must not be negative"))
	}
	if g.ContinueTTL <= 0 {
		errs = append(errs, errors.New("GATE_CONTINUE_TTL must be positive"))
	}
	for _, p := range g.TrustedProxies {
		if !validProxy(p) {
			errs = append(errs, fmt.Errorf("GATE_TRUSTED_PROXIES entry %q is not an IP or CIDR", p))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func validProxy(s string) bool {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		_, err := netip.ParsePrefix(s)
		return err == nil
	}
	_, err := netip.ParseAddr(s)
	return err == nil
}
