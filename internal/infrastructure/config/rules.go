package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// SignatureRule is an extra embedded-browser signature declared in a rules file.
type SignatureRule struct {
	Name    string `yaml:"name" toml:"name"`
	Pattern string `yaml:"pattern" toml:"pattern"`
}

// Rules extends the environment configuration. Lists are appended, never
// replaced.
type Rules struct {
	AllowedHosts  []string        `yaml:"allowed_hosts" toml:"allowed_hosts"`
	ExcludedPaths []string        `yaml:"excluded_paths" toml:"excluded_paths"`
	Signatures    []SignatureRule `yaml:"signatures" toml:"signatures"`
}

// LoadRules reads a YAML (.yaml, .yml) or TOML (.toml) rules file.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRules(filepath.Ext(path), data)
}

// ParseRules decodes rules data in the format named by ext.
func ParseRules(ext string, data []byte) (*Rules, error) {
	var rules Rules
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &rules); err != nil {
			return nil, fmt.Errorf("parse yaml rules: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &rules); err != nil {
			return nil, fmt.Errorf("parse toml rules: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported rules format %q", ext)
	}

	for i, sig := range rules.Signatures {
		if sig.Name == "" || sig.Pattern == "" {
			return nil, fmt.Errorf("signature %d: name and pattern are required", i)
		}
	}
	return &rules, nil
}

// Apply merges rules into the gate configuration.
func (g *GateConfig) Apply(rules *Rules) {
	if rules == nil {
		return
	}
	g.AllowedHosts = append(g.AllowedHosts, rules.AllowedHosts...)
	g.ExcludedPaths = append(g.ExcludedPaths, rules.ExcludedPaths...)
	g.Signatures = append(g.Signatures, rules.Signatures...)
}
