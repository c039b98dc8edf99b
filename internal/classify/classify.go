// Package classify maps free-form diagnostics from the external download
// engine onto the fixed set of user-facing error categories.
package classify

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vidfetch/vidfetch/internal/domain"
)

// Rule matches diagnostic text against one category. Matching is
// case-insensitive: every substring in All must be present, and at least one
// substring in Any must be present when Any is non-empty. A rule with neither
// never matches.
type Rule struct {
	Category domain.ErrorCategory `yaml:"category"`
	Any      []string             `yaml:"any,omitempty"`
	All      []string             `yaml:"all,omitempty"`
}

// Classifier applies an ordered rule table; the first matching rule wins, so
// earlier rules take precedence when signatures overlap.
type Classifier struct {
	rules []Rule
}

// New creates a classifier from an ordered rule table. An empty table falls
// back to the built-in defaults.
func New(rules []Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// Default returns a classifier with the built-in rule table.
func Default() *Classifier {
	return New(nil)
}

// Classify returns exactly one category for the diagnostic text and exit
// status reported by the engine. It is total: anything unmatched is Unknown.
// The exit status is recorded by callers but carries no stable meaning across
// engine versions, so matching is purely textual.
func (c *Classifier) Classify(rawMessage string, exitStatus int) domain.ErrorCategory {
	_ = exitStatus

	lower := strings.ToLower(rawMessage)
	if lower == "" {
		return domain.CategoryUnknown
	}

	for _, rule := range c.rules {
		if rule.matches(lower) {
			return rule.Category
		}
	}
	return domain.CategoryUnknown
}

func (r Rule) matches(lower string) bool {
	if len(r.Any) == 0 && len(r.All) == 0 {
		return false
	}
	for _, s := range r.All {
		if !strings.Contains(lower, strings.ToLower(s)) {
			return false
		}
	}
	if len(r.Any) == 0 {
		return true
	}
	for _, s := range r.Any {
		if strings.Contains(lower, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// DefaultRules returns the built-in signature table. Order is precedence:
// unsupported-site, DRM, geo-block, login, transcoder, network.
func DefaultRules() []Rule {
	return []Rule{
		{
			Category: domain.CategoryUnsupportedSite,
			Any: []string{
				"unsupported url",
				"no suitable extractor",
				"no extractor",
				"is not a valid url",
			},
		},
		{
			Category: domain.CategoryDrmProtected,
			Any: []string{
				"drm",
				"encrypted",
				"this video is protected",
			},
		},
		{
			Category: domain.CategoryGeoBlocked,
			All:      []string{"video is unavailable", "country"},
		},
		{
			Category: domain.CategoryGeoBlocked,
			Any: []string{
				"geo restriction",
				"geo-restricted",
				"not available in your country",
				"blocked it in your country",
			},
		},
		{
			Category: domain.CategoryLoginRequired,
			Any: []string{
				"login",
				"logged in",
				"cookies",
				"private video",
				"sign in to confirm",
				"members-only",
			},
		},
		{
			Category: domain.CategoryTranscoderUnavailable,
			All:      []string{"ffmpeg", "not found"},
		},
		{
			Category: domain.CategoryTranscoderUnavailable,
			All:      []string{"ffmpeg", "not installed"},
		},
		{
			Category: domain.CategoryNetworkFailure,
			Any: []string{
				"timed out",
				"timeout",
				"connection refused",
				"connection reset",
				"network is unreachable",
				"no route to host",
				"temporary failure in name resolution",
				"getaddrinfo failed",
				"unable to download webpage",
				"unable to connect",
			},
		},
	}
}

// rulesFile is the YAML document shape for an external rule table.
type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads an ordered rule table from a YAML file, so the signature
// list can track the engine's evolving error vocabulary without code changes.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}

	for i, rule := range file.Rules {
		if err := validateCategory(rule.Category); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		if len(rule.Any) == 0 && len(rule.All) == 0 {
			return nil, fmt.Errorf("rule %d (%s): no signatures", i, rule.Category)
		}
	}

	return file.Rules, nil
}

func validateCategory(c domain.ErrorCategory) error {
	switch c {
	case domain.CategoryUnsupportedSite,
		domain.CategoryDrmProtected,
		domain.CategoryGeoBlocked,
		domain.CategoryLoginRequired,
		domain.CategoryTranscoderUnavailable,
		domain.CategoryNetworkFailure,
		domain.CategoryUnknown:
		return nil
	}
	return fmt.Errorf("unknown category %q", c)
}
