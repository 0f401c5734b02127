package config

import (
	"fmt"
	"regexp"
	"strings"
)

// Validate checks the config for:
//   - Required fields
//   - Compilable ignored_urls patterns
//   - Non-negative tunables
//
// Hint severities and options are checked separately by Resolve, which needs
// the hints' schemas.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Version == "" {
		errs = append(errs, "version is required")
	}
	if cfg.Connector.Name == "" {
		errs = append(errs, "connector.name is required")
	}
	for i, p := range cfg.Parsers {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Sprintf("parsers[%d]: name is required", i))
		}
	}
	for id := range cfg.Hints {
		if strings.TrimSpace(id) == "" {
			errs = append(errs, "hints: empty hint id")
		}
	}
	for i, ig := range cfg.IgnoredURLs {
		if ig.Pattern == "" {
			errs = append(errs, fmt.Sprintf("ignored_urls[%d]: pattern is required", i))
		} else if _, err := regexp.Compile(ig.Pattern); err != nil {
			errs = append(errs, fmt.Sprintf("ignored_urls[%d]: invalid pattern %q: %v", i, ig.Pattern, err))
		}
		if len(ig.Hints) == 0 {
			errs = append(errs, fmt.Sprintf("ignored_urls[%d]: hints must not be empty", i))
		}
	}
	if cfg.HintsTimeoutMs < 0 {
		errs = append(errs, "hints_timeout_ms must not be negative")
	}
	if cfg.Engine.ScanWorkers < 0 || cfg.Engine.QueueDepth < 0 || cfg.Engine.ScanTimeoutMs < 0 {
		errs = append(errs, "engine tunables must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
