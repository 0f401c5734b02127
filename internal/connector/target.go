package connector

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// ParseTarget turns user input into a scan target. http, https and file
// URLs are kept as given; anything else is a local path and becomes an
// absolute file: URL.
func ParseTarget(s string) (*url.URL, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty target", ErrUnsupportedTarget)
	}
	if u, err := url.Parse(s); err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			if u.Host == "" {
				return nil, fmt.Errorf("%w: %q has no host", ErrUnsupportedTarget, s)
			}
			return u, nil
		case "file":
			return u, nil
		}
	}
	abs, err := filepath.Abs(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedTarget, err)
	}
	return &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}, nil
}
