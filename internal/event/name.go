package event

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Separator delimits the segments of an event name.
	Separator = "::"
	// Wildcard may appear as the last segment of a subscription pattern.
	Wildcard = "*"
)

var (
	// ErrInvalidName is returned for empty names, empty segments or names
	// containing a wildcard.
	ErrInvalidName = errors.New("invalid event name")
	// ErrInvalidPattern is returned for patterns with empty segments or a
	// wildcard anywhere but the final segment.
	ErrInvalidPattern = errors.New("invalid event pattern")
)

// Name is the name of an emitted event, e.g. "fetch::end::html".
type Name struct {
	segments []string
}

// ParseName splits s into segments and validates it as an emitted name.
func ParseName(s string) (Name, error) {
	segs, err := split(s)
	if err != nil {
		return Name{}, fmt.Errorf("%w %q: %v", ErrInvalidName, s, err)
	}
	for _, seg := range segs {
		if seg == Wildcard {
			return Name{}, fmt.Errorf("%w %q: wildcard in emitted name", ErrInvalidName, s)
		}
	}
	return Name{segments: segs}, nil
}

func (n Name) String() string { return strings.Join(n.segments, Separator) }

// Segments returns a copy of the name's segments.
func (n Name) Segments() []string { return append([]string(nil), n.segments...) }

// Category is the first segment ("fetch" for "fetch::end::html").
func (n Name) Category() string {
	if len(n.segments) == 0 {
		return ""
	}
	return n.segments[0]
}

// Subtype is the last segment ("html" for "fetch::end::html").
func (n Name) Subtype() string {
	if len(n.segments) == 0 {
		return ""
	}
	return n.segments[len(n.segments)-1]
}

// IsZero reports whether n was never parsed.
func (n Name) IsZero() bool { return len(n.segments) == 0 }

// Pattern is a subscription: an exact name, or a prefix followed by a
// trailing wildcard segment.
type Pattern struct {
	prefix   []string
	wildcard bool
}

// ParsePattern validates s as a subscription pattern.
func ParsePattern(s string) (Pattern, error) {
	segs, err := split(s)
	if err != nil {
		return Pattern{}, fmt.Errorf("%w %q: %v", ErrInvalidPattern, s, err)
	}
	last := len(segs) - 1
	for i, seg := range segs {
		if seg == Wildcard && i != last {
			return Pattern{}, fmt.Errorf("%w %q: wildcard must be the final segment", ErrInvalidPattern, s)
		}
	}
	if segs[last] == Wildcard {
		return Pattern{prefix: segs[:last], wildcard: true}, nil
	}
	return Pattern{prefix: segs}, nil
}

func (p Pattern) String() string {
	if !p.wildcard {
		return strings.Join(p.prefix, Separator)
	}
	return strings.Join(append(append([]string(nil), p.prefix...), Wildcard), Separator)
}

// IsWildcard reports whether the pattern ends in a wildcard segment.
func (p Pattern) IsWildcard() bool { return p.wildcard }

// Matches compares segments positionally. An exact pattern matches only the
// identical name; a wildcard pattern matches any name that extends its prefix
// by at least one segment.
func (p Pattern) Matches(n Name) bool {
	if p.wildcard {
		if len(n.segments) <= len(p.prefix) {
			return false
		}
	} else if len(n.segments) != len(p.prefix) {
		return false
	}
	for i, seg := range p.prefix {
		if n.segments[i] != seg {
			return false
		}
	}
	return true
}

// Match is a string convenience over ParsePattern/ParseName. Invalid input
// never matches.
func Match(pattern, name string) bool {
	p, err := ParsePattern(pattern)
	if err != nil {
		return false
	}
	n, err := ParseName(name)
	if err != nil {
		return false
	}
	return p.Matches(n)
}

func split(s string) ([]string, error) {
	if s == "" {
		return nil, errors.New("empty")
	}
	segs := strings.Split(s, Separator)
	for _, seg := range segs {
		if seg == "" {
			return nil, errors.New("empty segment")
		}
	}
	return segs, nil
}
