package problem

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Severity is the importance of a reported problem. The numeric values are
// the ones accepted in configuration files.
type Severity int

const (
	Off Severity = iota
	Hint
	Warning
	Error
)

var severityNames = [...]string{"off", "hint", "warning", "error"}

// Valid reports whether s is one of the known levels.
func (s Severity) Valid() bool { return s >= Off && s <= Error }

func (s Severity) String() string {
	if !s.Valid() {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// ParseSeverity maps a level name to a Severity.
func ParseSeverity(name string) (Severity, bool) {
	for i, n := range severityNames {
		if strings.EqualFold(name, n) {
			return Severity(i), true
		}
	}
	return Off, false
}

// SeverityFromNumber maps a numeric level to a Severity.
func SeverityFromNumber(n int) (Severity, bool) {
	s := Severity(n)
	return s, s.Valid()
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		v, ok := ParseSeverity(name)
		if !ok {
			return fmt.Errorf("unknown severity %q", name)
		}
		*s = v
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("severity must be a name or number: %w", err)
	}
	v, ok := SeverityFromNumber(n)
	if !ok {
		return fmt.Errorf("severity %d out of range", n)
	}
	*s = v
	return nil
}
