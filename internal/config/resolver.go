package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/gyaneshwarpardhi/hintscan/internal/problem"
)

// Resolved is the effective configuration of one hint for a scan.
type Resolved struct {
	ID       string           `json:"id"`
	Severity problem.Severity `json:"severity"`
	// Options is the validated options value decoded as plain JSON
	// (map[string]interface{}, []interface{}, float64, ...), or nil.
	Options interface{} `json:"options"`
}

// SeverityOf extracts the severity from a raw hint configuration value:
// a level name, a level number, or an array whose first element is one of
// those.
func SeverityOf(raw interface{}) (problem.Severity, bool) {
	switch v := raw.(type) {
	case problem.Severity:
		return v, v.Valid()
	case string:
		return problem.ParseSeverity(v)
	case []interface{}:
		if len(v) == 0 {
			return problem.Off, false
		}
		return SeverityOf(v[0])
	case []string:
		if len(v) == 0 {
			return problem.Off, false
		}
		return problem.ParseSeverity(v[0])
	}
	if n, ok := toInt(raw); ok {
		return problem.SeverityFromNumber(n)
	}
	return problem.Off, false
}

// Resolve validates one hint's raw configuration against its option schemas
// and produces the effective severity and options. schemas are alternatives:
// options valid under any one of them are accepted, and an empty list
// accepts any options.
func Resolve(id string, raw interface{}, schemas []map[string]interface{}) (Resolved, error) {
	if isObject(raw) {
		return Resolved{}, &HintError{HintID: id, Err: ErrBareObject}
	}
	sev, ok := SeverityOf(raw)
	if !ok {
		return Resolved{}, &HintError{HintID: id, Err: fmt.Errorf("%w: %v", ErrInvalidSeverity, raw)}
	}
	res := Resolved{ID: id, Severity: sev}

	arr, ok := raw.([]interface{})
	if !ok || len(arr) < 2 {
		return res, nil
	}
	opts, err := normalize(arr[1])
	if err != nil {
		return Resolved{}, &HintError{HintID: id, Err: fmt.Errorf("%w: %v", ErrInvalidOptions, err)}
	}
	if err := validateOptions(id, opts, schemas); err != nil {
		return Resolved{}, &HintError{HintID: id, Err: err}
	}
	res.Options = opts
	return res, nil
}

// SchemaLookup returns the option schemas of a registered hint.
type SchemaLookup func(id string) (schemas []map[string]interface{}, ok bool)

// ResolveAll resolves every configured hint in id order. All failures are
// collected so a broken configuration is reported in one pass.
func ResolveAll(hints map[string]interface{}, lookup SchemaLookup) ([]Resolved, error) {
	ids := make([]string, 0, len(hints))
	for id := range hints {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var (
		out  = make([]Resolved, 0, len(ids))
		errs []error
	)
	for _, id := range ids {
		schemas, ok := lookup(id)
		if !ok {
			errs = append(errs, &HintError{HintID: id, Err: ErrUnknownHint})
			continue
		}
		r, err := Resolve(id, hints[id], schemas)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, r)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func validateOptions(id string, opts interface{}, schemas []map[string]interface{}) error {
	if len(schemas) == 0 {
		return nil
	}
	var failures []error
	for i, s := range schemas {
		sch, err := compile(id, i, s)
		if err != nil {
			return fmt.Errorf("compile schema %d: %w", i, err)
		}
		if err := sch.Validate(opts); err != nil {
			failures = append(failures, err)
			continue
		}
		return nil
	}
	return fmt.Errorf("%w: %v", ErrInvalidOptions, errors.Join(failures...))
}

func compile(id string, i int, schema map[string]interface{}) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("hint://%s/schema-%d.json", id, i)
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, err
	}
	return c.Compile(url)
}

// normalize round-trips v through JSON so values decoded from YAML or TOML
// (int, int64, map[string]interface{} with typed leaves) look like
// encoding/json output.
func normalize(v interface{}) (interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func isObject(v interface{}) bool {
	switch v.(type) {
	case map[string]interface{}, map[interface{}]interface{}:
		return true
	}
	return false
}

// toInt coerces an integral numeric value of any width to int.
func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}

func floatToInt(f float64) (int, bool) {
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}
