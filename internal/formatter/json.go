package formatter

import (
	"encoding/json"
	"io"

	"github.com/gyaneshwarpardhi/hintscan/internal/engine"
)

// JSON writes the report as one JSON document with problems grouped per
// resource.
type JSON struct {
	Indent string
}

type jsonReport struct {
	ScanID    string  `json:"scan_id"`
	Target    string  `json:"target"`
	State     string  `json:"state"`
	Error     string  `json:"error,omitempty"`
	Totals    Totals  `json:"totals"`
	Resources []group `json:"resources"`
}

func (f JSON) Format(w io.Writer, rep *engine.Report) error {
	out := jsonReport{
		ScanID:    rep.ScanID,
		Target:    rep.Target,
		State:     string(rep.State),
		Error:     rep.Error,
		Totals:    Count(rep.Problems),
		Resources: byResource(rep.Problems),
	}
	if out.Resources == nil {
		out.Resources = []group{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", f.Indent)
	return enc.Encode(out)
}
