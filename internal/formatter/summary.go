package formatter

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/gyaneshwarpardhi/hintscan/internal/engine"
	"github.com/gyaneshwarpardhi/hintscan/internal/problem"
)

// Summary prints one line per hint with its problem count.
type Summary struct{}

func (Summary) Format(w io.Writer, rep *engine.Report) error {
	type row struct {
		hint     string
		severity problem.Severity
		count    int
	}
	rows := map[string]*row{}
	for _, p := range rep.Problems {
		r, ok := rows[p.HintID]
		if !ok {
			r = &row{hint: p.HintID}
			rows[p.HintID] = r
		}
		r.count++
		if p.Severity > r.severity {
			r.severity = p.Severity
		}
	}
	ids := make([]string, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, id := range ids {
		r := rows[id]
		fmt.Fprintf(tw, "%s\t%s\t%d\n", r.hint, severityLabel(r.severity), r.count)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, totalsLine(Count(rep.Problems)))
	return err
}
