package formatter

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/gyaneshwarpardhi/hintscan/internal/engine"
	"github.com/gyaneshwarpardhi/hintscan/internal/problem"
)

var (
	resourceColor = color.New(color.Bold, color.Underline)
	errorColor    = color.New(color.FgRed, color.Bold)
	warningColor  = color.New(color.FgYellow, color.Bold)
	hintColor     = color.New(color.FgCyan)
	dimColor      = color.New(color.Faint)
)

// Stylish prints problems grouped per resource as aligned columns.
type Stylish struct{}

func (Stylish) Format(w io.Writer, rep *engine.Report) error {
	if len(rep.Problems) == 0 {
		_, err := fmt.Fprintln(w, color.GreenString("✔ No problems found in %s", rep.Target))
		return err
	}

	for _, g := range byResource(rep.Problems) {
		t := Count(g.Problems)
		fmt.Fprintf(w, "%s: %s\n", resourceColor.Sprint(g.Resource), plural(t.Errors+t.Warnings+t.Hints, "issue"))
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, p := range g.Problems {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n",
				position(p.Location), severityLabel(p.Severity), p.Message, dimColor.Sprint(p.HintID))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}

	_, err := fmt.Fprintln(w, totalsLine(Count(rep.Problems)))
	return err
}

// position renders a 0-based location the way editors number lines.
func position(l problem.Location) string {
	if l.Line < 0 {
		return "-"
	}
	if l.Column < 0 {
		return fmt.Sprintf("%d", l.Line+1)
	}
	return fmt.Sprintf("%d:%d", l.Line+1, l.Column+1)
}

func severityLabel(s problem.Severity) string {
	switch s {
	case problem.Error:
		return errorColor.Sprint("Error")
	case problem.Warning:
		return warningColor.Sprint("Warning")
	default:
		return hintColor.Sprint("Hint")
	}
}

func totalsLine(t Totals) string {
	line := fmt.Sprintf("✖ Found a total of %s, %s and %s",
		plural(t.Errors, "error"), plural(t.Warnings, "warning"), plural(t.Hints, "hint"))
	switch {
	case t.Errors > 0:
		return errorColor.Sprint(line)
	case t.Warnings > 0:
		return warningColor.Sprint(line)
	default:
		return hintColor.Sprint(line)
	}
}
