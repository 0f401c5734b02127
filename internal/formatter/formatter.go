// Package formatter renders scan reports for people and machines.
package formatter

import (
	"fmt"
	"io"
	"sort"

	"github.com/gyaneshwarpardhi/hintscan/internal/engine"
	"github.com/gyaneshwarpardhi/hintscan/internal/problem"
)

// Formatter writes a report to w.
type Formatter interface {
	Format(w io.Writer, rep *engine.Report) error
}

// Names of the bundled formatters.
const (
	NameStylish = "stylish"
	NameJSON    = "json"
	NameSummary = "summary"
)

// Get returns the formatter called name.
func Get(name string) (Formatter, error) {
	switch name {
	case NameStylish, "":
		return Stylish{}, nil
	case NameJSON:
		return JSON{Indent: "  "}, nil
	case NameSummary:
		return Summary{}, nil
	}
	return nil, fmt.Errorf("unknown formatter %q (want %s, %s or %s)", name, NameStylish, NameJSON, NameSummary)
}

// group is the problems of one resource ordered by position.
type group struct {
	Resource string            `json:"resource"`
	Problems []problem.Problem `json:"problems"`
}

// byResource groups problems by resource. Resources keep the order in which
// they were first reported; problems inside a resource are sorted by line
// and column with unknown positions first.
func byResource(problems []problem.Problem) []group {
	var out []group
	index := make(map[string]int)
	for _, p := range problems {
		i, ok := index[p.Resource]
		if !ok {
			i = len(out)
			index[p.Resource] = i
			out = append(out, group{Resource: p.Resource})
		}
		out[i].Problems = append(out[i].Problems, p)
	}
	for _, g := range out {
		sort.SliceStable(g.Problems, func(i, j int) bool {
			a, b := g.Problems[i].Location, g.Problems[j].Location
			if a.Line != b.Line {
				return a.Line < b.Line
			}
			return a.Column < b.Column
		})
	}
	return out
}

// Totals counts problems per severity.
type Totals struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Hints    int `json:"hints"`
}

// Count tallies problems.
func Count(problems []problem.Problem) Totals {
	var t Totals
	for _, p := range problems {
		switch p.Severity {
		case problem.Error:
			t.Errors++
		case problem.Warning:
			t.Warnings++
		case problem.Hint:
			t.Hints++
		}
	}
	return t
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
