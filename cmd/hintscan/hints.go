package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/hintscan/internal/builtin"
	"github.com/gyaneshwarpardhi/hintscan/internal/problem"
)

var hintsCmd = &cobra.Command{
	Use:   "hints",
	Short: "List the available hints and their configured severity",
	Args:  cobra.NoArgs,
	RunE:  runHints,
}

func runHints(cmd *cobra.Command, _ []string) error {
	set := builtin.New()
	cfg, _, err := loadConfig(cmd, set)
	if err != nil {
		return err
	}
	e, err := set.Engine(cfg, nil, nil)
	if err != nil {
		return err
	}
	active := make(map[string]problem.Severity)
	for _, r := range e.Hints() {
		active[r.ID] = r.Severity
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tSCOPE\tSEVERITY\tDESCRIPTION")
	for _, m := range set.Hints.Metas() {
		sev, ok := active[m.ID]
		label := sev.String()
		if !ok {
			label = color.New(color.Faint).Sprint("off")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.ID, m.Docs.Category, m.Scope, label, m.Docs.Description)
	}
	return tw.Flush()
}
