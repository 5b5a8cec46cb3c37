package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	portfolios "github.com/alnah/go-portfolios"
)

// printSummary reports a build. Failures always go to stderr; the project
// table and totals go to stdout unless quiet. written reports whether the
// page reached disk.
func printSummary(env *Environment, report *portfolios.Report, written, quiet, verbose bool) {
	red := color.New(color.FgRed).SprintFunc()
	for _, r := range report.Failed() {
		fmt.Fprintf(env.Stderr, "%s %s: %v\n", red("FAILED"), r.Source.Path, r.Err)
	}

	if quiet {
		return
	}

	if len(report.Results) > 0 {
		printProjectTable(env, report, verbose)
	}

	succeeded, failed := len(report.Succeeded()), len(report.Failed())
	fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", succeeded, failed)
	if !written {
		return
	}
	if verbose {
		fmt.Fprintf(env.Stdout, "Wrote %s in %v (build %s)\n",
			report.OutputPath, report.Duration.Round(time.Millisecond), report.BuildID)
	} else {
		fmt.Fprintf(env.Stdout, "Wrote %s\n", report.OutputPath)
	}
}

// printProjectTable renders one row per discovered source.
func printProjectTable(env *Environment, report *portfolios.Report, verbose bool) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	t := table.NewWriter()
	t.SetOutputMirror(env.Stdout)
	t.SetStyle(table.StyleLight)

	header := table.Row{"Source", "Status", "Screenshot"}
	if verbose {
		header = append(header, "Duration")
	}
	t.AppendHeader(header)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, WidthMax: 40},
		{Number: 2, Align: text.AlignLeft},
		{Number: 3, Align: text.AlignLeft, WidthMax: 60},
		{Number: 4, Align: text.AlignRight},
	})

	for _, r := range report.Results {
		status, detail := green("ok"), ""
		if r.OK() {
			detail = r.Project.Screenshot
		} else {
			status = red("failed")
			detail = "-"
		}
		row := table.Row{r.Source.Name, status, detail}
		if verbose {
			row = append(row, r.Duration.Round(time.Millisecond).String())
		}
		t.AppendRow(row)
	}
	t.Render()
}
