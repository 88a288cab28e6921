package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/pgEdge/pgedge-dwh/internal/analytics"
	"github.com/pgEdge/pgedge-dwh/internal/pipeline"
	"github.com/pgEdge/pgedge-dwh/internal/sources"
	"github.com/pgEdge/pgedge-dwh/internal/warehouse"
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func passFail(ok bool) string {
	if ok {
		return color.GreenString("PASS")
	}
	return color.RedString("FAIL")
}

func printStepReport(w io.Writer, report *pipeline.Report) {
	if report == nil || len(report.Steps) == 0 {
		return
	}

	table := newTable(w, "Step", "Rows", "Duration", "Status")
	for _, s := range report.Steps {
		status := color.GreenString("done")
		if s.Skipped {
			status = color.YellowString("skipped")
		}
		table.Append([]string{
			s.Name,
			fmt.Sprintf("%d", s.RowsAffected),
			s.Duration.Round(time.Millisecond).String(),
			status,
		})
	}
	table.Render()
}

func printVerifyReport(w io.Writer, report *pipeline.VerifyReport) {
	counts := newTable(w, "Table", "Role", "Rows")
	for _, c := range report.RowCounts {
		counts.Append([]string{c.Table, string(c.Role), fmt.Sprintf("%d", c.Rows)})
	}
	counts.Render()
	fmt.Fprintln(w)

	checks := newTable(w, "Check", "Violations", "Status")
	for _, c := range report.Checks {
		checks.Append([]string{c.Check.Name, fmt.Sprintf("%d", c.Violations), passFail(c.Passed())})
	}
	if report.TimeSampled > 0 {
		checks.Append([]string{
			fmt.Sprintf("time_parts (%d sampled)", report.TimeSampled),
			fmt.Sprintf("%d", len(report.TimeMismatches)),
			passFail(len(report.TimeMismatches) == 0),
		})
	}
	checks.Render()
}

func printSourcesReport(w io.Writer, report *sources.Report) {
	table := newTable(w, "Source", "Kind", "Location", "Status")
	for _, r := range report.Results {
		status := passFail(r.OK())
		if r.Err != nil {
			status += " " + r.Err.Error()
		}
		table.Append([]string{r.Name, string(r.Kind), r.Location.String(), status})
	}
	table.Render()
}

func printTables(w io.Writer, schema *warehouse.Schema) {
	table := newTable(w, "Table", "Role", "Primary Key", "References", "Distribution")
	for _, t := range schema.Tables() {
		var refs []string
		for _, fk := range t.ForeignKeys {
			refs = append(refs, fmt.Sprintf("%s -> %s", fk.Column, fk.RefTable))
		}

		var dist []string
		if schema.Dialect() == warehouse.DialectRedshift {
			if t.DistKey != "" {
				dist = append(dist, "DISTKEY "+t.DistKey)
			}
			if t.SortKey != "" {
				dist = append(dist, "SORTKEY "+t.SortKey)
			}
		}

		table.Append([]string{
			t.Name,
			string(t.Role),
			t.PrimaryKey,
			strings.Join(refs, ", "),
			strings.Join(dist, " "),
		})
	}
	table.Render()
}

func printQueries(w io.Writer, queries []analytics.Query) {
	table := newTable(w, "Report", "Description")
	for _, q := range queries {
		table.Append([]string{q.Name, q.Description})
	}
	table.Render()
}

func printQueryResults(w io.Writer, summary *analytics.Summary) {
	for _, r := range summary.Results {
		fmt.Fprintf(w, "%s (%s)\n", color.CyanString(r.Query.Name), r.Duration.Round(time.Millisecond))
		table := newTable(w, r.Columns...)
		table.AppendBulk(r.Rows)
		table.Render()
		fmt.Fprintln(w)
	}
}
