package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ShroXd/surveilans"
)

func renderDiseases(w io.Writer, diseases []surveilans.Disease) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Code", "Disease"})
	for _, d := range diseases {
		t.AppendRow(table.Row{d.Code, d.Name})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func renderSummary(w io.Writer, s *surveilans.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Run " + s.RunID)
	t.AppendHeader(table.Row{"Month", "Queries", "Rows", "Skipped", "Skipped regencies", "Extract"})

	totalRows := 0
	for _, m := range s.Months {
		out := m.Path
		if m.Empty() {
			out = "no data"
		}
		regencies := make([]string, 0, len(m.SkippedRegencies))
		for _, r := range m.SkippedRegencies {
			regencies = append(regencies, r.Label())
		}
		t.AppendRow(table.Row{m.Month.Label(), m.Queries, m.Rows, len(m.Skipped), strings.Join(regencies, ", "), out})
		totalRows += m.Rows
	}
	t.AppendFooter(table.Row{"Total", "", totalRows})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func renderMerge(w io.Writer, r *surveilans.MergeReport) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Month", "Status"})
	for _, m := range r.Found {
		t.AppendRow(table.Row{m.String(), "merged"})
	}
	for _, m := range r.Missing {
		t.AppendRow(table.Row{m.String(), "missing"})
	}
	t.SortBy([]table.SortBy{{Name: "Month", Mode: table.Asc}})
	t.AppendFooter(table.Row{"Rows", r.Rows})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

// promptDisease asks for a disease code until one from the list is given.
func promptDisease(in io.Reader, out io.Writer, diseases []surveilans.Disease) (surveilans.Disease, error) {
	if len(diseases) == 0 {
		return surveilans.Disease{}, fmt.Errorf("the portal offered no diseases")
	}

	renderDiseases(out, diseases)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "Disease code: ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return surveilans.Disease{}, err
			}
			return surveilans.Disease{}, fmt.Errorf("no disease selected")
		}
		if d, ok := findDisease(diseases, scanner.Text()); ok {
			return d, nil
		}
		fmt.Fprintln(out, "Unknown code, pick one from the list.")
	}
}

func findDisease(diseases []surveilans.Disease, code string) (surveilans.Disease, bool) {
	code = strings.TrimSpace(code)
	for _, d := range diseases {
		if d.Code == code {
			return d, true
		}
	}
	return surveilans.Disease{}, false
}
