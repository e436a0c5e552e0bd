package campaign

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	return table
}

// RenderSummary writes a per-outcome table followed by a totals line.
func RenderSummary(w io.Writer, s *Summary) error {
	keys := make([]string, 0, len(s.Outcomes))
	for k := range s.Outcomes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var data [][]string
	for _, k := range keys {
		data = append(data, []string{k, strconv.Itoa(s.Outcomes[k])})
	}
	table := newTable(w, []string{"OUTCOME", "SESSIONS"})
	table.AppendBulk(data)
	table.Render()

	status := "PASS"
	if !s.Passed() {
		status = "FAIL"
	}
	_, err := fmt.Fprintf(w, "\n%s: %d inputs, %d sessions, %d tokens, %d violations",
		status, s.Inputs, s.Sessions, s.Tokens, s.Violations)
	if err != nil {
		return err
	}
	if s.Truncated {
		_, err = fmt.Fprint(w, " (truncated)")
		if err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(w)
	return err
}

// RenderFindings writes one row per finding.
func RenderFindings(w io.Writer, findings []Finding) {
	var data [][]string
	for _, f := range findings {
		data = append(data, []string{
			shortID(f.ID),
			f.Path,
			fmt.Sprintf("%#016x", f.Seed),
			strconv.Itoa(len(f.Input)),
			f.Message,
		})
	}
	table := newTable(w, []string{"ID", "PATH", "SEED", "SIZE", "MESSAGE"})
	table.AppendBulk(data)
	table.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
