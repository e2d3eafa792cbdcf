package batch

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// WriteAuditReport prints the report as a plain list:
//
//	audited 3 files
//	  - draft: 2 (66.67%)
func WriteAuditReport(w io.Writer, r *AuditReport) error {
	if _, err := fmt.Fprintf(w, "audited %d files\n", r.Files); err != nil {
		return err
	}
	for _, kc := range r.Counts {
		if _, err := fmt.Fprintf(w, "  - %s: %d (%0.2f%%)\n", kc.Key, kc.Count, r.Percent(kc)); err != nil {
			return err
		}
	}
	return nil
}

// RenderAuditTable renders the report as a table with a totals footer.
func RenderAuditTable(r *AuditReport) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Key", "Documents", "Share"})
	for _, kc := range r.Counts {
		tw.AppendRow(table.Row{kc.Key, strconv.Itoa(kc.Count), fmt.Sprintf("%0.2f%%", r.Percent(kc))})
	}
	tw.AppendFooter(table.Row{"files", strconv.Itoa(r.Files), ""})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignFooter: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	return tw.Render()
}

// WriteUpdateSummary prints the processed count the way audit prints its total.
func WriteUpdateSummary(w io.Writer, r *UpdateResult) error {
	_, err := fmt.Fprintf(w, "updated %d files\n", r.Processed)
	return err
}
