package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"autopress/internal/models"
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	return table
}

func printTaxonomy(w io.Writer, outcomes []models.TaxonomyOutcome) {
	if len(outcomes) == 0 {
		return
	}
	table := newTable(w, "Kind", "Name", "ID", "Action")
	for _, o := range outcomes {
		id := "-"
		if o.ID != 0 {
			id = strconv.FormatInt(o.ID, 10)
		}
		var action string
		switch {
		case o.Err != nil:
			action = color.RedString("failed: %v", o.Err)
		case o.Created:
			action = color.YellowString("created")
		default:
			action = color.GreenString("reused")
		}
		table.Append([]string{string(o.Kind), o.Name, id, action})
	}
	table.Render()
}

func printResult(w io.Writer, res models.PublishResult) {
	printTaxonomy(w, res.Taxonomy)
	if res.Success {
		fmt.Fprintf(w, "%s post id %d\n", color.GreenString("Published:"), *res.PostID)
		return
	}
	fmt.Fprintf(w, "%s %v\n", color.RedString("Failed:"), res.Err)
	var partial *models.PartialTaxonomyFailure
	if errors.As(res.Err, &partial) {
		fmt.Fprintf(w, "%d taxonomy items resolved, %d failed; no post was created.\n", len(partial.Succeeded), len(partial.Failed))
	}
}

func statusColor(status string) string {
	switch status {
	case models.RunStatusSucceeded:
		return color.GreenString(status)
	case models.RunStatusFailed:
		return color.RedString(status)
	case models.RunStatusRunning:
		return color.CyanString(status)
	default:
		return color.YellowString(status)
	}
}

func formatNullTime(t *time.Time, layout string) string {
	if t != nil {
		return t.Format(layout)
	}
	return "N/A"
}

func formatNullInt64(i *int64) string {
	if i != nil {
		return strconv.FormatInt(*i, 10)
	}
	return "N/A"
}
