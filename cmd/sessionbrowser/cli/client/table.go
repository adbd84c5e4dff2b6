package client

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/mwantia/sessionbrowser/pkg/browser"
	"github.com/mwantia/sessionbrowser/pkg/query"
	"github.com/mwantia/sessionbrowser/pkg/records"
)

const defaultNameWidth = 48

var columnHeaders = map[browser.Column]string{
	browser.ColumnName:         "NAME",
	browser.ColumnPatientID:    "PATIENT",
	browser.ColumnPatientName:  "PATIENT NAME",
	browser.ColumnTherapist:    "THERAPIST",
	browser.ColumnSessionDate:  "SESSION",
	browser.ColumnSize:         "SIZE",
	browser.ColumnSizeCategory: "CATEGORY",
	browser.ColumnCreatedAt:    "UPLOADED",
	browser.ColumnNotes:        "NOTES",
}

// renderPage writes page as a table with the given columns. Widths truncate
// cell text; the name column is truncated to defaultNameWidth when unset.
func renderPage(w io.Writer, page query.Page, prefs browser.ColumnPreferences, human bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	for i, col := range prefs.Visible {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, columnHeaders[col])
	}
	fmt.Fprintln(tw)

	for _, rec := range page.Records {
		for i, col := range prefs.Visible {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, truncate(cell(rec, col, human), width(prefs, col)))
		}
		fmt.Fprintln(tw)
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nPage %d of %d (%d recordings)\n", page.Page, max(page.TotalPages, 1), page.TotalCount)
	return nil
}

func width(prefs browser.ColumnPreferences, col browser.Column) int {
	if w, ok := prefs.Widths[col]; ok && w > 0 {
		return w
	}
	if col == browser.ColumnName {
		return defaultNameWidth
	}
	return 0
}

func truncate(s string, w int) string {
	if w <= 0 || runewidth.StringWidth(s) <= w {
		return s
	}
	return runewidth.Truncate(s, w, "…")
}

func cell(rec records.ResolvedRecord, col browser.Column, human bool) string {
	switch col {
	case browser.ColumnName:
		return rec.Name
	case browser.ColumnPatientID:
		return rec.PatientID
	case browser.ColumnPatientName:
		return rec.PatientName
	case browser.ColumnTherapist:
		return rec.TherapistDisplay
	case browser.ColumnSessionDate:
		if rec.SessionDateTime == nil {
			return "-"
		}
		return rec.SessionDateTime.Format("2006-01-02 15:04")
	case browser.ColumnSize:
		if human {
			return humanize.Bytes(uint64(max(rec.Size, 0)))
		}
		return strconv.FormatInt(rec.Size, 10)
	case browser.ColumnSizeCategory:
		return string(rec.SizeCategory)
	case browser.ColumnCreatedAt:
		if rec.CreatedAt.IsZero() {
			return "-"
		}
		if human {
			return humanize.RelTime(rec.CreatedAt, time.Now(), "ago", "from now")
		}
		return rec.CreatedAt.Format(time.RFC3339)
	case browser.ColumnNotes:
		return strconv.Itoa(rec.NotesCount)
	default:
		return ""
	}
}
