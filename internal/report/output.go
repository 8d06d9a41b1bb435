package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatXLSX = "xlsx"
)

// Write renders results in the given format. "" means text.
func Write(w io.Writer, results []Result, format string) error {
	switch format {
	case "", FormatText:
		return WriteText(w, results)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(results), "report: encode json")
	case FormatXLSX:
		return WriteXLSX(w, results)
	}
	return eris.Errorf("report: unsupported format %q", format)
}

// WriteText prints scalars as "title: n" and rankings as aligned tables.
func WriteText(out io.Writer, results []Result) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for i, r := range results {
		if r.Value != nil {
			_, _ = fmt.Fprintf(w, "%s:\t%d\n", r.Title, *r.Value)
			continue
		}
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		_, _ = fmt.Fprintf(w, "%s\n", r.Title)
		for _, row := range r.Rows {
			_, _ = fmt.Fprintf(w, "  %s\t%d\n", row.Label, row.Count)
		}
		if len(r.Rows) == 0 {
			_, _ = fmt.Fprintln(w, "  (none)")
		}
	}
	return eris.Wrap(w.Flush(), "report: flush")
}

// WriteXLSX writes one workbook: a "summary" sheet with every scalar and
// one sheet per ranking.
func WriteXLSX(w io.Writer, results []Result) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet("summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}
	header := summary.AddRow()
	header.AddCell().SetString("report")
	header.AddCell().SetString("value")

	for _, r := range results {
		if r.Value != nil {
			row := summary.AddRow()
			row.AddCell().SetString(r.Title)
			row.AddCell().SetInt64(*r.Value)
			continue
		}

		sheet, err := f.AddSheet(sheetName(r.Name))
		if err != nil {
			return eris.Wrapf(err, "report: add sheet %s", r.Name)
		}
		head := sheet.AddRow()
		head.AddCell().SetString("label")
		head.AddCell().SetString("count")
		for _, row := range r.Rows {
			xr := sheet.AddRow()
			xr.AddCell().SetString(row.Label)
			xr.AddCell().SetInt64(row.Count)
		}
	}

	return eris.Wrap(f.Write(w), "report: write xlsx")
}

// sheetName truncates to the 31 characters a worksheet name allows.
func sheetName(name string) string {
	if len(name) > 31 {
		return name[:31]
	}
	return name
}
