// Package export renders normalized rows as CSV and XLSX downloads.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/normalize"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Table is a header plus string records, ready to render.
type Table struct {
	Entity  string
	Header  []string
	Records [][]string
}

func NewTable(layout normalize.Layout, rows []normalize.Row) Table {
	return Table{
		Entity:  layout.Entity,
		Header:  layout.Header(),
		Records: layout.Records(rows),
	}
}

func Render(format Format, t Table) ([]byte, error) {
	switch format {
	case FormatCSV:
		return RenderCSV(t)
	case FormatXLSX:
		return RenderXLSX(t)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// RenderCSV always writes the header row, even with no records.
func RenderCSV(t Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(t.Records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderXLSX writes a single sheet named after the entity.
func RenderXLSX(t Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(t.Entity)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return nil, fmt.Errorf("open sheet writer: %w", err)
	}
	if err := sw.SetRow("A1", cells(t.Header)); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, record := range t.Records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, cells(record)); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("flush sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename is "<entity>-<UTC ISO-8601 time with : and . as ->.<ext>".
func Filename(entity string, format Format, now time.Time) string {
	ts := now.UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return fmt.Sprintf("%s-%s.%s", entity, ts, format)
}

func sheetName(entity string) string {
	if entity == "" {
		return "Sheet1"
	}
	return strings.ToUpper(entity[:1]) + entity[1:]
}

func cells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
