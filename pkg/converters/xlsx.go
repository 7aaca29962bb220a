package converters

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/feichai0017/document-analyzer/internal/models"
)

const (
	SheetPages   = "Pages"
	SheetSummary = "Summary"
	// excelize rejects cell values longer than this many characters.
	maxCellLength = 32767
)

type column struct {
	header string
	width  float64
	value  func(models.Extraction) any
}

var pageColumns = []column{
	{"Page", 8, func(e models.Extraction) any { return e.PageNumber() }},
	{"Type", 20, field("document_classification", "type")},
	{"Category", 16, field("document_classification", "category")},
	{"Language", 12, field("document_classification", "primary_language")},
	{"Subject", 40, field("content", "subject")},
	{"Issuing Authority", 30, field("source", "issuing_authority")},
	{"Document Number", 20, field("source", "document_number")},
	{"Primary Date", 18, field("source", "dates", "primary_date", "date_text")},
	{"Confidence", 12, field("confidence_quality", "overall_confidence")},
	{"Manual Review", 14, field("confidence_quality", "requires_manual_review")},
	{"Full Text", 80, func(e models.Extraction) any {
		if text := lookup(e, "content", "full_text"); text != nil {
			return text
		}
		return lookup(e, "raw_text")
	}},
	{"Notes", 40, notes},
}

func field(path ...string) func(models.Extraction) any {
	return func(e models.Extraction) any { return lookup(e, path...) }
}

func notes(e models.Extraction) any {
	meta, _ := e[models.MetadataKey].(map[string]any)
	var parts []string
	if msg, ok := meta["parse_error"].(string); ok {
		parts = append(parts, "parse error: "+msg)
	}
	switch v := meta["schema_violations"].(type) {
	case []string:
		parts = append(parts, v...)
	case []any:
		for _, s := range v {
			parts = append(parts, fmt.Sprint(s))
		}
	}
	return strings.Join(parts, "\n")
}

func cellValue(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return truncateRunes(t, maxCellLength)
	case bool, int, int64, float64:
		return t
	case []any:
		parts := make([]string, len(t))
		for i, p := range t {
			parts[i] = fmt.Sprint(p)
		}
		return cellValue(strings.Join(parts, ", "))
	default:
		return cellValue(fmt.Sprint(t))
	}
}

// truncateRunes cuts s to at most n characters without splitting one.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// ExportXLSX renders a completed job as a workbook with a summary sheet
// and one row per page.
func ExportXLSX(job *models.Job) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, err
	}
	summary := [][]any{
		{"Job ID", job.ID},
		{"Filename", job.Filename},
		{"Pages", job.PageCount},
		{"Status", string(job.Status)},
		{"Created", job.CreatedAt.UTC().Format("2006-01-02 15:04:05")},
	}
	for i, row := range summary {
		if err := f.SetSheetRow(SheetSummary, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(SheetSummary, "A", "A", 12); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(SheetSummary, "B", "B", 40); err != nil {
		return nil, err
	}

	index, err := f.NewSheet(SheetPages)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	for i, col := range pageColumns {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(SheetPages, name+"1", col.header); err != nil {
			return nil, fmt.Errorf("write header %s: %w", col.header, err)
		}
		if err := f.SetColWidth(SheetPages, name, name, col.width); err != nil {
			return nil, err
		}
	}
	for r, result := range job.Results {
		for c, col := range pageColumns {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(SheetPages, cell, cellValue(col.value(result))); err != nil {
				return nil, fmt.Errorf("write %s: %w", cell, err)
			}
		}
	}
	panes := &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}
	if err := f.SetPanes(SheetPages, panes); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
