package converters

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/feichai0017/document-analyzer/internal/models"
)

func completedJob() *models.Job {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	job := models.NewJob("job-1", "letter.pdf", "uploads/job-1/letter.pdf", 1024, created)
	job.Status = models.StatusCompleted
	job.PageCount = 2
	job.Results = []models.Extraction{
		{
			"document_classification": map[string]any{"type": "memo", "category": "administrative", "primary_language": "english"},
			"content":                 map[string]any{"subject": "Budget", "full_text": "Hello"},
			"confidence_quality":      map[string]any{"overall_confidence": "high", "requires_manual_review": false},
			models.MetadataKey:        map[string]any{"page_number": 1, "total_pages": 2},
		},
		{
			"raw_text":         "unreadable",
			models.MetadataKey: map[string]any{"page_number": 2, "parse_error": "invalid JSON"},
		},
	}
	job.PagesProcessed = 2
	return job
}

func TestNewResultsDocument(t *testing.T) {
	doc := NewResultsDocument(completedJob())

	b, err := json.Marshal(doc)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))

	assert.Equal(t, "job-1", decoded["job_id"])
	assert.Equal(t, "letter.pdf", decoded["filename"])
	assert.EqualValues(t, 2, decoded["page_count"])
	assert.Len(t, decoded["results"], 2)
	assert.Contains(t, decoded, "created_at")

	empty := NewResultsDocument(&models.Job{ID: "x"})
	assert.NotNil(t, empty.Results)
}

func TestExportXLSX(t *testing.T) {
	data, err := ExportXLSX(completedJob())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetPages)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Page", rows[0][0])
	assert.Equal(t, "Full Text", rows[0][10])

	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "memo", rows[1][1])
	assert.Equal(t, "Budget", rows[1][4])
	assert.Equal(t, "Hello", rows[1][10])

	assert.Equal(t, "2", rows[2][0])
	assert.Equal(t, "unreadable", rows[2][10])
	assert.Equal(t, "parse error: invalid JSON", rows[2][11])

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{"Job ID", "job-1"}, summary[0])

	panes, err := f.GetPanes(SheetPages)
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
	assert.Equal(t, 1, panes.YSplit)
}

func TestExportXLSXKeepsMultibyteText(t *testing.T) {
	text := strings.Repeat("م", 20000)
	job := completedJob()
	job.Results[0]["content"] = map[string]any{"full_text": text}

	data, err := ExportXLSX(job)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetCellValue(SheetPages, "K2")
	require.NoError(t, err)
	assert.Equal(t, text, got)
}

func TestCellValue(t *testing.T) {
	assert.Equal(t, "", cellValue(nil))
	assert.Equal(t, "a, b", cellValue([]any{"a", "b"}))
	assert.Equal(t, true, cellValue(true))
	long := string(bytes.Repeat([]byte("x"), maxCellLength+10))
	assert.Len(t, cellValue(long), maxCellLength)

	arabic := strings.Repeat("م", 20000)
	assert.Equal(t, arabic, cellValue(arabic))

	over := strings.Repeat("م", maxCellLength+5)
	cut := cellValue(over).(string)
	assert.True(t, utf8.ValidString(cut))
	assert.Equal(t, maxCellLength, utf8.RuneCountInString(cut))
	assert.Equal(t, strings.Repeat("م", maxCellLength), cut)
}
