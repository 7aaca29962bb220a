package converters

import (
	"time"

	"github.com/feichai0017/document-analyzer/internal/models"
)

// ResultsDocument is the body served for a completed job.
type ResultsDocument struct {
	JobID     string              `json:"job_id"`
	Filename  string              `json:"filename"`
	PageCount int                 `json:"page_count"`
	Results   []models.Extraction `json:"results"`
	CreatedAt time.Time           `json:"created_at"`
}

func NewResultsDocument(job *models.Job) *ResultsDocument {
	results := job.Results
	if results == nil {
		results = []models.Extraction{}
	}
	return &ResultsDocument{
		JobID:     job.ID,
		Filename:  job.Filename,
		PageCount: job.PageCount,
		Results:   results,
		CreatedAt: job.CreatedAt,
	}
}

// lookup walks nested objects by key and returns the leaf, or nil.
func lookup(e map[string]any, path ...string) any {
	var cur any = e
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[key]
	}
	return cur
}
