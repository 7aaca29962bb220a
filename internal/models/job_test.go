package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLifecycle(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	job := NewJob("j1", "scan.pdf", "uploads/j1/scan.pdf", 42, now)
	assert.Equal(t, StatusPending, job.Status)
	assert.NotNil(t, job.Results)

	require.Error(t, job.AppendResult(Extraction{}, now), "pending jobs take no results")

	require.NoError(t, job.Transition(StatusProcessing, now.Add(time.Second)))
	require.NotNil(t, job.StartedAt)

	require.NoError(t, job.AppendResult(Extraction{"page": 1}, now))
	require.NoError(t, job.AppendResult(Extraction{"page": 2}, now))
	assert.Equal(t, 2, job.PagesProcessed)

	require.NoError(t, job.Transition(StatusCompleted, now.Add(2*time.Second)))
	require.NotNil(t, job.FinishedAt)

	err := job.AppendResult(Extraction{"page": 3}, now)
	assert.True(t, errors.Is(err, ErrJobTerminal))
	err = job.Transition(StatusFailed, now)
	assert.True(t, errors.Is(err, ErrJobTerminal))
	assert.Len(t, job.Results, 2)
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to JobStatus
		want     bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusCompleted, false},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusPending, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusProcessing, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestJobFailRecordsMessage(t *testing.T) {
	job := NewJob("j2", "a.png", "k", 1, time.Now())
	require.NoError(t, job.Fail("upload missing", time.Now()))
	assert.Equal(t, StatusFailed, job.Status)
	assert.Equal(t, "upload missing", job.Error)
}

func TestJobCloneIsIndependent(t *testing.T) {
	job := NewJob("j3", "a.png", "k", 1, time.Now())
	require.NoError(t, job.Transition(StatusProcessing, time.Now()))
	require.NoError(t, job.AppendResult(Extraction{"n": 1}, time.Now()))

	c := job.Clone()
	require.NoError(t, job.AppendResult(Extraction{"n": 2}, time.Now()))
	*job.StartedAt = time.Time{}

	assert.Len(t, c.Results, 1)
	assert.False(t, c.StartedAt.IsZero())
}

func TestExtractionMetadata(t *testing.T) {
	e := Extraction{}
	e.Metadata()["page_number"] = 3
	assert.Equal(t, 3, e.PageNumber())

	decoded := Extraction{MetadataKey: map[string]any{"page_number": float64(7)}}
	assert.Equal(t, 7, decoded.PageNumber())
	assert.Equal(t, 0, Extraction{}.PageNumber())
}

func TestErrorMessages(t *testing.T) {
	cause := errors.New("timeout")
	err := error(&ExtractionError{Page: 2, Err: cause})
	assert.Contains(t, err.Error(), "page 2")
	assert.True(t, errors.Is(err, cause))

	var conv *ConversionError
	require.True(t, errors.As(error(&ConversionError{Err: cause}), &conv))
	assert.Equal(t, "conversion failed: timeout", conv.Error())

	verrs := ValidationErrors{
		{Code: CodeFileTooLarge, Message: "too large"},
		{Code: CodeInvalidFileType, Message: "bad type"},
	}
	assert.Equal(t, "too large; bad type", verrs.Error())
}

func TestDetectFileType(t *testing.T) {
	ft, ok := DetectFileType(".PDF")
	assert.True(t, ok)
	assert.Equal(t, PDF, ft)

	ft, ok = DetectFileType("jpeg")
	assert.True(t, ok)
	assert.Equal(t, Image, ft)

	_, ok = DetectFileType(".exe")
	assert.False(t, ok)
}
