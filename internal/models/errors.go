package models

import (
	"fmt"
	"strings"
)

// Validation error codes.
const (
	CodeFileRequired    = "FILE_REQUIRED"
	CodeFileTooLarge    = "FILE_TOO_LARGE"
	CodeInvalidFileType = "INVALID_FILE_TYPE"
	CodeInvalidMimeType = "INVALID_MIME_TYPE"
	CodeTooManyPages    = "TOO_MANY_PAGES"
)

// ValidationError rejects an upload before a job is created.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidationErrors collects every problem found with one upload.
type ValidationErrors []*ValidationError

func (es ValidationErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// UnsupportedFormatError means no renderer exists for the extension.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file type: %s", e.Ext)
}

// ConversionError means a page could not be rendered. Page is 0 when the
// document as a whole could not be opened.
type ConversionError struct {
	Page int
	Err  error
}

func (e *ConversionError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("page %d: conversion failed: %v", e.Page, e.Err)
	}
	return fmt.Sprintf("conversion failed: %v", e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// ExtractionError carries the page whose model call failed.
type ExtractionError struct {
	Page int
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("page %d: extraction failed: %v", e.Page, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

type NotFoundError struct {
	JobID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("job not found: %s", e.JobID)
}

// JobNotReadyError is returned when results are requested for a job that
// has not completed.
type JobNotReadyError struct {
	JobID  string
	Status JobStatus
	Reason string
}

func (e *JobNotReadyError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("job %s is %s: %s", e.JobID, e.Status, e.Reason)
	}
	return fmt.Sprintf("job %s is %s", e.JobID, e.Status)
}
