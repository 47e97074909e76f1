// Package ocrjob starts OCR jobs on the Resource API and tracks them until
// they reach a terminal status.
package ocrjob

import "context"

// Status is the server-reported state of an OCR job.
type Status string

const (
	StatusPending             Status = "PENDING"
	StatusInProgress          Status = "IN_PROGRESS"
	StatusCompleted           Status = "COMPLETED"
	StatusCompletedWithErrors Status = "COMPLETED_WITH_ERRORS"
	StatusFailed              Status = "FAILED"
)

// IsTerminal reports whether no further transitions occur from s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCompletedWithErrors, StatusFailed:
		return true
	}
	return false
}

// Succeeded reports whether s is a terminal status that produced results.
func (s Status) Succeeded() bool {
	return s == StatusCompleted || s == StatusCompletedWithErrors
}

// Progress counts processed pages.
type Progress struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
}

// Result is one extracted recipe/ingredient pairing. Every field is
// optional because extraction is partial.
type Result struct {
	Name        *string  `json:"recipeName,omitempty"`
	PageNumber  *int     `json:"pageNumber,omitempty"`
	Ingredient  *string  `json:"ingredient,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
	NeedsReview *bool    `json:"needsReview,omitempty"`
}

// StatusResponse is the body of GET /api/cookbooks/{id}/ocr/results.
type StatusResponse struct {
	Status       Status   `json:"status"`
	CurrentPage  int      `json:"currentPage"`
	TotalPages   int      `json:"totalPages"`
	Results      []Result `json:"results"`
	ErrorMessage string   `json:"errorMessage,omitempty"`
}

// Handle is the tracked state of one job. A job is 1:1 with its owning
// cookbook, so the owner id doubles as the job id.
type Handle struct {
	OwnerID      string   `json:"cookbookId"`
	Status       Status   `json:"status"`
	Progress     Progress `json:"progress"`
	ErrorMessage string   `json:"errorMessage,omitempty"`
	Results      []Result `json:"results,omitempty"`
}

func newHandle(ownerID string, resp *StatusResponse) Handle {
	return Handle{
		OwnerID:      ownerID,
		Status:       resp.Status,
		Progress:     Progress{CurrentPage: resp.CurrentPage, TotalPages: resp.TotalPages},
		ErrorMessage: resp.ErrorMessage,
		Results:      resp.Results,
	}
}

// Terminal is delivered once when a job settles.
type Terminal struct {
	OwnerID      string   `json:"cookbookId"`
	Status       Status   `json:"status"`
	Success      bool     `json:"success"`
	Results      []Result `json:"results,omitempty"`
	ErrorMessage string   `json:"errorMessage,omitempty"`
}

// StartAPI issues start-job requests.
type StartAPI interface {
	StartOCR(ctx context.Context, ownerID string) error
}

// StatusAPI reads job status.
type StatusAPI interface {
	OCRStatus(ctx context.Context, ownerID string) (*StatusResponse, error)
}
