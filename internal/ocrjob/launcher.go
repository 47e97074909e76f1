package ocrjob

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackzampolin/pantry/internal/api"
)

// OutcomeKind is the interpretation of a start-job response.
type OutcomeKind int

const (
	// Started means the server accepted a new job.
	Started OutcomeKind = iota
	// AlreadyRunning means a job is already running for the owner (409).
	AlreadyRunning
	// Rejected means the server refused or could not be reached.
	Rejected
)

func (k OutcomeKind) String() string {
	switch k {
	case Started:
		return "started"
	case AlreadyRunning:
		return "already_running"
	case Rejected:
		return "rejected"
	}
	return "unknown"
}

// Outcome is the result of one Start call.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
}

// ShouldPoll reports whether status tracking should begin.
func (o Outcome) ShouldPoll() bool {
	return o.Kind == Started || o.Kind == AlreadyRunning
}

// ErrNoOwner is returned when Start is called without an owner id.
var ErrNoOwner = errors.New("owner id is required")

// Launcher sends start-job requests. It keeps no state between calls.
type Launcher struct {
	api    StartAPI
	logger *slog.Logger
}

// NewLauncher creates a Launcher.
func NewLauncher(startAPI StartAPI, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{api: startAPI, logger: logger}
}

// Start sends exactly one start request for ownerID. Server and transport
// failures are reported through the Outcome, not the error.
func (l *Launcher) Start(ctx context.Context, ownerID string) (Outcome, error) {
	if ownerID == "" {
		return Outcome{}, ErrNoOwner
	}

	err := l.api.StartOCR(ctx, ownerID)
	switch {
	case err == nil:
		l.logger.Info("OCR job started", "cookbook_id", ownerID)
		return Outcome{Kind: Started}, nil
	case api.IsConflict(err):
		l.logger.Info("OCR job already running", "cookbook_id", ownerID)
		return Outcome{Kind: AlreadyRunning}, nil
	default:
		reason := api.Message(err)
		l.logger.Warn("OCR job rejected",
			"cookbook_id", ownerID,
			"class", api.Classify(err),
			"error", reason)
		return Outcome{Kind: Rejected, Reason: reason}, nil
	}
}
