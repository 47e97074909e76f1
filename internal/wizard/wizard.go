// Package wizard drives the cookbook import workflow:
// form -> upload -> processing -> review -> success.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jackzampolin/pantry/internal/api"
	"github.com/jackzampolin/pantry/internal/cookbooks"
	"github.com/jackzampolin/pantry/internal/ingest"
	"github.com/jackzampolin/pantry/internal/ocrjob"
)

var (
	// ErrNotReady is returned when the current step's readiness check fails.
	ErrNotReady = errors.New("step is not ready to proceed")
	// ErrBusy is returned when an operation of the same kind is outstanding.
	ErrBusy = errors.New("operation already in progress")
	// ErrNoOwner is returned when an operation needs a cookbook that was not created.
	ErrNoOwner = errors.New("no cookbook has been created")
	// ErrOwnerBound is returned when creating a second cookbook in one workflow.
	ErrOwnerBound = errors.New("cookbook already created for this import")
	// ErrNoItem is returned for an out-of-range review item index.
	ErrNoItem = errors.New("no such review item")
	// ErrInvalidStep is returned for an unknown step.
	ErrInvalidStep = errors.New("invalid step")
	// ErrRejected is returned when the server refuses to start processing.
	ErrRejected = errors.New("OCR job rejected")
	// ErrJobFailed is returned when the OCR job ends in failure.
	ErrJobFailed = errors.New("OCR job failed")
	// ErrNoJob is returned when waiting without a started job.
	ErrNoJob = errors.New("no OCR job started")
	// ErrAbandoned is returned when the workflow was reset while an operation ran.
	ErrAbandoned = errors.New("import was reset")
)

type opKind string

const (
	opCreate  opKind = "create"
	opUpload  opKind = "upload"
	opLaunch  opKind = "launch"
	opConfirm opKind = "confirm"
)

// ResourceAPI is the subset of the Resource API the wizard calls directly.
type ResourceAPI interface {
	Create(ctx context.Context, req cookbooks.CreateRequest) (*cookbooks.Cookbook, error)
	UploadIndexPages(ctx context.Context, id string, files []ingest.File) (*cookbooks.UploadResponse, error)
	Confirm(ctx context.Context, id string, req cookbooks.ConfirmRequest) (*cookbooks.ConfirmResponse, error)
}

// Form is the data entered on the first step.
type Form struct {
	Title  string
	Author string
}

// State is a snapshot of the workflow.
type State struct {
	SessionID     string
	Step          Step
	Form          Form
	Files         []ingest.File
	OwnerID       string
	UploadedPages int
	Items         []ReviewableItem
	RecipeCount   int
	Notice        string
	Error         string
}

// Config configures a Wizard.
type Config struct {
	API      ResourceAPI
	Launcher *ocrjob.Launcher
	Poller   *ocrjob.Poller
	Logger   *slog.Logger
}

// Wizard owns the import workflow state. It is safe for concurrent use.
type Wizard struct {
	api      ResourceAPI
	launcher *ocrjob.Launcher
	poller   *ocrjob.Poller
	logger   *slog.Logger

	mu         sync.Mutex
	state      State
	uploaded   string
	inflight   map[opKind]bool
	processing bool
	settled    chan struct{}
	jobGen     uint64
}

// New creates a Wizard at the form step.
func New(cfg Config) *Wizard {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Wizard{
		api:      cfg.API,
		launcher: cfg.Launcher,
		poller:   cfg.Poller,
		logger:   cfg.Logger,
		state:    newState(),
		inflight: make(map[opKind]bool),
	}
}

// NewFromClient wires a Wizard, Launcher and Poller around one Resource API client.
func NewFromClient(client *cookbooks.Client, poll ocrjob.PollerConfig, logger *slog.Logger) *Wizard {
	poll.API = client
	if poll.Logger == nil {
		poll.Logger = logger
	}
	return New(Config{
		API:      client,
		Launcher: ocrjob.NewLauncher(client, logger),
		Poller:   ocrjob.NewPoller(poll),
		Logger:   logger,
	})
}

func newState() State {
	return State{SessionID: uuid.New().String(), Step: StepForm}
}

// State returns a copy of the current workflow state.
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := w.state
	s.Files = append([]ingest.File(nil), w.state.Files...)
	s.Items = cloneItems(w.state.Items)
	return s
}

// Step returns the current step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Step
}

// Error returns the message of the last failure, or "".
func (w *Wizard) Error() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Error
}

// IsLoading reports whether any request is outstanding.
func (w *Wizard) IsLoading() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, busy := range w.inflight {
		if busy {
			return true
		}
	}
	return false
}

// IsProcessing reports whether an OCR job is being started or tracked.
func (w *Wizard) IsProcessing() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.processing || w.inflight[opLaunch]
}

// Progress returns the tracked job's page progress.
func (w *Wizard) Progress() ocrjob.Progress {
	w.mu.Lock()
	owner := w.state.OwnerID
	w.mu.Unlock()

	if w.poller == nil || owner == "" {
		return ocrjob.Progress{}
	}
	h, ok := w.poller.Handle()
	if !ok || h.OwnerID != owner {
		return ocrjob.Progress{}
	}
	return h.Progress
}

// Kept returns the review items marked to keep.
func (w *Wizard) Kept() []ReviewableItem {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Kept(w.state.Items)
}

// Skipped returns the review items marked to discard.
func (w *Wizard) Skipped() []ReviewableItem {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Skipped(w.state.Items)
}

// CanProceed reports whether the current step's readiness check holds.
func (w *Wizard) CanProceed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.canProceedLocked()
}

func (w *Wizard) canProceedLocked() bool {
	switch w.state.Step {
	case StepForm:
		return formReady(w.state.Form)
	case StepUpload:
		return len(w.state.Files) > 0
	case StepReview:
		return reviewReady(w.state.Items)
	}
	return false
}

func formReady(f Form) bool {
	return strings.TrimSpace(f.Title) != "" && strings.TrimSpace(f.Author) != ""
}

func reviewReady(items []ReviewableItem) bool {
	for _, it := range items {
		if it.Keep {
			return true
		}
	}
	return false
}

// SetForm records the cookbook title and author.
func (w *Wizard) SetForm(title, author string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Form = Form{Title: title, Author: author}
}

// StageFiles replaces the staged upload set.
func (w *Wizard) StageFiles(files ...ingest.File) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Files = append([]ingest.File(nil), files...)
}

// ClearFiles empties the staged upload set.
func (w *Wizard) ClearFiles() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Files = nil
}

// Proceed runs the operation that leaves the current step. Nothing is sent
// when the step is not ready.
func (w *Wizard) Proceed(ctx context.Context) error {
	w.mu.Lock()
	step := w.state.Step
	ready := w.canProceedLocked()
	w.mu.Unlock()

	if !ready {
		return fmt.Errorf("%w: %s", ErrNotReady, step)
	}
	switch step {
	case StepForm:
		return w.CreateCookbook(ctx)
	case StepUpload:
		return w.UploadIndexPages(ctx)
	case StepReview:
		return w.ConfirmImport(ctx)
	}
	return fmt.Errorf("%w: %s", ErrNotReady, step)
}

// CreateCookbook creates the owning cookbook and moves to the upload step.
func (w *Wizard) CreateCookbook(ctx context.Context) error {
	if err := w.acquire(opCreate); err != nil {
		return err
	}
	defer w.release(opCreate)

	w.mu.Lock()
	if w.state.OwnerID != "" {
		w.mu.Unlock()
		return ErrOwnerBound
	}
	if !formReady(w.state.Form) {
		w.mu.Unlock()
		return fmt.Errorf("%w: title and author are required", ErrNotReady)
	}
	session := w.state.SessionID
	req := cookbooks.CreateRequest{
		Title:  strings.TrimSpace(w.state.Form.Title),
		Author: strings.TrimSpace(w.state.Form.Author),
	}
	w.state.Error = ""
	w.mu.Unlock()

	cb, err := w.api.Create(ctx, req)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.SessionID != session {
		return ErrAbandoned
	}
	if err != nil {
		w.state.Error = api.Message(err)
		w.logger.Warn("create cookbook failed", "error", err)
		return err
	}

	w.state.OwnerID = cb.ID
	w.state.Step = StepUpload
	w.logger.Info("cookbook created", "cookbook_id", cb.ID, "title", cb.Title)
	return nil
}

// UploadIndexPages uploads the staged files and starts processing. It runs
// from the upload step, or from processing after the job settled. An
// identical staged set is not uploaded twice, so calling it again after a
// failed job only relaunches.
func (w *Wizard) UploadIndexPages(ctx context.Context) error {
	if err := w.acquire(opUpload); err != nil {
		return err
	}
	defer w.release(opUpload)

	w.mu.Lock()
	owner := w.state.OwnerID
	if owner == "" {
		w.mu.Unlock()
		return ErrNoOwner
	}
	if err := w.launchableLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	files := append([]ingest.File(nil), w.state.Files...)
	if len(files) == 0 {
		w.mu.Unlock()
		return fmt.Errorf("%w: no files staged", ErrNotReady)
	}
	session := w.state.SessionID
	fingerprint := ingest.Fingerprint(files)
	alreadyUploaded := fingerprint == w.uploaded
	w.state.Error = ""
	w.mu.Unlock()

	if !alreadyUploaded {
		resp, err := w.api.UploadIndexPages(ctx, owner, files)

		w.mu.Lock()
		if w.state.SessionID != session {
			w.mu.Unlock()
			return ErrAbandoned
		}
		if err != nil {
			w.state.Error = api.Message(err)
			w.mu.Unlock()
			w.logger.Warn("upload failed", "cookbook_id", owner, "error", err)
			return err
		}
		w.uploaded = fingerprint
		w.state.UploadedPages = resp.PageCount
		w.mu.Unlock()
		w.logger.Info("index pages uploaded", "cookbook_id", owner, "pages", resp.PageCount)
	}

	return w.StartProcessing(ctx)
}

// StartProcessing launches the OCR job and begins tracking it. A rejected
// launch leaves the step unchanged. Tracking stops when the job settles,
// the wizard is reset or closed, or ctx is done.
func (w *Wizard) StartProcessing(ctx context.Context) error {
	if err := w.acquire(opLaunch); err != nil {
		return err
	}
	defer w.release(opLaunch)

	w.mu.Lock()
	owner := w.state.OwnerID
	if owner == "" {
		w.mu.Unlock()
		return ErrNoOwner
	}
	if err := w.launchableLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	session := w.state.SessionID
	w.state.Error = ""
	w.state.Notice = ""
	w.mu.Unlock()

	out, err := w.launcher.Start(ctx, owner)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.SessionID != session {
		return ErrAbandoned
	}
	if !out.ShouldPoll() {
		w.state.Error = out.Reason
		return fmt.Errorf("%w: %s", ErrRejected, out.Reason)
	}

	w.state.Step = StepProcessing
	w.processing = true
	w.jobGen++
	done := make(chan struct{})
	w.settled = done

	events := w.poller.Begin(ctx, owner)
	go w.awaitTerminal(events, w.jobGen, session, done)

	w.logger.Info("tracking OCR job", "cookbook_id", owner, "outcome", out.Kind)
	return nil
}

// launchableLocked reports whether a job may be launched: from the upload
// step, or from processing once the previous job has settled.
func (w *Wizard) launchableLocked() error {
	if w.processing {
		return ErrBusy
	}
	switch w.state.Step {
	case StepUpload, StepProcessing:
		return nil
	}
	return fmt.Errorf("%w: cannot start processing from the %s step", ErrNotReady, w.state.Step)
}

func (w *Wizard) awaitTerminal(events <-chan ocrjob.Terminal, gen uint64, session string, done chan struct{}) {
	term, ok := <-events

	w.mu.Lock()
	defer w.mu.Unlock()
	defer close(done)

	if gen != w.jobGen || session != w.state.SessionID {
		return
	}
	w.processing = false
	if !ok {
		return
	}

	if term.Success {
		w.state.Items = NewReviewableItems(term.Results)
		w.state.Step = StepReview
		w.state.Error = ""
		w.state.Notice = term.ErrorMessage
		w.logger.Info("OCR results ready", "cookbook_id", term.OwnerID, "items", len(term.Results))
		return
	}

	w.state.Error = term.ErrorMessage
	w.logger.Warn("OCR job failed", "cookbook_id", term.OwnerID, "error", term.ErrorMessage)
}

// AwaitProcessing blocks until the current job's terminal event has been
// applied. It returns nil once the review step is reached.
func (w *Wizard) AwaitProcessing(ctx context.Context) error {
	w.mu.Lock()
	done := w.settled
	w.mu.Unlock()

	if done == nil {
		return ErrNoJob
	}
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case w.settled != done:
		return ErrAbandoned
	case w.state.Step == StepReview:
		return nil
	case w.state.Error != "":
		return fmt.Errorf("%w: %s", ErrJobFailed, w.state.Error)
	}
	return ErrAbandoned
}

// UpdateItem overwrites fields of review item i.
func (w *Wizard) UpdateItem(i int, u ItemUpdate) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if i < 0 || i >= len(w.state.Items) {
		return fmt.Errorf("%w: %d", ErrNoItem, i)
	}
	w.state.Items[i].Apply(u)
	return nil
}

// ToggleKeep flips the keep flag of review item i.
func (w *Wizard) ToggleKeep(i int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if i < 0 || i >= len(w.state.Items) {
		return fmt.Errorf("%w: %d", ErrNoItem, i)
	}
	w.state.Items[i].Keep = !w.state.Items[i].Keep
	return nil
}

// DiscardBelow clears Keep on unedited items whose confidence is below
// threshold and returns how many were changed.
func (w *Wizard) DiscardBelow(threshold float64) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for i, it := range w.state.Items {
		c, ok := it.ConfidenceValue()
		if !ok || it.Edited || !it.Keep || c >= threshold {
			continue
		}
		w.state.Items[i].Keep = false
		n++
	}
	return n
}

// ConfirmImport submits every review item and moves to the success step.
// It needs the review step with at least one kept item. A failed
// submission keeps the cookbook and all edits.
func (w *Wizard) ConfirmImport(ctx context.Context) error {
	if err := w.acquire(opConfirm); err != nil {
		return err
	}
	defer w.release(opConfirm)

	w.mu.Lock()
	owner := w.state.OwnerID
	if owner == "" {
		w.mu.Unlock()
		return ErrNoOwner
	}
	if w.state.Step != StepReview {
		w.mu.Unlock()
		return fmt.Errorf("%w: cannot confirm from the %s step", ErrNotReady, w.state.Step)
	}
	if !reviewReady(w.state.Items) {
		w.mu.Unlock()
		return fmt.Errorf("%w: keep at least one item", ErrNotReady)
	}
	session := w.state.SessionID
	req := cookbooks.ConfirmRequest{Recipes: Project(w.state.Items)}
	w.state.Error = ""
	w.mu.Unlock()

	resp, err := w.api.Confirm(ctx, owner, req)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.SessionID != session {
		return ErrAbandoned
	}
	if err != nil {
		w.state.Error = api.Message(err)
		w.logger.Warn("confirm failed", "cookbook_id", owner, "error", err)
		return err
	}

	w.state.RecipeCount = resp.RecipeCount
	w.state.Step = StepSuccess
	w.logger.Info("import confirmed", "cookbook_id", owner, "recipes", resp.RecipeCount)
	return nil
}

// GoToStep jumps to step without checking prerequisites.
func (w *Wizard) GoToStep(step Step) error {
	if !step.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidStep, int(step))
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Step = step
	return nil
}

// Reset stops job tracking and returns to an empty form step.
func (w *Wizard) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.poller != nil {
		w.poller.Stop()
	}
	w.state = newState()
	w.uploaded = ""
	w.processing = false
	w.settled = nil
	w.jobGen++
}

// Close stops job tracking. Hosts call it when they are torn down.
func (w *Wizard) Close() {
	if w.poller != nil {
		w.poller.Stop()
	}
}

func (w *Wizard) acquire(op opKind) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inflight[op] {
		return fmt.Errorf("%w: %s", ErrBusy, op)
	}
	w.inflight[op] = true
	return nil
}

func (w *Wizard) release(op opKind) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.inflight[op] = false
}
