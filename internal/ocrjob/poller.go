package ocrjob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/jackzampolin/pantry/internal/api"
)

// Poller defaults.
const (
	DefaultInterval = 3 * time.Second
	DefaultTimeout  = 30 * time.Minute
)

// DefaultFailureMessage is used when a FAILED job carries no message.
const DefaultFailureMessage = "OCR processing failed"

// State is the lifecycle state of a Poller.
type State int

const (
	StateIdle State = iota
	StatePolling
	StateSettled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateSettled:
		return "settled"
	}
	return "unknown"
}

// errNotTerminal keeps the retry loop going after a non-terminal read.
var errNotTerminal = errors.New("job not terminal")

// PollerConfig configures a Poller.
type PollerConfig struct {
	API StatusAPI

	// Interval between the end of one read and the start of the next.
	// Zero uses DefaultInterval.
	Interval time.Duration

	// MaxAttempts bounds the number of reads per cycle. Zero is unbounded.
	MaxAttempts int

	// Timeout bounds the duration of a cycle. Zero is unbounded.
	Timeout time.Duration

	Logger *slog.Logger
}

// Poller tracks one OCR job at a time by reading its status until it
// settles. Reads within a cycle are strictly sequential.
type Poller struct {
	api         StatusAPI
	interval    time.Duration
	maxAttempts int
	timeout     time.Duration
	logger      *slog.Logger

	mu       sync.Mutex
	state    State
	ownerID  string
	handle   *Handle
	gen      uint64
	cancel   context.CancelFunc
	events   chan Terminal
	failures int
}

// NewPoller creates an idle Poller.
func NewPoller(cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MaxAttempts < 0 {
		cfg.MaxAttempts = 0
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Poller{
		api:         cfg.API,
		interval:    cfg.Interval,
		maxAttempts: cfg.MaxAttempts,
		timeout:     cfg.Timeout,
		logger:      cfg.Logger,
	}
}

// Begin starts tracking the job owned by ownerID and returns a channel that
// receives at most one Terminal and is then closed. Stop closes it without
// a value. Calling Begin again for the same owner while polling returns the
// existing channel; a different owner ends the current cycle first.
// Polling also stops when ctx is done. An empty ownerID is refused with an
// already closed channel and leaves the current cycle alone.
func (p *Poller) Begin(ctx context.Context, ownerID string) <-chan Terminal {
	if ownerID == "" {
		p.logger.Warn("refusing to poll OCR job without a cookbook id")
		closed := make(chan Terminal)
		close(closed)
		return closed
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StatePolling && p.ownerID == ownerID {
		return p.events
	}
	p.stopLocked()

	p.gen++
	gen := p.gen
	p.state = StatePolling
	p.ownerID = ownerID
	p.handle = &Handle{OwnerID: ownerID, Status: StatusPending}
	p.failures = 0
	events := make(chan Terminal, 1)
	p.events = events

	var (
		loopCtx context.Context
		cancel  context.CancelFunc
	)
	if p.timeout > 0 {
		loopCtx, cancel = context.WithTimeout(ctx, p.timeout)
	} else {
		loopCtx, cancel = context.WithCancel(ctx)
	}
	p.cancel = cancel

	p.logger.Debug("polling OCR job", "cookbook_id", ownerID, "interval", p.interval)
	go p.run(loopCtx, gen, ownerID)

	return events
}

// Stop ends the current cycle. It is idempotent and safe in any state. A
// read already in flight is cancelled and its result discarded.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Poller) stopLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if p.events != nil {
		close(p.events)
		p.events = nil
	}
	p.gen++
	p.state = StateIdle
}

// State returns the current lifecycle state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Handle returns a copy of the tracked job, if any.
func (p *Poller) Handle() (Handle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == nil {
		return Handle{}, false
	}
	h := *p.handle
	h.Results = append([]Result(nil), p.handle.Results...)
	return h, true
}

// Failures returns the number of transient read failures in the current cycle.
func (p *Poller) Failures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}

// Check performs a single status read without affecting the poller.
func (p *Poller) Check(ctx context.Context, ownerID string) (Handle, error) {
	if ownerID == "" {
		return Handle{}, ErrNoOwner
	}
	resp, err := p.api.OCRStatus(ctx, ownerID)
	if err != nil {
		return Handle{}, fmt.Errorf("failed to read OCR status: %w", err)
	}
	return newHandle(ownerID, resp), nil
}

func (p *Poller) run(ctx context.Context, gen uint64, ownerID string) {
	start := time.Now()
	attempts := 0

	err := retry.Do(
		func() error {
			attempts++
			resp, err := p.api.OCRStatus(ctx, ownerID)
			if err != nil {
				return err
			}
			if p.apply(gen, resp) {
				return nil
			}
			return errNotTerminal
		},
		retry.Context(ctx),
		retry.Attempts(uint(p.maxAttempts)),
		retry.Delay(p.interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			if errors.Is(err, errNotTerminal) || ctx.Err() != nil {
				return
			}
			p.recordFailure(gen, ownerID, int(n)+1, err)
		}),
	)
	if err == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen != gen {
		return
	}

	var reason string
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		d := p.timeout
		if d == 0 {
			d = time.Since(start).Round(time.Second)
		}
		reason = fmt.Sprintf("gave up waiting for OCR job after %s", d)
	case ctx.Err() != nil:
		p.logger.Debug("OCR polling cancelled", "cookbook_id", ownerID)
		p.stopLocked()
		return
	default:
		reason = fmt.Sprintf("gave up waiting for OCR job after %d attempts", attempts)
	}

	p.logger.Warn("OCR polling bound exhausted",
		"cookbook_id", ownerID,
		"attempts", attempts,
		"last_error", err)
	p.settleLocked(Terminal{
		OwnerID:      ownerID,
		Status:       p.handle.Status,
		Success:      false,
		ErrorMessage: reason,
	})
}

// apply records a successful read and reports whether the cycle is over.
func (p *Poller) apply(gen uint64, resp *StatusResponse) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.gen != gen || p.state != StatePolling {
		return true
	}

	next := newHandle(p.ownerID, resp)
	if !next.Status.IsTerminal() && p.handle != nil && !p.handle.Status.IsTerminal() {
		next.Progress.CurrentPage = max(next.Progress.CurrentPage, p.handle.Progress.CurrentPage)
		next.Progress.TotalPages = max(next.Progress.TotalPages, p.handle.Progress.TotalPages)
	}
	p.handle = &next

	p.logger.Debug("OCR status",
		"cookbook_id", p.ownerID,
		"status", next.Status,
		"current_page", next.Progress.CurrentPage,
		"total_pages", next.Progress.TotalPages)

	if !next.Status.IsTerminal() {
		return false
	}

	term := Terminal{
		OwnerID:      p.ownerID,
		Status:       next.Status,
		Success:      next.Status.Succeeded(),
		ErrorMessage: next.ErrorMessage,
	}
	if term.Success {
		term.Results = next.Results
	} else if term.ErrorMessage == "" {
		term.ErrorMessage = DefaultFailureMessage
	}
	p.logger.Info("OCR job settled",
		"cookbook_id", p.ownerID,
		"status", next.Status,
		"results", len(next.Results))
	p.settleLocked(term)
	return true
}

func (p *Poller) settleLocked(term Terminal) {
	p.state = StateSettled
	if p.events != nil {
		p.events <- term
		close(p.events)
		p.events = nil
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *Poller) recordFailure(gen uint64, ownerID string, attempt int, err error) {
	p.mu.Lock()
	if p.gen == gen {
		p.failures++
	}
	p.mu.Unlock()

	p.logger.Warn("OCR status read failed",
		"cookbook_id", ownerID,
		"attempt", attempt,
		"class", api.Classify(err),
		"error", err)
}
