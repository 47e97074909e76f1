// Package library is the in-memory cookbook store behind the development
// Resource API. It runs OCR jobs in the background, one page at a time.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jackzampolin/pantry/internal/cookbooks"
	"github.com/jackzampolin/pantry/internal/ingest"
	"github.com/jackzampolin/pantry/internal/ocrjob"
)

var (
	ErrNotFound          = errors.New("cookbook not found")
	ErrAlreadyProcessing = errors.New("OCR processing is already in progress for this cookbook")
	ErrNoPages           = errors.New("no index pages found for cookbook")
	ErrInvalidIngredient = errors.New("ingredient name cannot be empty")
)

// Failure messages reported by finished jobs.
const (
	MsgAllPagesFailed = "All pages failed to process"
	MsgCancelled      = "OCR processing was cancelled"
)

// OCRState is the job state stored on a cookbook.
type OCRState string

const (
	OCRNone                OCRState = "NONE"
	OCRProcessing          OCRState = "PROCESSING"
	OCRCompleted           OCRState = "COMPLETED"
	OCRCompletedWithErrors OCRState = "COMPLETED_WITH_ERRORS"
	OCRFailed              OCRState = "FAILED"
)

// Status maps the stored state to the wire status.
func (s OCRState) Status() ocrjob.Status {
	switch s {
	case OCRProcessing:
		return ocrjob.StatusInProgress
	case OCRCompleted:
		return ocrjob.StatusCompleted
	case OCRCompletedWithErrors:
		return ocrjob.StatusCompletedWithErrors
	case OCRFailed:
		return ocrjob.StatusFailed
	}
	return ocrjob.StatusPending
}

// Page is one index page. PDF uploads contribute one page per document page.
type Page struct {
	Order       int
	Name        string
	ContentType string
	Data        []byte
	PDFPage     int
}

// Recipe is a confirmed recipe with its normalized ingredients.
type Recipe struct {
	ID          string
	Name        string
	PageNumber  int
	Ingredients []string
}

// Cookbook is a stored cookbook.
type Cookbook struct {
	ID        string
	Title     string
	Author    string
	CreatedAt time.Time

	Pages       []Page
	OCRState    OCRState
	OCRError    string
	CurrentPage int
	TotalPages  int
	Results     []ocrjob.Result
	Recipes     []Recipe
}

// Config configures a Library.
type Config struct {
	// Extractor reads index pages. Nil uses the built-in fixtures.
	Extractor Extractor
	// PageDelay is slept before each page to make progress observable.
	PageDelay time.Duration
	Logger    *slog.Logger
}

// Library stores cookbooks and runs their OCR jobs.
type Library struct {
	extractor Extractor
	pageDelay time.Duration
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.RWMutex
	cookbooks   map[string]*Cookbook
	ingredients map[string]struct{}
}

// New creates an empty Library.
func New(cfg Config) (*Library, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Extractor == nil {
		fixtures, err := DefaultFixtures()
		if err != nil {
			return nil, err
		}
		cfg.Extractor = fixtures
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Library{
		extractor:   cfg.Extractor,
		pageDelay:   cfg.PageDelay,
		logger:      cfg.Logger,
		ctx:         ctx,
		cancel:      cancel,
		cookbooks:   make(map[string]*Cookbook),
		ingredients: make(map[string]struct{}),
	}, nil
}

// Close cancels running jobs and waits for them to finish.
func (l *Library) Close() {
	l.cancel()
	l.wg.Wait()
}

// PageDelay returns the delay slept before each page.
func (l *Library) PageDelay() time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pageDelay
}

// SetPageDelay changes the per-page delay. Running jobs pick it up at their
// next page.
func (l *Library) SetPageDelay(d time.Duration) {
	l.mu.Lock()
	l.pageDelay = d
	l.mu.Unlock()
}

// Create stores a new cookbook.
func (l *Library) Create(title, author string) Cookbook {
	cb := &Cookbook{
		ID:        uuid.New().String(),
		Title:     title,
		Author:    author,
		CreatedAt: time.Now().UTC(),
		OCRState:  OCRNone,
	}

	l.mu.Lock()
	l.cookbooks[cb.ID] = cb
	l.mu.Unlock()

	l.logger.Info("cookbook created", "cookbook_id", cb.ID, "title", title)
	return snapshot(cb)
}

// Get returns a copy of a cookbook.
func (l *Library) Get(id string) (Cookbook, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cb, ok := l.cookbooks[id]
	if !ok {
		return Cookbook{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return snapshot(cb), nil
}

// List returns all cookbooks ordered by creation time.
func (l *Library) List() []Cookbook {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Cookbook, 0, len(l.cookbooks))
	for _, cb := range l.cookbooks {
		out = append(out, snapshot(cb))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Delete removes a cookbook. A running job for it stops at its next page.
func (l *Library) Delete(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.cookbooks[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(l.cookbooks, id)
	return nil
}

// SetPages replaces the cookbook's index pages and returns the page count.
func (l *Library) SetPages(id string, files []ingest.File) (int, error) {
	var pages []Page
	for _, f := range files {
		r, err := f.Open()
		if err != nil {
			return 0, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			return 0, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		for p := 1; p <= f.Pages; p++ {
			page := Page{Order: len(pages), Name: f.Name, ContentType: f.ContentType, Data: data}
			if f.ContentType == ingest.ContentTypePDF {
				page.PDFPage = p
			}
			pages = append(pages, page)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	cb, ok := l.cookbooks[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if cb.OCRState == OCRProcessing {
		return 0, ErrAlreadyProcessing
	}
	cb.Pages = pages

	l.logger.Info("index pages stored", "cookbook_id", id, "pages", len(pages))
	return len(pages), nil
}

// StartOCR starts a background job over the cookbook's pages.
func (l *Library) StartOCR(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	cb, ok := l.cookbooks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if cb.OCRState == OCRProcessing {
		return ErrAlreadyProcessing
	}
	if len(cb.Pages) == 0 {
		return ErrNoPages
	}

	cb.OCRState = OCRProcessing
	cb.OCRError = ""
	cb.Results = nil
	cb.CurrentPage = 0
	cb.TotalPages = len(cb.Pages)
	pages := append([]Page(nil), cb.Pages...)

	l.wg.Add(1)
	go l.process(id, pages)

	l.logger.Info("OCR processing started", "cookbook_id", id, "pages", len(pages))
	return nil
}

// OCRStatus returns the job status in wire form.
func (l *Library) OCRStatus(id string) (ocrjob.StatusResponse, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cb, ok := l.cookbooks[id]
	if !ok {
		return ocrjob.StatusResponse{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	results := append([]ocrjob.Result{}, cb.Results...)
	return ocrjob.StatusResponse{
		Status:       cb.OCRState.Status(),
		CurrentPage:  cb.CurrentPage,
		TotalPages:   cb.TotalPages,
		Results:      results,
		ErrorMessage: cb.OCRError,
	}, nil
}

// Confirm saves the kept rows as recipes, grouped by name and page, then
// clears the job. It returns the number of recipes created.
func (l *Library) Confirm(id string, rows []cookbooks.ConfirmRecipe) (int, error) {
	type key struct {
		name string
		page int
	}
	var order []key
	grouped := make(map[key]*Recipe)

	for _, row := range rows {
		if !row.Keep {
			continue
		}
		ingredient, err := NormalizeIngredient(deref(row.Ingredient))
		if err != nil {
			return 0, err
		}
		k := key{name: deref(row.RecipeName)}
		if row.PageNumber != nil {
			k.page = *row.PageNumber
		}
		r, ok := grouped[k]
		if !ok {
			r = &Recipe{ID: uuid.New().String(), Name: k.name, PageNumber: k.page}
			grouped[k] = r
			order = append(order, k)
		}
		if !contains(r.Ingredients, ingredient) {
			r.Ingredients = append(r.Ingredients, ingredient)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	cb, ok := l.cookbooks[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if cb.OCRState == OCRProcessing {
		return 0, ErrAlreadyProcessing
	}

	for _, k := range order {
		r := grouped[k]
		for _, ing := range r.Ingredients {
			l.ingredients[ing] = struct{}{}
		}
		cb.Recipes = append(cb.Recipes, *r)
	}
	cb.Results = nil
	cb.OCRState = OCRNone
	cb.OCRError = ""
	cb.CurrentPage = 0
	cb.TotalPages = 0

	l.logger.Info("import confirmed", "cookbook_id", id, "recipes", len(order))
	return len(order), nil
}

// Ingredients returns every known ingredient name in sorted order.
func (l *Library) Ingredients() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.ingredients))
	for name := range l.ingredients {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

var lower = cases.Lower(language.Und)

// NormalizeIngredient lower-cases and trims an ingredient name.
func NormalizeIngredient(raw string) (string, error) {
	name := lower.String(strings.TrimSpace(raw))
	if name == "" {
		return "", ErrInvalidIngredient
	}
	return name, nil
}

func (l *Library) process(id string, pages []Page) {
	defer l.wg.Done()

	failed := 0
	for i, page := range pages {
		if d := l.PageDelay(); d > 0 {
			select {
			case <-time.After(d):
			case <-l.ctx.Done():
			}
		}
		if l.ctx.Err() != nil {
			l.finish(id, OCRFailed, MsgCancelled)
			return
		}

		found, err := l.extractor.Extract(l.ctx, page)

		l.mu.Lock()
		cb, ok := l.cookbooks[id]
		if !ok {
			l.mu.Unlock()
			l.logger.Warn("cookbook deleted during OCR", "cookbook_id", id)
			return
		}
		cb.CurrentPage = i + 1
		if err != nil {
			failed++
			l.logger.Error("OCR processing failed for page",
				"cookbook_id", id, "page", page.Order, "error", err)
		} else {
			for _, e := range found {
				cb.Results = append(cb.Results, toResult(e))
			}
			l.logger.Debug("processed page", "cookbook_id", id, "page", page.Order, "recipes", len(found))
		}
		l.mu.Unlock()
	}

	switch {
	case failed == len(pages):
		l.finish(id, OCRFailed, MsgAllPagesFailed)
	case failed > 0:
		l.finish(id, OCRCompletedWithErrors, fmt.Sprintf("%d of %d pages failed", failed, len(pages)))
	default:
		l.finish(id, OCRCompleted, "")
	}
}

func (l *Library) finish(id string, state OCRState, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cb, ok := l.cookbooks[id]
	if !ok {
		return
	}
	cb.OCRState = state
	cb.OCRError = msg
	l.logger.Info("OCR processing finished", "cookbook_id", id, "status", state, "results", len(cb.Results))
}

func toResult(e Extracted) ocrjob.Result {
	name, ingredient := e.RecipeName, e.Ingredient
	page, confidence := e.PageNumber, e.Confidence
	needsReview := e.NeedsReview()
	return ocrjob.Result{
		Name:        &name,
		PageNumber:  &page,
		Ingredient:  &ingredient,
		Confidence:  &confidence,
		NeedsReview: &needsReview,
	}
}

func snapshot(cb *Cookbook) Cookbook {
	c := *cb
	c.Pages = append([]Page(nil), cb.Pages...)
	c.Results = append([]ocrjob.Result(nil), cb.Results...)
	c.Recipes = append([]Recipe(nil), cb.Recipes...)
	return c
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
