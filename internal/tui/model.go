// Package tui is the interactive terminal front end for the cookbook import
// wizard. The model renders wizard state and runs wizard operations as
// bubbletea commands; all workflow rules stay in package wizard.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jackzampolin/pantry/internal/ingest"
	"github.com/jackzampolin/pantry/internal/ocrjob"
	"github.com/jackzampolin/pantry/internal/wizard"
)

// Defaults for Options.
const (
	DefaultDiscardBelow = 0.80
	DefaultRefresh      = 250 * time.Millisecond
)

// Options configures the interactive wizard.
type Options struct {
	Wizard *wizard.Wizard
	Ingest ingest.Options

	// DiscardBelow is the confidence used by the skip-low-confidence key.
	DiscardBelow float64

	// ExportPath returns where the review workbook is written. Nil
	// disables export.
	ExportPath func(cookbookID string) string

	// Refresh is how often the processing view re-reads progress.
	Refresh time.Duration
}

type editField int

const (
	editNone editField = iota
	editName
	editIngredient
)

// Model is the bubbletea model for the import wizard.
type Model struct {
	ctx  context.Context
	wiz  *wizard.Wizard
	opts Options

	state    wizard.State
	progress ocrjob.Progress

	title  textinput.Model
	author textinput.Model
	focus  int
	paths  textinput.Model
	edit   textinput.Model
	field  editField

	cursor         int
	loading        bool
	loadingMessage string
	err            error
	notice         string
	width          int
	height         int
	quit           bool

	spinner spinner.Model
	bar     progress.Model
}

type opDoneMsg struct {
	err error
}

type settledMsg struct {
	err error
}

type refreshMsg time.Time

type exportedMsg struct {
	path string
	err  error
}

// New creates a Model over opts.Wizard. Wizard operations run with ctx.
func New(ctx context.Context, opts Options) Model {
	if opts.DiscardBelow <= 0 {
		opts.DiscardBelow = DefaultDiscardBelow
	}
	if opts.Refresh <= 0 {
		opts.Refresh = DefaultRefresh
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))

	title := newInput("Ottolenghi Simple", 120)
	author := newInput("Yotam Ottolenghi", 120)
	paths := newInput("index-1.jpg index-2.jpg", 0)
	edit := newInput("", 120)

	m := Model{
		ctx:     ctx,
		wiz:     opts.Wizard,
		opts:    opts,
		title:   title,
		author:  author,
		paths:   paths,
		edit:    edit,
		spinner: s,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
	m.sync()

	form := m.state.Form
	m.title.SetValue(form.Title)
	m.author.SetValue(form.Author)
	m.focusStep()
	return m
}

func newInput(placeholder string, limit int) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = limit
	in.Width = 48
	return in
}

// State returns the wizard state as last rendered.
func (m Model) State() wizard.State {
	return m.state
}

// Init starts the spinner and cursor blink.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, textinput.Blink}
	if m.wiz.IsProcessing() {
		cmds = append(cmds, m.await(), m.refresh())
	}
	return tea.Batch(cmds...)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(10, min(msg.Width-10, 60))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case opDoneMsg:
		m.loading = false
		m.sync()
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.focusStep()
		if m.state.Step == wizard.StepProcessing {
			return m, tea.Batch(m.await(), m.refresh())
		}

	case settledMsg:
		m.sync()
		m.cursor = 0
		if msg.err != nil && !errors.Is(msg.err, wizard.ErrAbandoned) {
			m.err = msg.err
		}

	case refreshMsg:
		if m.state.Step != wizard.StepProcessing || !m.wiz.IsProcessing() {
			return m, nil
		}
		m.sync()
		return m, m.refresh()

	case exportedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.notice = "Review exported to " + msg.path
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.ForceQuit) {
		m.quit = true
		return m, tea.Quit
	}
	if m.loading {
		if key.Matches(msg, keys.Quit) {
			m.quit = true
			return m, tea.Quit
		}
		return m, nil
	}
	if m.field != editNone {
		return m.handleEditKey(msg)
	}

	switch m.state.Step {
	case wizard.StepForm:
		return m.updateForm(msg)
	case wizard.StepUpload:
		return m.updateUpload(msg)
	case wizard.StepProcessing:
		return m.updateProcessing(msg)
	case wizard.StepReview:
		return m.updateReview(msg)
	case wizard.StepSuccess:
		if key.Matches(msg, keys.Quit, keys.Confirm) {
			m.quit = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyEsc:
		m.quit = true
		return m, tea.Quit

	case key.Matches(msg, keys.NextField), key.Matches(msg, keys.PrevField):
		m.focus = 1 - m.focus
		m.focusStep()
		return m, nil

	case key.Matches(msg, keys.Confirm):
		if m.focus == 0 {
			m.focus = 1
			m.focusStep()
			return m, nil
		}
		m.wiz.SetForm(m.title.Value(), m.author.Value())
		if !m.wiz.CanProceed() {
			m.err = errors.New("title and author are required")
			return m, nil
		}
		return m.proceed("Creating cookbook...")
	}

	var cmd tea.Cmd
	if m.focus == 0 {
		m.title, cmd = m.title.Update(msg)
	} else {
		m.author, cmd = m.author.Update(msg)
	}
	return m, cmd
}

func (m Model) updateUpload(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyEsc:
		m.quit = true
		return m, tea.Quit

	case key.Matches(msg, keys.Confirm):
		paths := splitPaths(m.paths.Value())
		if len(paths) == 0 {
			if len(m.state.Files) == 0 {
				m.err = errors.New("enter at least one index page file")
				return m, nil
			}
			// Files already staged: launch again without re-uploading.
			return m.proceed("Starting OCR...")
		}
		files, err := ingest.Stage(paths, m.opts.Ingest)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.wiz.StageFiles(files...)
		m.paths.SetValue("")
		return m.proceed(fmt.Sprintf("Uploading %d index pages...", ingest.TotalPages(files)))
	}

	var cmd tea.Cmd
	m.paths, cmd = m.paths.Update(msg)
	return m, cmd
}

func (m Model) updateProcessing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.quit = true
		return m, tea.Quit

	case key.Matches(msg, keys.Retry):
		if m.wiz.IsProcessing() || m.state.Error == "" {
			return m, nil
		}
		if err := m.wiz.GoToStep(wizard.StepUpload); err != nil {
			m.err = err
			return m, nil
		}
		return m.proceed("Restarting OCR...")
	}
	return m, nil
}

func (m Model) updateReview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.state.Items)
	switch {
	case key.Matches(msg, keys.Quit):
		m.quit = true
		return m, tea.Quit

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, keys.Down):
		if m.cursor < n-1 {
			m.cursor++
		}

	case key.Matches(msg, keys.Toggle):
		if err := m.wiz.ToggleKeep(m.cursor); err != nil {
			m.err = err
		}
		m.sync()

	case key.Matches(msg, keys.EditName), key.Matches(msg, keys.EditIngr):
		if m.cursor >= n {
			return m, nil
		}
		it := m.state.Items[m.cursor]
		m.field = editName
		value := it.Name
		if key.Matches(msg, keys.EditIngr) {
			m.field = editIngredient
			value = it.Ingredient
		}
		m.edit.SetValue(deref(value))
		m.edit.CursorEnd()
		cmd := m.edit.Focus()
		return m, cmd

	case key.Matches(msg, keys.Discard):
		changed := m.wiz.DiscardBelow(m.opts.DiscardBelow)
		m.notice = fmt.Sprintf("Skipped %d items below %.0f%% confidence", changed, m.opts.DiscardBelow*100)
		m.sync()

	case key.Matches(msg, keys.Export):
		if m.opts.ExportPath == nil {
			return m, nil
		}
		m.loading = true
		m.loadingMessage = "Exporting review..."
		return m, m.export()

	case key.Matches(msg, keys.Confirm):
		if !m.wiz.CanProceed() {
			m.err = errors.New("keep at least one item to import")
			return m, nil
		}
		return m.proceed(fmt.Sprintf("Importing %d items...", len(m.wiz.Kept())))
	}
	return m, nil
}

func (m Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Cancel):
		m.field = editNone
		m.edit.Blur()
		return m, nil

	case key.Matches(msg, keys.Confirm):
		value := m.edit.Value()
		var u wizard.ItemUpdate
		if m.field == editName {
			u.Name = &value
		} else {
			u.Ingredient = &value
		}
		if err := m.wiz.UpdateItem(m.cursor, u); err != nil {
			m.err = err
		}
		m.field = editNone
		m.edit.Blur()
		m.sync()
		return m, nil
	}

	var cmd tea.Cmd
	m.edit, cmd = m.edit.Update(msg)
	return m, cmd
}

// proceed clears messages and runs the current step's operation.
func (m Model) proceed(message string) (tea.Model, tea.Cmd) {
	m.err = nil
	m.notice = ""
	m.loading = true
	m.loadingMessage = message

	ctx, wiz := m.ctx, m.wiz
	return m, func() tea.Msg {
		return opDoneMsg{err: wiz.Proceed(ctx)}
	}
}

func (m Model) await() tea.Cmd {
	ctx, wiz := m.ctx, m.wiz
	return func() tea.Msg {
		return settledMsg{err: wiz.AwaitProcessing(ctx)}
	}
}

func (m Model) refresh() tea.Cmd {
	return tea.Tick(m.opts.Refresh, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func (m Model) export() tea.Cmd {
	path := m.opts.ExportPath(m.state.OwnerID)
	wiz := m.wiz
	return func() tea.Msg {
		return exportedMsg{path: path, err: wiz.ExportFile(path)}
	}
}

func (m *Model) sync() {
	m.state = m.wiz.State()
	m.progress = m.wiz.Progress()
	if m.cursor >= len(m.state.Items) {
		m.cursor = max(0, len(m.state.Items)-1)
	}
}

// focusStep focuses the text input belonging to the current step.
func (m *Model) focusStep() {
	m.title.Blur()
	m.author.Blur()
	m.paths.Blur()
	switch m.state.Step {
	case wizard.StepForm:
		if m.focus == 0 {
			m.title.Focus()
		} else {
			m.author.Focus()
		}
	case wizard.StepUpload:
		m.paths.Focus()
	}
}

func splitPaths(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Run shows the wizard full screen until the user quits or ctx is done,
// then stops job tracking and returns the final workflow state.
func Run(ctx context.Context, opts Options) (wizard.State, error) {
	defer opts.Wizard.Close()

	p := tea.NewProgram(New(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return opts.Wizard.State(), err
	}
	return opts.Wizard.State(), nil
}
