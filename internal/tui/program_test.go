package tui

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackzampolin/pantry/internal/ingest"
	"github.com/jackzampolin/pantry/internal/testutil"
	"github.com/jackzampolin/pantry/internal/wizard"
)

func waitForText(t *testing.T, tm *teatest.TestModel, text string) {
	t.Helper()
	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return bytes.Contains(out, []byte(text))
	}, teatest.WithDuration(5*time.Second), teatest.WithCheckInterval(20*time.Millisecond))
}

// TestProgram_InteractiveImport runs the whole import through a bubbletea
// program against the development server.
func TestProgram_InteractiveImport(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	w := newWizard(t, newDevServer(t, nil))
	m := New(ctx, Options{
		Wizard:  w,
		Ingest:  ingest.Options{Logger: testutil.Logger()},
		Refresh: 10 * time.Millisecond,
	})

	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(120, 40))

	tm.Type("Ottolenghi Simple")
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})
	tm.Type("Yotam Ottolenghi")
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})
	waitForText(t, tm, "Index page files")

	tm.Type(strings.Join(testutil.WritePages(t, 2), " "))
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})
	waitForText(t, tm, "Buttermilk Pancakes")

	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})
	waitForText(t, tm, "Imported 3 recipes")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	final := tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second))

	fm, ok := final.(Model)
	require.True(t, ok)
	state := fm.State()
	assert.Equal(t, wizard.StepSuccess, state.Step)
	assert.Equal(t, 3, state.RecipeCount)
	assert.Equal(t, 2, state.UploadedPages)
	assert.Len(t, state.Items, 6)
}
