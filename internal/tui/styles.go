package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Background(lipgloss.Color("236")).
			Padding(0, 1).
			MarginBottom(1)

	stepStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	barFullStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	barEmptyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	selectedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	checkOnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	checkOffStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).MarginTop(1)
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	successStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	warnStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	labelStyle       = lipgloss.NewStyle().Bold(true)
	columnHeadStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Underline(true)
	editOverlayStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("212")).
				Padding(0, 1)
)

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	NextField key.Binding
	PrevField key.Binding
	Toggle    key.Binding
	EditName  key.Binding
	EditIngr  key.Binding
	Discard   key.Binding
	Export    key.Binding
	Retry     key.Binding
	Confirm   key.Binding
	Cancel    key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
}

var keys = keyMap{
	Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	NextField: key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
	PrevField: key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "previous field")),
	Toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "keep/skip")),
	EditName:  key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit recipe")),
	EditIngr:  key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "edit ingredient")),
	Discard:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "skip low confidence")),
	Export:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "export")),
	Retry:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
	Confirm:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "continue")),
	Cancel:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	Quit:      key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "quit")),
	ForceQuit: key.NewBinding(key.WithKeys("ctrl+c")),
}

// display title-cases OCR text for the review table.
func display(s string) string {
	return cases.Title(language.English).String(strings.TrimSpace(s))
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
