package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jackzampolin/pantry/internal/wizard"
)

var stepTitles = [wizard.NumSteps]string{
	"Cookbook Details",
	"Upload Index Pages",
	"Processing",
	"Review Recipes",
	"Done",
}

// View renders the current step.
func (m Model) View() string {
	if m.quit {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	if m.loading {
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(m.loadingMessage)
		return b.String()
	}

	switch m.state.Step {
	case wizard.StepForm:
		b.WriteString(m.renderForm())
	case wizard.StepUpload:
		b.WriteString(m.renderUpload())
	case wizard.StepProcessing:
		b.WriteString(m.renderProcessing())
	case wizard.StepReview:
		b.WriteString(m.renderReview())
	case wizard.StepSuccess:
		b.WriteString(m.renderSuccess())
	}
	b.WriteString("\n")

	if msg := m.errorMessage(); msg != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("Error: " + msg))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(successStyle.Render(m.notice))
		b.WriteString("\n")
	} else if m.state.Notice != "" && m.state.Step == wizard.StepReview {
		b.WriteString("\n")
		b.WriteString(warnStyle.Render(m.state.Notice))
		b.WriteString("\n")
	}

	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) errorMessage() string {
	if m.state.Error != "" {
		return m.state.Error
	}
	if m.err != nil {
		return m.err.Error()
	}
	return ""
}

func (m Model) renderHeader() string {
	step := m.state.Step
	if !step.Valid() {
		step = wizard.StepForm
	}
	stepNum := int(step) + 1
	title := fmt.Sprintf("IMPORT COOKBOOK - %s", stepTitles[step])

	const barWidth = 20
	filled := stepNum * barWidth / wizard.NumSteps
	bar := barFullStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", barWidth-filled))

	parts := []string{
		titleStyle.Render(title),
		"  ",
		bar,
		"  ",
		stepStyle.Render(fmt.Sprintf("Step %d of %d", stepNum, wizard.NumSteps)),
	}
	if info := m.countInfo(); info != "" {
		parts = append(parts, "  ", dimStyle.Render(info))
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, parts...)
}

func (m Model) countInfo() string {
	switch m.state.Step {
	case wizard.StepUpload:
		if n := len(m.state.Files); n > 0 {
			return fmt.Sprintf("%d files staged", n)
		}
	case wizard.StepReview:
		kept := len(wizard.Kept(m.state.Items))
		return fmt.Sprintf("%d kept, %d skipped", kept, len(m.state.Items)-kept)
	}
	return ""
}

func (m Model) renderForm() string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("Title"))
	b.WriteString("\n")
	b.WriteString(m.title.View())
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Author"))
	b.WriteString("\n")
	b.WriteString(m.author.View())
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderUpload() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Cookbook: %s by %s\n\n", m.state.Form.Title, m.state.Form.Author))
	b.WriteString(labelStyle.Render("Index page files"))
	b.WriteString(dimStyle.Render("  (JPEG, PNG or PDF, separated by spaces)"))
	b.WriteString("\n")
	b.WriteString(m.paths.View())
	b.WriteString("\n")

	if len(m.state.Files) > 0 {
		b.WriteString("\n")
		for _, f := range m.state.Files {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  • %s (%d pages)", f.Name, f.Pages)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderProcessing() string {
	var b strings.Builder
	p := m.progress

	if m.wiz.IsProcessing() {
		b.WriteString(m.spinner.View())
		b.WriteString(" Reading index pages")
	} else if m.state.Error != "" {
		b.WriteString(errorStyle.Render("✗ OCR job did not complete"))
	} else {
		b.WriteString(dimStyle.Render("Waiting for OCR job"))
	}
	b.WriteString("\n\n")

	percent := 0.0
	if p.TotalPages > 0 {
		percent = float64(p.CurrentPage) / float64(p.TotalPages)
	}
	b.WriteString(m.bar.ViewAs(percent))
	b.WriteString("\n")
	if p.TotalPages > 0 {
		b.WriteString(stepStyle.Render(fmt.Sprintf("Page %d of %d", p.CurrentPage, p.TotalPages)))
	} else {
		b.WriteString(stepStyle.Render(fmt.Sprintf("%d pages uploaded", m.state.UploadedPages)))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderReview() string {
	items := m.state.Items
	if len(items) == 0 {
		return dimStyle.Render("No recipes were found on the index pages.") + "\n"
	}

	var b strings.Builder
	head := fmt.Sprintf("    %-4s %-5s %-30s %-22s %s", "", "PAGE", "RECIPE", "INGREDIENT", "CONF")
	b.WriteString(columnHeadStyle.Render(head))
	b.WriteString("\n")

	start, end := m.window(len(items))
	for i := start; i < end; i++ {
		b.WriteString(m.renderItem(i, items[i]))
		b.WriteString("\n")
	}
	if start > 0 || end < len(items) {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %d-%d of %d", start+1, end, len(items))))
		b.WriteString("\n")
	}

	if m.field != editNone {
		label := "Recipe name"
		if m.field == editIngredient {
			label = "Ingredient"
		}
		b.WriteString("\n")
		b.WriteString(editOverlayStyle.Render(labelStyle.Render(label) + "\n" + m.edit.View()))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderItem(i int, it wizard.ReviewableItem) string {
	pointer := "  "
	if i == m.cursor {
		pointer = selectedStyle.Render("> ")
	}

	check := checkOffStyle.Render("[ ]")
	if it.Keep {
		check = checkOnStyle.Render("[x]")
	}

	page := "-"
	if it.PageNumber != nil {
		page = fmt.Sprintf("%d", *it.PageNumber)
	}

	name := fmt.Sprintf("%-30s", truncate(display(deref(it.Name)), 30))
	ingredient := fmt.Sprintf("%-22s", truncate(display(deref(it.Ingredient)), 22))
	if i == m.cursor {
		name = selectedStyle.Render(name)
	}

	conf := "  - "
	if c, ok := it.ConfidenceValue(); ok {
		conf = fmt.Sprintf("%3.0f%%", c*100)
	}
	switch {
	case it.Edited:
		conf = successStyle.Render(conf + " edited")
	case it.NeedsReview != nil && *it.NeedsReview:
		conf = warnStyle.Render(conf + " review")
	}

	return fmt.Sprintf("%s%s %-5s %s %s %s", pointer, check, page, name, ingredient, conf)
}

// window returns the visible slice of n review rows around the cursor.
func (m Model) window(n int) (int, int) {
	visible := n
	if m.height > 0 {
		visible = max(5, m.height-14)
	}
	if visible >= n {
		return 0, n
	}
	start := max(0, m.cursor-visible+1)
	return start, start + visible
}

func (m Model) renderSuccess() string {
	var b strings.Builder
	b.WriteString(successStyle.Render(fmt.Sprintf("✓ Imported %d recipes into %q", m.state.RecipeCount, m.state.Form.Title)))
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("Cookbook ID: " + m.state.OwnerID))
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderHelp() string {
	var help string
	switch m.state.Step {
	case wizard.StepForm:
		help = "tab switch field  enter continue  esc quit"
	case wizard.StepUpload:
		if len(m.state.Files) > 0 {
			help = "enter upload (empty input relaunches staged files)  esc quit"
		} else {
			help = "enter upload  esc quit"
		}
	case wizard.StepProcessing:
		if !m.wiz.IsProcessing() && m.state.Error != "" {
			help = "r retry  q quit"
		} else {
			help = "processing...  q quit"
		}
	case wizard.StepReview:
		if m.field != editNone {
			help = "enter save  esc cancel"
		} else {
			help = "↑↓ navigate  space keep/skip  e edit recipe  i edit ingredient  d skip low confidence"
			if m.opts.ExportPath != nil {
				help += "  x export"
			}
			help += "  enter import  q quit"
		}
	case wizard.StepSuccess:
		help = "enter exit"
	}
	return helpStyle.Render(help)
}
