package wizard

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// ReviewSheet is the worksheet written by ExportReview.
const ReviewSheet = "Review"

var reviewHeaders = []string{
	"Recipe",
	"Page",
	"Ingredient",
	"Confidence",
	"Needs Review",
	"Keep",
	"Edited",
}

// ExportReview writes the review items as an XLSX workbook.
func ExportReview(out io.Writer, items []ReviewableItem) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = ReviewSheet
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("xlsx sheet: %w", err)
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	for i, h := range reviewHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, it := range items {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, deref(it.Name))
		if it.PageNumber != nil {
			write(2, *it.PageNumber)
		}
		write(3, deref(it.Ingredient))
		if it.Confidence != nil {
			write(4, *it.Confidence)
		}
		if it.NeedsReview != nil {
			write(5, yesNo(*it.NeedsReview))
		}
		write(6, yesNo(it.Keep))
		write(7, yesNo(it.Edited))
	}

	_ = f.SetColWidth(sheet, "A", "A", 32) // recipe
	_ = f.SetColWidth(sheet, "B", "B", 8)  // page
	_ = f.SetColWidth(sheet, "C", "C", 28) // ingredient
	_ = f.SetColWidth(sheet, "D", "G", 13)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	if _, err := io.Copy(out, buf); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

// Export writes the current review items as an XLSX workbook.
func (w *Wizard) Export(out io.Writer) error {
	return ExportReview(out, w.State().Items)
}

// ExportFile writes the review workbook to path, creating its directory.
func (w *Wizard) ExportFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	return errors.Join(w.Export(f), f.Close())
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
