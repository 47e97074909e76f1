package wizard

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/jackzampolin/pantry/internal/ocrjob"
)

func TestNewReviewableItems(t *testing.T) {
	results := threeResults()
	items := NewReviewableItems(results)

	if len(items) != len(results) {
		t.Fatalf("got %d items, want %d", len(items), len(results))
	}
	for i, it := range items {
		if !it.Keep || it.Edited {
			t.Errorf("items[%d] keep=%v edited=%v", i, it.Keep, it.Edited)
		}
	}

	*results[0].Name = "changed"
	if *items[0].Name != "Pancakes" {
		t.Error("items share storage with job results")
	}

	if got := NewReviewableItems(nil); len(got) != 0 {
		t.Errorf("NewReviewableItems(nil) = %v", got)
	}
}

func TestReviewableItem_Apply(t *testing.T) {
	tests := []struct {
		name       string
		update     ItemUpdate
		wantEdited bool
	}{
		{"empty", ItemUpdate{}, false},
		{"keep only", ItemUpdate{Keep: ptr(false)}, false},
		{"name", ItemUpdate{Name: strPtr("Crepes")}, true},
		{"page", ItemUpdate{PageNumber: intPtr(3)}, true},
		{"ingredient", ItemUpdate{Ingredient: strPtr("egg")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := NewReviewableItems(threeResults())[0]
			it.Apply(tt.update)
			if it.Edited != tt.wantEdited {
				t.Errorf("Edited = %v, want %v", it.Edited, tt.wantEdited)
			}
		})
	}
}

func TestProject(t *testing.T) {
	items := NewReviewableItems([]ocrjob.Result{
		{Name: strPtr("Soup"), PageNumber: intPtr(4), Ingredient: strPtr("leek"), Confidence: f64Ptr(0.5)},
		{},
	})
	items[1].Keep = false

	rows := Project(items)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if *rows[0].RecipeName != "Soup" || *rows[0].PageNumber != 4 || *rows[0].Ingredient != "leek" || !rows[0].Keep {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	if rows[1].RecipeName != nil || rows[1].Keep {
		t.Errorf("rows[1] = %+v", rows[1])
	}
}

func TestExportReview(t *testing.T) {
	items := NewReviewableItems(threeResults())
	items[1].Keep = false
	items[2].Apply(ItemUpdate{Ingredient: strPtr("leeks")})

	var buf bytes.Buffer
	if err := ExportReview(&buf, items); err != nil {
		t.Fatalf("ExportReview() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	cells := map[string]string{
		"A1": "Recipe",
		"A2": "Pancakes",
		"B2": "12",
		"C3": "buttermlk",
		"F3": "no",
		"C4": "leeks",
		"G4": "yes",
	}
	for cell, want := range cells {
		got, err := f.GetCellValue(ReviewSheet, cell)
		if err != nil {
			t.Errorf("GetCellValue(%s) error = %v", cell, err)
			continue
		}
		if got != want {
			t.Errorf("%s = %q, want %q", cell, got, want)
		}
	}
}

func TestWizard_ExportFile(t *testing.T) {
	w := New(Config{})
	path := filepath.Join(t.TempDir(), "exports", "review.xlsx")
	if err := w.ExportFile(path); err != nil {
		t.Fatalf("ExportFile() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer f.Close()
	if got, _ := f.GetCellValue(ReviewSheet, "A1"); got != "Recipe" {
		t.Errorf("A1 = %q, want Recipe", got)
	}
}
