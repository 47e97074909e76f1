package library

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/jackzampolin/pantry/internal/cookbooks"
	"github.com/jackzampolin/pantry/internal/ingest"
	"github.com/jackzampolin/pantry/internal/ocrjob"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func testLibrary(t *testing.T, fixtures string, delay time.Duration) *Library {
	t.Helper()
	var extractor Extractor
	if fixtures != "" {
		f, err := ParseFixtures([]byte(fixtures))
		if err != nil {
			t.Fatalf("ParseFixtures() error = %v", err)
		}
		extractor = f
	}
	lib, err := New(Config{
		Extractor: extractor,
		PageDelay: delay,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(lib.Close)
	return lib
}

func images(t *testing.T, n int) []ingest.File {
	t.Helper()
	files := make([]ingest.File, n)
	for i := range files {
		f, err := ingest.NewFile("index.png", pngHeader)
		if err != nil {
			t.Fatal(err)
		}
		files[i] = f
	}
	return files
}

func waitSettled(t *testing.T, lib *Library, id string) ocrjob.StatusResponse {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st, err := lib.OCRStatus(id)
		if err != nil {
			t.Fatalf("OCRStatus() error = %v", err)
		}
		if st.Status.IsTerminal() {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("OCR job did not settle")
	return ocrjob.StatusResponse{}
}

const mixedFixtures = `
pages:
  - recipes:
      - {recipe: Soup, page: 4, ingredient: Leek, confidence: 0.9}
      - {recipe: Soup, page: 4, ingredient: Stock, confidence: 0.5}
  - error: unreadable scan
`

func TestLibrary_OCRCompletedWithErrors(t *testing.T) {
	lib := testLibrary(t, mixedFixtures, 0)
	cb := lib.Create("Joy", "Rombauer")

	n, err := lib.SetPages(cb.ID, images(t, 2))
	if err != nil || n != 2 {
		t.Fatalf("SetPages() = %d, %v; want 2", n, err)
	}
	if err := lib.StartOCR(cb.ID); err != nil {
		t.Fatalf("StartOCR() error = %v", err)
	}

	st := waitSettled(t, lib, cb.ID)
	if st.Status != ocrjob.StatusCompletedWithErrors {
		t.Errorf("Status = %s, want COMPLETED_WITH_ERRORS", st.Status)
	}
	if st.ErrorMessage != "1 of 2 pages failed" {
		t.Errorf("ErrorMessage = %q", st.ErrorMessage)
	}
	if st.CurrentPage != 2 || st.TotalPages != 2 {
		t.Errorf("progress = %d/%d, want 2/2", st.CurrentPage, st.TotalPages)
	}
	if len(st.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(st.Results))
	}
	if *st.Results[0].NeedsReview || !*st.Results[1].NeedsReview {
		t.Errorf("needsReview = %v, %v; want false, true", *st.Results[0].NeedsReview, *st.Results[1].NeedsReview)
	}
}

func TestLibrary_OCRAllPagesFailed(t *testing.T) {
	lib := testLibrary(t, "pages:\n  - error: blurry\n", 0)
	cb := lib.Create("Joy", "Rombauer")
	if _, err := lib.SetPages(cb.ID, images(t, 3)); err != nil {
		t.Fatal(err)
	}
	if err := lib.StartOCR(cb.ID); err != nil {
		t.Fatal(err)
	}

	st := waitSettled(t, lib, cb.ID)
	if st.Status != ocrjob.StatusFailed || st.ErrorMessage != MsgAllPagesFailed {
		t.Errorf("status = %s %q, want FAILED %q", st.Status, st.ErrorMessage, MsgAllPagesFailed)
	}
}

func TestLibrary_StartOCRErrors(t *testing.T) {
	lib := testLibrary(t, "", time.Hour)
	cb := lib.Create("Joy", "Rombauer")

	if err := lib.StartOCR("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("StartOCR(missing) error = %v, want ErrNotFound", err)
	}
	if err := lib.StartOCR(cb.ID); !errors.Is(err, ErrNoPages) {
		t.Errorf("StartOCR() without pages error = %v, want ErrNoPages", err)
	}

	if _, err := lib.SetPages(cb.ID, images(t, 1)); err != nil {
		t.Fatal(err)
	}
	if err := lib.StartOCR(cb.ID); err != nil {
		t.Fatalf("StartOCR() error = %v", err)
	}
	if err := lib.StartOCR(cb.ID); !errors.Is(err, ErrAlreadyProcessing) {
		t.Errorf("second StartOCR() error = %v, want ErrAlreadyProcessing", err)
	}
	if _, err := lib.SetPages(cb.ID, images(t, 1)); !errors.Is(err, ErrAlreadyProcessing) {
		t.Errorf("SetPages() while processing error = %v, want ErrAlreadyProcessing", err)
	}

	st, _ := lib.OCRStatus(cb.ID)
	if st.Status != ocrjob.StatusInProgress {
		t.Errorf("Status = %s, want IN_PROGRESS", st.Status)
	}
}

func TestLibrary_CloseCancelsJobs(t *testing.T) {
	lib := testLibrary(t, "", time.Hour)
	cb := lib.Create("Joy", "Rombauer")
	if _, err := lib.SetPages(cb.ID, images(t, 2)); err != nil {
		t.Fatal(err)
	}
	if err := lib.StartOCR(cb.ID); err != nil {
		t.Fatal(err)
	}

	lib.Close()
	st, _ := lib.OCRStatus(cb.ID)
	if st.Status != ocrjob.StatusFailed || st.ErrorMessage != MsgCancelled {
		t.Errorf("status = %s %q, want FAILED %q", st.Status, st.ErrorMessage, MsgCancelled)
	}
}

func TestLibrary_SetPagesExpandsPDF(t *testing.T) {
	lib := testLibrary(t, "", 0)
	cb := lib.Create("Joy", "Rombauer")

	path := filepath.Join(t.TempDir(), "index.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
	pdf := ingest.File{Path: path, Name: "index.pdf", ContentType: ingest.ContentTypePDF, Pages: 3}

	n, err := lib.SetPages(cb.ID, append(images(t, 1), pdf))
	if err != nil {
		t.Fatalf("SetPages() error = %v", err)
	}
	if n != 4 {
		t.Errorf("SetPages() = %d, want 4", n)
	}

	got, _ := lib.Get(cb.ID)
	for i, p := range got.Pages {
		if p.Order != i {
			t.Errorf("pages[%d].Order = %d", i, p.Order)
		}
	}
	if got.Pages[3].PDFPage != 3 {
		t.Errorf("last page PDFPage = %d, want 3", got.Pages[3].PDFPage)
	}
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestLibrary_Confirm(t *testing.T) {
	lib := testLibrary(t, mixedFixtures, 0)
	cb := lib.Create("Joy", "Rombauer")
	if _, err := lib.SetPages(cb.ID, images(t, 1)); err != nil {
		t.Fatal(err)
	}
	if err := lib.StartOCR(cb.ID); err != nil {
		t.Fatal(err)
	}
	waitSettled(t, lib, cb.ID)

	rows := []cookbooks.ConfirmRecipe{
		{RecipeName: strPtr("Soup"), PageNumber: intPtr(4), Ingredient: strPtr("Leek"), Keep: true},
		{RecipeName: strPtr("Soup"), PageNumber: intPtr(4), Ingredient: strPtr(" leek "), Keep: true},
		{RecipeName: strPtr("Soup"), PageNumber: intPtr(4), Ingredient: strPtr("Stock"), Keep: true},
		{RecipeName: strPtr("Cake"), PageNumber: intPtr(9), Ingredient: strPtr("Sugar"), Keep: false},
		{RecipeName: strPtr("Bread"), PageNumber: intPtr(2), Ingredient: strPtr("FLOUR"), Keep: true},
	}
	n, err := lib.Confirm(cb.ID, rows)
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Confirm() = %d recipes, want 2", n)
	}

	got, _ := lib.Get(cb.ID)
	if len(got.Recipes) != 2 {
		t.Fatalf("stored %d recipes, want 2", len(got.Recipes))
	}
	if soup := got.Recipes[0]; soup.Name != "Soup" || !reflect.DeepEqual(soup.Ingredients, []string{"leek", "stock"}) {
		t.Errorf("recipes[0] = %+v", soup)
	}
	if want := []string{"flour", "leek", "stock"}; !reflect.DeepEqual(lib.Ingredients(), want) {
		t.Errorf("Ingredients() = %v, want %v", lib.Ingredients(), want)
	}

	st, _ := lib.OCRStatus(cb.ID)
	if st.Status != ocrjob.StatusPending || len(st.Results) != 0 {
		t.Errorf("after confirm: status = %s, results = %d; want PENDING, 0", st.Status, len(st.Results))
	}
}

func TestLibrary_ConfirmRejectsBlankIngredient(t *testing.T) {
	lib := testLibrary(t, "", 0)
	cb := lib.Create("Joy", "Rombauer")

	_, err := lib.Confirm(cb.ID, []cookbooks.ConfirmRecipe{{RecipeName: strPtr("Soup"), Ingredient: strPtr("  "), Keep: true}})
	if !errors.Is(err, ErrInvalidIngredient) {
		t.Errorf("Confirm() error = %v, want ErrInvalidIngredient", err)
	}
	if _, err := lib.Confirm("missing", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("Confirm(missing) error = %v, want ErrNotFound", err)
	}
}

func TestNormalizeIngredient(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{" Eggs ", "eggs", false},
		{"CRÈME FRAÎCHE", "crème fraîche", false},
		{"flour", "flour", false},
		{"   ", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeIngredient(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeIngredient() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NormalizeIngredient() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFixtures(t *testing.T) {
	f, err := DefaultFixtures()
	if err != nil {
		t.Fatalf("DefaultFixtures() error = %v", err)
	}
	if len(f.Pages) == 0 {
		t.Fatal("default fixtures are empty")
	}

	f, err = ParseFixtures([]byte(mixedFixtures))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if got, err := f.Extract(ctx, Page{Order: 2}); err != nil || len(got) != 2 {
		t.Errorf("Extract(page 2) = %d, %v; want wrap to first page", len(got), err)
	}
	if _, err := f.Extract(ctx, Page{Order: 1}); err == nil || err.Error() != "unreadable scan" {
		t.Errorf("Extract(page 1) error = %v, want unreadable scan", err)
	}

	if _, err := ParseFixtures([]byte("pages: []")); err == nil {
		t.Error("ParseFixtures() should reject empty fixtures")
	}
	if _, err := ParseFixtures([]byte("pages: [")); err == nil {
		t.Error("ParseFixtures() should reject invalid YAML")
	}
}
