package server

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackzampolin/pantry/internal/api"
	"github.com/jackzampolin/pantry/internal/config"
	"github.com/jackzampolin/pantry/internal/cookbooks"
	"github.com/jackzampolin/pantry/internal/ocrjob"
	"github.com/jackzampolin/pantry/internal/server/endpoints"
	"github.com/jackzampolin/pantry/internal/testutil"
)

func createCookbook(t *testing.T, client *cookbooks.Client) *cookbooks.Cookbook {
	t.Helper()
	cb, err := client.Create(context.Background(), cookbooks.CreateRequest{Title: "Salt Fat Acid Heat", Author: "Samin Nosrat"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return cb
}

func awaitJob(t *testing.T, client *cookbooks.Client, id string) ocrjob.Terminal {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poller := ocrjob.NewPoller(ocrjob.PollerConfig{API: client, Interval: 5 * time.Millisecond, Logger: testutil.Logger()})
	term, ok := <-poller.Begin(ctx, id)
	if !ok {
		t.Fatal("polling ended without a terminal status")
	}
	return term
}

func TestAPI_CreateAndGet(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	client := cookbooks.NewClient(api.NewClient(ts.URL))
	ctx := context.Background()

	cb := createCookbook(t, client)
	if cb.ID == "" || cb.CreatedAt.IsZero() {
		t.Fatalf("unexpected cookbook: %+v", cb)
	}
	if cb.OCRStatus != "NONE" {
		t.Errorf("OCRStatus = %q, want NONE", cb.OCRStatus)
	}

	got, err := client.Get(ctx, cb.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != "Salt Fat Acid Heat" {
		t.Errorf("Title = %q", got.Title)
	}

	t.Run("missing author", func(t *testing.T) {
		_, err := client.Create(ctx, cookbooks.CreateRequest{Title: "Untitled"})
		if code := api.StatusCode(err); code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", code)
		}
	})

	t.Run("unknown cookbook", func(t *testing.T) {
		_, err := client.Get(ctx, "missing")
		if !api.IsNotFound(err) {
			t.Errorf("expected not found, got %v", err)
		}
	})
}

func TestAPI_ListAndDelete(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	raw := api.NewClient(ts.URL)
	client := cookbooks.NewClient(raw)
	ctx := context.Background()

	cb := createCookbook(t, client)
	if _, err := client.Create(ctx, cookbooks.CreateRequest{Title: "Jerusalem", Author: "Yotam Ottolenghi"}); err != nil {
		t.Fatal(err)
	}

	var all endpoints.ListCookbooksResponse
	if err := raw.Get(ctx, "/api/cookbooks", &all); err != nil {
		t.Fatal(err)
	}
	if len(all.Cookbooks) != 2 {
		t.Errorf("got %d cookbooks, want 2", len(all.Cookbooks))
	}

	var filtered endpoints.ListCookbooksResponse
	if err := raw.Get(ctx, "/api/cookbooks?q=OTTOLENGHI", &filtered); err != nil {
		t.Fatal(err)
	}
	if len(filtered.Cookbooks) != 1 || filtered.Cookbooks[0].Title != "Jerusalem" {
		t.Errorf("filter returned %+v", filtered.Cookbooks)
	}

	if err := raw.Delete(ctx, "/api/cookbooks/"+cb.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := client.Get(ctx, cb.ID); !api.IsNotFound(err) {
		t.Errorf("expected not found after delete, got %v", err)
	}
	if err := raw.Delete(ctx, "/api/cookbooks/"+cb.ID); !api.IsNotFound(err) {
		t.Errorf("second delete: expected not found, got %v", err)
	}
}

func TestAPI_Upload(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	raw := api.NewClient(ts.URL)
	client := cookbooks.NewClient(raw)
	ctx := context.Background()
	cb := createCookbook(t, client)

	resp, err := client.UploadIndexPages(ctx, cb.ID, testutil.PNGFiles(t, 2))
	if err != nil {
		t.Fatalf("UploadIndexPages() error = %v", err)
	}
	if resp.CookbookID != cb.ID || resp.PageCount != 2 {
		t.Errorf("unexpected upload response: %+v", resp)
	}

	t.Run("unsupported type", func(t *testing.T) {
		err := raw.PostMultipart(ctx, "/api/cookbooks/"+cb.ID+"/index-pages", cookbooks.UploadField,
			[]api.FilePart{{Filename: "notes.txt", Content: bytes.NewReader([]byte("just text"))}}, nil)
		if code := api.StatusCode(err); code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400 (%v)", code, err)
		}
	})

	t.Run("no files", func(t *testing.T) {
		err := raw.PostMultipart(ctx, "/api/cookbooks/"+cb.ID+"/index-pages", cookbooks.UploadField, nil, nil)
		if code := api.StatusCode(err); code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", code)
		}
	})

	t.Run("unknown cookbook", func(t *testing.T) {
		_, err := client.UploadIndexPages(ctx, "missing", testutil.PNGFiles(t, 1))
		if !api.IsNotFound(err) {
			t.Errorf("expected not found, got %v", err)
		}
	})
}

func TestAPI_UploadLimitFromConfig(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgFile, []byte("upload:\n  max_files: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	mgr, err := config.NewManager(cfgFile)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	_, ts := newTestServer(t, Config{ConfigManager: mgr})
	client := cookbooks.NewClient(api.NewClient(ts.URL))
	cb := createCookbook(t, client)

	_, err = client.UploadIndexPages(context.Background(), cb.ID, testutil.PNGFiles(t, 2))
	if code := api.StatusCode(err); code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", code)
	}
}

func TestAPI_StartOCR(t *testing.T) {
	_, ts := newTestServer(t, Config{PageDelay: 100 * time.Millisecond})
	client := cookbooks.NewClient(api.NewClient(ts.URL))
	ctx := context.Background()
	cb := createCookbook(t, client)

	t.Run("no pages", func(t *testing.T) {
		err := client.StartOCR(ctx, cb.ID)
		if code := api.StatusCode(err); code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", code)
		}
	})

	t.Run("unknown cookbook", func(t *testing.T) {
		if err := client.StartOCR(ctx, "missing"); !api.IsNotFound(err) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	if _, err := client.UploadIndexPages(ctx, cb.ID, testutil.PNGFiles(t, 2)); err != nil {
		t.Fatal(err)
	}

	launcher := ocrjob.NewLauncher(client, testutil.Logger())
	first, err := launcher.Start(ctx, cb.ID)
	if err != nil {
		t.Fatal(err)
	}
	if first.Kind != ocrjob.Started {
		t.Errorf("first start = %s, want started", first.Kind)
	}

	second, err := launcher.Start(ctx, cb.ID)
	if err != nil {
		t.Fatal(err)
	}
	if second.Kind != ocrjob.AlreadyRunning {
		t.Errorf("second start = %s, want already running", second.Kind)
	}

	t.Run("upload refused while processing", func(t *testing.T) {
		_, err := client.UploadIndexPages(ctx, cb.ID, testutil.PNGFiles(t, 1))
		if !api.IsConflict(err) {
			t.Errorf("expected conflict, got %v", err)
		}
	})

	term := awaitJob(t, client, cb.ID)
	if term.Status != ocrjob.StatusCompleted || !term.Success {
		t.Errorf("terminal = %+v", term)
	}
	// Two pages of the built-in fixtures
	if len(term.Results) != 6 {
		t.Errorf("got %d results, want 6", len(term.Results))
	}
}

func TestAPI_FailedPages(t *testing.T) {
	fixtures := filepath.Join(t.TempDir(), "fixtures.yaml")
	content := `
pages:
  - recipes:
      - {recipe: Soup, page: 4, ingredient: Leek, confidence: 0.9}
  - error: scan is blank
`
	if err := os.WriteFile(fixtures, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	_, ts := newTestServer(t, Config{Fixtures: fixtures})
	client := cookbooks.NewClient(api.NewClient(ts.URL))
	ctx := context.Background()

	t.Run("some pages fail", func(t *testing.T) {
		cb := createCookbook(t, client)
		if _, err := client.UploadIndexPages(ctx, cb.ID, testutil.PNGFiles(t, 2)); err != nil {
			t.Fatal(err)
		}
		if err := client.StartOCR(ctx, cb.ID); err != nil {
			t.Fatal(err)
		}
		term := awaitJob(t, client, cb.ID)
		if term.Status != ocrjob.StatusCompletedWithErrors || !term.Success {
			t.Errorf("terminal = %+v", term)
		}
		if term.ErrorMessage != "1 of 2 pages failed" {
			t.Errorf("ErrorMessage = %q", term.ErrorMessage)
		}
		if len(term.Results) != 1 {
			t.Errorf("got %d results, want 1", len(term.Results))
		}
	})
}

func TestAPI_Confirm(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	raw := api.NewClient(ts.URL)
	client := cookbooks.NewClient(raw)
	ctx := context.Background()
	cb := createCookbook(t, client)

	if _, err := client.UploadIndexPages(ctx, cb.ID, testutil.PNGFiles(t, 1)); err != nil {
		t.Fatal(err)
	}
	if err := client.StartOCR(ctx, cb.ID); err != nil {
		t.Fatal(err)
	}
	term := awaitJob(t, client, cb.ID)

	t.Run("schema violation", func(t *testing.T) {
		err := raw.Post(ctx, "/api/cookbooks/"+cb.ID+"/confirm", map[string]any{
			"recipes": []map[string]any{{"recipeName": "Pancakes"}},
		}, nil)
		if code := api.StatusCode(err); code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", code)
		}
	})

	t.Run("blank ingredient", func(t *testing.T) {
		blank := "  "
		_, err := client.Confirm(ctx, cb.ID, cookbooks.ConfirmRequest{Recipes: []cookbooks.ConfirmRecipe{
			{RecipeName: term.Results[0].Name, Ingredient: &blank, Keep: true},
		}})
		if code := api.StatusCode(err); code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", code)
		}
	})

	rows := make([]cookbooks.ConfirmRecipe, 0, len(term.Results))
	for i, r := range term.Results {
		rows = append(rows, cookbooks.ConfirmRecipe{
			RecipeName: r.Name,
			PageNumber: r.PageNumber,
			Ingredient: r.Ingredient,
			Keep:       i != 1,
		})
	}
	resp, err := client.Confirm(ctx, cb.ID, cookbooks.ConfirmRequest{Recipes: rows})
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	// Every row on the first fixture page belongs to one recipe
	if resp.RecipeCount != 1 {
		t.Errorf("RecipeCount = %d, want 1", resp.RecipeCount)
	}

	var ingredients endpoints.ListIngredientsResponse
	if err := raw.Get(ctx, "/api/ingredients", &ingredients); err != nil {
		t.Fatal(err)
	}
	want := []string{"eggs", "flour"}
	if len(ingredients.Ingredients) != len(want) {
		t.Fatalf("ingredients = %v, want %v", ingredients.Ingredients, want)
	}
	for i := range want {
		if ingredients.Ingredients[i] != want[i] {
			t.Errorf("ingredients[%d] = %q, want %q", i, ingredients.Ingredients[i], want[i])
		}
	}

	got, err := client.Get(ctx, cb.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.RecipeCount != 1 || got.OCRStatus != "NONE" {
		t.Errorf("after confirm: %+v", got)
	}
	status, err := client.OCRStatus(ctx, cb.ID)
	if err != nil {
		t.Fatal(err)
	}
	if status.Status != ocrjob.StatusPending || len(status.Results) != 0 {
		t.Errorf("job not cleared: %+v", status)
	}
}
