package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pantry/internal/api"
	"github.com/jackzampolin/pantry/internal/cookbooks"
	"github.com/jackzampolin/pantry/internal/home"
	"github.com/jackzampolin/pantry/internal/ingest"
	"github.com/jackzampolin/pantry/internal/tui"
	"github.com/jackzampolin/pantry/internal/wizard"
)

var (
	importTitle        string
	importAuthor       string
	importInteractive  bool
	importExport       bool
	importDiscardBelow float64
)

// ImportResult summarizes a non-interactive import.
type ImportResult struct {
	CookbookID  string `json:"cookbookId" yaml:"cookbook_id"`
	Title       string `json:"title" yaml:"title"`
	Author      string `json:"author" yaml:"author"`
	Pages       int    `json:"pages" yaml:"pages"`
	Items       int    `json:"items" yaml:"items"`
	Kept        int    `json:"kept" yaml:"kept"`
	Skipped     int    `json:"skipped" yaml:"skipped"`
	RecipeCount int    `json:"recipeCount" yaml:"recipe_count"`
	Notice      string `json:"notice,omitempty" yaml:"notice,omitempty"`
	Export      string `json:"export,omitempty" yaml:"export,omitempty"`
}

var importCmd = &cobra.Command{
	Use:   "import [index-page-file...]",
	Short: "Import a cookbook index from scanned pages",
	Long: `Import a cookbook index: create the cookbook, upload the index page
scans, wait for OCR, review the results and confirm.

Without --interactive every extracted item is kept, except those below
--discard-below confidence. With --interactive a terminal wizard walks
through each step and the files given here are staged in advance.

Examples:
  pantry import --author "Samin Nosrat" salt-fat-acid-heat-index-1.jpg salt-fat-acid-heat-index-2.jpg
  pantry import --title Plenty --author "Yotam Ottolenghi" --discard-below 0.8 --export index.pdf
  pantry import --interactive`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := mgr.Get()

		h, err := getHome()
		if err != nil {
			return err
		}

		logger := newLogger()
		if importInteractive {
			// The wizard owns the terminal
			logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		}

		var files []ingest.File
		if len(args) > 0 {
			files, err = ingest.Stage(args, cfg.IngestOptions(logger))
			if err != nil {
				return err
			}
		}

		title := strings.TrimSpace(importTitle)
		if title == "" && len(files) > 0 {
			title = ingest.DeriveTitle(files[0].Path)
		}

		client := cookbooks.NewClient(api.NewClient(getServerURL()))
		w := wizard.NewFromClient(client, cfg.PollerConfig(client, logger), logger)
		defer w.Close()

		w.SetForm(title, importAuthor)
		if len(files) > 0 {
			w.StageFiles(files...)
		}

		if importInteractive {
			if err := h.EnsureExists(); err != nil {
				return err
			}
			state, err := tui.Run(ctx, tui.Options{
				Wizard:       w,
				Ingest:       cfg.IngestOptions(logger),
				DiscardBelow: importDiscardBelow,
				ExportPath: func(id string) string {
					return h.ExportPath(id, time.Now())
				},
			})
			if err != nil {
				return err
			}
			if state.Step != wizard.StepSuccess {
				return errors.New("import cancelled")
			}
			return api.Output(summarize(state, ""))
		}

		if len(files) == 0 {
			return errors.New("at least one index page file is required (or use --interactive)")
		}
		if title == "" || strings.TrimSpace(importAuthor) == "" {
			return errors.New("--title and --author are required")
		}
		return runImport(cmd, w, h)
	},
}

// runImport drives the wizard from form to success without prompting.
func runImport(cmd *cobra.Command, w *wizard.Wizard, h *home.Dir) error {
	ctx := cmd.Context()
	progress := cmd.ErrOrStderr()

	if err := w.Proceed(ctx); err != nil {
		return fmt.Errorf("failed to create cookbook: %w", err)
	}
	if err := w.Proceed(ctx); err != nil {
		return fmt.Errorf("failed to start OCR: %w", err)
	}
	fmt.Fprintf(progress, "Processing %d index pages...\n", w.State().UploadedPages)

	done := make(chan error, 1)
	go func() { done <- w.AwaitProcessing(ctx) }()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	var last int
wait:
	for {
		select {
		case err := <-done:
			if err != nil {
				return err
			}
			break wait
		case <-ticker.C:
			if p := w.Progress(); p.TotalPages > 0 && p.CurrentPage != last {
				last = p.CurrentPage
				fmt.Fprintf(progress, "  page %d of %d\n", p.CurrentPage, p.TotalPages)
			}
		}
	}

	if importDiscardBelow > 0 {
		n := w.DiscardBelow(importDiscardBelow)
		fmt.Fprintf(progress, "Skipped %d items below %.2f confidence\n", n, importDiscardBelow)
	}

	var exported string
	if importExport {
		if err := h.EnsureExists(); err != nil {
			return err
		}
		exported = h.ExportPath(w.State().OwnerID, time.Now())
		if err := w.ExportFile(exported); err != nil {
			return err
		}
	}

	if len(w.Kept()) == 0 {
		return errors.New("no items left to import")
	}
	if err := w.Proceed(ctx); err != nil {
		return fmt.Errorf("failed to confirm import: %w", err)
	}
	return api.Output(summarize(w.State(), exported))
}

func summarize(s wizard.State, exported string) ImportResult {
	kept := len(wizard.Kept(s.Items))
	return ImportResult{
		CookbookID:  s.OwnerID,
		Title:       s.Form.Title,
		Author:      s.Form.Author,
		Pages:       s.UploadedPages,
		Items:       len(s.Items),
		Kept:        kept,
		Skipped:     len(s.Items) - kept,
		RecipeCount: s.RecipeCount,
		Notice:      s.Notice,
		Export:      exported,
	}
}

func init() {
	importCmd.Flags().StringVar(&importTitle, "title", "", "cookbook title (default: derived from the first file name)")
	importCmd.Flags().StringVar(&importAuthor, "author", "", "cookbook author")
	importCmd.Flags().BoolVarP(&importInteractive, "interactive", "i", false, "run the terminal wizard")
	importCmd.Flags().BoolVar(&importExport, "export", false, "write the review sheet to the exports directory before confirming")
	importCmd.Flags().Float64Var(&importDiscardBelow, "discard-below", 0, "skip unedited items below this confidence (0 keeps everything)")
	importCmd.Flags().StringVar(&serverURL, "server", "", "Resource API URL (default: server_url from config)")

	rootCmd.AddCommand(importCmd)
}
