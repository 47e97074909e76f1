package endpoints

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pantry/internal/api"
	"github.com/jackzampolin/pantry/internal/cookbooks"
	"github.com/jackzampolin/pantry/internal/ocrjob"
)

// OCRResultsEndpoint handles GET /api/cookbooks/{id}/ocr/results.
type OCRResultsEndpoint struct{}

var _ api.Endpoint = (*OCRResultsEndpoint)(nil)

func (e *OCRResultsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/cookbooks/{id}/ocr/results", e.handler
}

func (e *OCRResultsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		OCR status and results
//	@Description	Report the OCR job status, page progress and the recipes read so far
//	@Tags			ocr
//	@Produce		json
//	@Param			id	path		string	true	"Cookbook ID"
//	@Success		200	{object}	ocrjob.StatusResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/cookbooks/{id}/ocr/results [get]
func (e *OCRResultsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	lib, ok := libraryFrom(w, r)
	if !ok {
		return
	}

	resp, err := lib.OCRStatus(r.PathValue("id"))
	if err != nil {
		writeLibraryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *OCRResultsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var (
		watch       bool
		interval    time.Duration
		maxAttempts int
		timeout     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "status <cookbook-id>",
		Short: "Show OCR status and results",
		Long: `Show OCR status and results for a cookbook.

With --watch the status is polled until the job settles. Transient read
failures are retried; the command fails if the job fails or polling
gives up.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := cookbooks.NewClient(api.NewClient(getServerURL()))
			poller := ocrjob.NewPoller(ocrjob.PollerConfig{
				API:         client,
				Interval:    interval,
				MaxAttempts: maxAttempts,
				Timeout:     timeout,
			})

			if !watch {
				h, err := poller.Check(ctx, args[0])
				if err != nil {
					return err
				}
				return api.Output(h)
			}

			term, err := watchJob(ctx, poller, args[0], interval)
			if err != nil {
				return err
			}
			if err := api.Output(term); err != nil {
				return err
			}
			if !term.Success {
				return fmt.Errorf("OCR job %s: %s", term.Status, term.ErrorMessage)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Poll until the job settles")
	cmd.Flags().DurationVar(&interval, "interval", ocrjob.DefaultInterval, "Delay between status reads")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "Give up after this many reads (0 = unbounded)")
	cmd.Flags().DurationVar(&timeout, "timeout", ocrjob.DefaultTimeout, "Give up after this long (0 = unbounded)")
	return cmd
}

// watchJob polls until the job settles, printing progress to stderr.
func watchJob(ctx context.Context, poller *ocrjob.Poller, id string, every time.Duration) (ocrjob.Terminal, error) {
	events := poller.Begin(ctx, id)
	defer poller.Stop()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	var last ocrjob.Progress
	for {
		select {
		case term, ok := <-events:
			if !ok {
				if err := ctx.Err(); err != nil {
					return ocrjob.Terminal{}, err
				}
				return ocrjob.Terminal{}, errors.New("polling stopped")
			}
			return term, nil
		case <-ticker.C:
			h, ok := poller.Handle()
			if ok && h.Progress != last {
				last = h.Progress
				fmt.Fprintf(os.Stderr, "%s: page %d of %d\n", h.Status, last.CurrentPage, last.TotalPages)
			}
		}
	}
}
