package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pantry/internal/api"
	"github.com/jackzampolin/pantry/internal/cookbooks"
	"github.com/jackzampolin/pantry/internal/ocrjob"
	"github.com/jackzampolin/pantry/internal/svcctx"
)

// StartOCREndpoint handles POST /api/cookbooks/{id}/ocr/start.
type StartOCREndpoint struct{}

var _ api.Endpoint = (*StartOCREndpoint)(nil)

func (e *StartOCREndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/cookbooks/{id}/ocr/start", e.handler
}

func (e *StartOCREndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Start OCR
//	@Description	Start reading the cookbook's index pages in the background
//	@Tags			ocr
//	@Produce		json
//	@Param			id	path		string	true	"Cookbook ID"
//	@Success		202	{object}	cookbooks.StartResponse
//	@Failure		400	{object}	ErrorResponse	"No index pages"
//	@Failure		404	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse	"Already processing"
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/cookbooks/{id}/ocr/start [post]
func (e *StartOCREndpoint) handler(w http.ResponseWriter, r *http.Request) {
	lib, ok := libraryFrom(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if err := lib.StartOCR(id); err != nil {
		svcctx.LoggerFrom(r.Context()).Debug("OCR start refused", "cookbook_id", id, "error", err)
		writeLibraryError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, cookbooks.StartResponse{
		Message:    "OCR processing started",
		CookbookID: id,
		Status:     string(ocrjob.StatusInProgress),
	})
}

func (e *StartOCREndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "start <cookbook-id>",
		Short: "Start OCR for a cookbook",
		Long: `Start OCR for a cookbook.

A job that is already running is reported as such, not as an error.
Use 'pantry api cookbooks status <id> --watch' to follow it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := cookbooks.NewClient(api.NewClient(getServerURL()))
			outcome, err := ocrjob.NewLauncher(client, nil).Start(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if outcome.Kind == ocrjob.Rejected {
				return fmt.Errorf("OCR start rejected: %s", outcome.Reason)
			}
			return api.Output(map[string]string{
				"cookbookId": args[0],
				"outcome":    outcome.Kind.String(),
			})
		},
	}
}
