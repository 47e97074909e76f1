package endpoints

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pantry/internal/api"
	"github.com/jackzampolin/pantry/internal/cookbooks"
	"github.com/jackzampolin/pantry/internal/schema"
	"github.com/jackzampolin/pantry/internal/wizard"
)

// ConfirmImportEndpoint handles POST /api/cookbooks/{id}/confirm.
type ConfirmImportEndpoint struct{}

var _ api.Endpoint = (*ConfirmImportEndpoint)(nil)

func (e *ConfirmImportEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/cookbooks/{id}/confirm", e.handler
}

func (e *ConfirmImportEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Confirm import
//	@Description	Save the kept rows as recipes grouped by name and page, then clear the OCR job
//	@Tags			cookbooks
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Cookbook ID"
//	@Param			request	body		cookbooks.ConfirmRequest	true	"Reviewed rows"
//	@Success		200		{object}	cookbooks.ConfirmResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/cookbooks/{id}/confirm [post]
func (e *ConfirmImportEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	const maxBody = 8 << 20
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read body: %v", err))
		return
	}
	if err := schema.Validate(schema.ConfirmImport, body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req cookbooks.ConfirmRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	lib, ok := libraryFrom(w, r)
	if !ok {
		return
	}

	count, err := lib.Confirm(r.PathValue("id"), req.Recipes)
	if err != nil {
		writeLibraryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cookbooks.ConfirmResponse{RecipeCount: count})
}

func (e *ConfirmImportEndpoint) Command(getServerURL func() string) *cobra.Command {
	var discardBelow float64
	cmd := &cobra.Command{
		Use:   "confirm <cookbook-id>",
		Short: "Confirm the OCR results of a settled job",
		Long: `Confirm the OCR results of a settled job.

Every row is kept unless its confidence is below --discard-below.
Use the interactive import for row-by-row review.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := cookbooks.NewClient(api.NewClient(getServerURL()))

			status, err := client.OCRStatus(ctx, args[0])
			if err != nil {
				return err
			}
			if !status.Status.Succeeded() {
				return fmt.Errorf("cookbook %s has no results to confirm (status %s)", args[0], status.Status)
			}

			items := wizard.NewReviewableItems(status.Results)
			for i := range items {
				if c, ok := items[i].ConfidenceValue(); ok && c < discardBelow {
					items[i].Keep = false
				}
			}

			resp, err := client.Confirm(ctx, args[0], cookbooks.ConfirmRequest{Recipes: wizard.Project(items)})
			if err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().Float64Var(&discardBelow, "discard-below", 0, "Skip rows with confidence below this value")
	return cmd
}
