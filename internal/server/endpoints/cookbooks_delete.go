package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pantry/internal/api"
)

// DeleteCookbookEndpoint handles DELETE /api/cookbooks/{id}.
type DeleteCookbookEndpoint struct{}

var _ api.Endpoint = (*DeleteCookbookEndpoint)(nil)

func (e *DeleteCookbookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/cookbooks/{id}", e.handler
}

func (e *DeleteCookbookEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Delete cookbook
//	@Description	Delete a cookbook. A running OCR job for it stops at its next page.
//	@Tags			cookbooks
//	@Param			id	path	string	true	"Cookbook ID"
//	@Success		204
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/cookbooks/{id} [delete]
func (e *DeleteCookbookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	lib, ok := libraryFrom(w, r)
	if !ok {
		return
	}

	if err := lib.Delete(r.PathValue("id")); err != nil {
		writeLibraryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteCookbookEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <cookbook-id>",
		Short: "Delete a cookbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/cookbooks/"+args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted cookbook %s\n", args[0])
			return nil
		},
	}
}
