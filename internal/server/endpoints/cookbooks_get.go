package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pantry/internal/api"
	"github.com/jackzampolin/pantry/internal/cookbooks"
)

// GetCookbookEndpoint handles GET /api/cookbooks/{id}.
type GetCookbookEndpoint struct{}

var _ api.Endpoint = (*GetCookbookEndpoint)(nil)

func (e *GetCookbookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/cookbooks/{id}", e.handler
}

func (e *GetCookbookEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get cookbook
//	@Description	Get a cookbook with its page, recipe and OCR state
//	@Tags			cookbooks
//	@Produce		json
//	@Param			id	path		string	true	"Cookbook ID"
//	@Success		200	{object}	cookbooks.Cookbook
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/cookbooks/{id} [get]
func (e *GetCookbookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	lib, ok := libraryFrom(w, r)
	if !ok {
		return
	}

	cb, err := lib.Get(r.PathValue("id"))
	if err != nil {
		writeLibraryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCookbook(cb))
}

func (e *GetCookbookEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <cookbook-id>",
		Short: "Get a cookbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := cookbooks.NewClient(api.NewClient(getServerURL()))
			cb, err := client.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return api.Output(cb)
		},
	}
}
