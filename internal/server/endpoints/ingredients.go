package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pantry/internal/api"
)

// ListIngredientsResponse is the response for listing ingredients.
type ListIngredientsResponse struct {
	Ingredients []string `json:"ingredients"`
}

// ListIngredientsEndpoint handles GET /api/ingredients.
type ListIngredientsEndpoint struct{}

var _ api.Endpoint = (*ListIngredientsEndpoint)(nil)

func (e *ListIngredientsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/ingredients", e.handler
}

func (e *ListIngredientsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List ingredients
//	@Description	List normalized ingredient names from confirmed imports
//	@Tags			ingredients
//	@Produce		json
//	@Success		200	{object}	ListIngredientsResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/ingredients [get]
func (e *ListIngredientsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	lib, ok := libraryFrom(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ListIngredientsResponse{Ingredients: lib.Ingredients()})
}

func (e *ListIngredientsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ingredients",
		Short: "List known ingredients",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListIngredientsResponse
			if err := client.Get(cmd.Context(), "/api/ingredients", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
