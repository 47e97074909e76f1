package endpoints

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pantry/internal/api"
	"github.com/jackzampolin/pantry/internal/cookbooks"
	"github.com/jackzampolin/pantry/internal/svcctx"
)

// CreateCookbookEndpoint handles POST /api/cookbooks.
type CreateCookbookEndpoint struct{}

var _ api.Endpoint = (*CreateCookbookEndpoint)(nil)

func (e *CreateCookbookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/cookbooks", e.handler
}

func (e *CreateCookbookEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Create cookbook
//	@Description	Create an empty cookbook to import an index into
//	@Tags			cookbooks
//	@Accept			json
//	@Produce		json
//	@Param			request	body		cookbooks.CreateRequest	true	"Cookbook details"
//	@Success		201		{object}	cookbooks.Cookbook
//	@Failure		400		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/cookbooks [post]
func (e *CreateCookbookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req cookbooks.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Author = strings.TrimSpace(req.Author)
	if req.Title == "" || req.Author == "" {
		writeError(w, http.StatusBadRequest, "title and author are required")
		return
	}

	lib, ok := libraryFrom(w, r)
	if !ok {
		return
	}

	cb := lib.Create(req.Title, req.Author)
	svcctx.LoggerFrom(r.Context()).Debug("created cookbook via API", "cookbook_id", cb.ID)
	writeJSON(w, http.StatusCreated, toCookbook(cb))
}

func (e *CreateCookbookEndpoint) Command(getServerURL func() string) *cobra.Command {
	var title, author string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a cookbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := cookbooks.NewClient(api.NewClient(getServerURL()))
			cb, err := client.Create(cmd.Context(), cookbooks.CreateRequest{Title: title, Author: author})
			if err != nil {
				return err
			}
			return api.Output(cb)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Cookbook title")
	cmd.Flags().StringVar(&author, "author", "", "Cookbook author")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("author")
	return cmd
}
