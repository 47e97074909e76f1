package endpoints

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"

	"github.com/jackzampolin/pantry/internal/api"
	"github.com/jackzampolin/pantry/internal/cookbooks"
)

// ListCookbooksResponse is the response for listing cookbooks.
type ListCookbooksResponse struct {
	Cookbooks []cookbooks.Cookbook `json:"cookbooks"`
}

// ListCookbooksEndpoint handles GET /api/cookbooks.
type ListCookbooksEndpoint struct{}

var _ api.Endpoint = (*ListCookbooksEndpoint)(nil)

func (e *ListCookbooksEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/cookbooks", e.handler
}

func (e *ListCookbooksEndpoint) RequiresInit() bool { return true }

var fold = cases.Fold()

// handler godoc
//
//	@Summary		List cookbooks
//	@Description	List cookbooks, optionally filtered by title or author
//	@Tags			cookbooks
//	@Produce		json
//	@Param			q	query		string	false	"Case-insensitive title or author filter"
//	@Success		200	{object}	ListCookbooksResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/cookbooks [get]
func (e *ListCookbooksEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	lib, ok := libraryFrom(w, r)
	if !ok {
		return
	}

	q := fold.String(strings.TrimSpace(r.URL.Query().Get("q")))
	resp := ListCookbooksResponse{Cookbooks: []cookbooks.Cookbook{}}
	for _, cb := range lib.List() {
		if q != "" &&
			!strings.Contains(fold.String(cb.Title), q) &&
			!strings.Contains(fold.String(cb.Author), q) {
			continue
		}
		resp.Cookbooks = append(resp.Cookbooks, toCookbook(cb))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ListCookbooksEndpoint) Command(getServerURL func() string) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cookbooks",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/cookbooks"
			if query != "" {
				path += "?q=" + url.QueryEscape(query)
			}
			var resp ListCookbooksResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Filter by title or author")
	return cmd
}
