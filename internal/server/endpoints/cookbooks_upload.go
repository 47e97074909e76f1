package endpoints

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pantry/internal/api"
	"github.com/jackzampolin/pantry/internal/cookbooks"
	"github.com/jackzampolin/pantry/internal/ingest"
	"github.com/jackzampolin/pantry/internal/svcctx"
)

// UploadIndexPagesEndpoint handles POST /api/cookbooks/{id}/index-pages.
type UploadIndexPagesEndpoint struct{}

var _ api.Endpoint = (*UploadIndexPagesEndpoint)(nil)

func (e *UploadIndexPagesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/cookbooks/{id}/index-pages", e.handler
}

func (e *UploadIndexPagesEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Upload index pages
//	@Description	Replace the cookbook's index pages with the uploaded JPEG, PNG or PDF scans
//	@Tags			cookbooks
//	@Accept			mpfd
//	@Produce		json
//	@Param			id		path		string	true	"Cookbook ID"
//	@Param			files	formData	file	true	"Index page scans"
//	@Success		200		{object}	cookbooks.UploadResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/cookbooks/{id}/index-pages [post]
func (e *UploadIndexPagesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	const maxMemory = 64 << 20
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[cookbooks.UploadField]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "At least one file is required")
		return
	}
	if cm := svcctx.ConfigFrom(r.Context()); cm != nil {
		if limit := cm.Get().Upload.MaxFiles; len(headers) > limit {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("too many files: %d (max %d)", len(headers), limit))
			return
		}
	}

	lib, ok := libraryFrom(w, r)
	if !ok {
		return
	}

	files := make([]ingest.File, 0, len(headers))
	for _, fh := range headers {
		src, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to open uploaded file: %v", err))
			return
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read uploaded file: %v", err))
			return
		}

		f, err := ingest.NewFile(fh.Filename, data)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, ingest.ErrUnsupportedType) {
				status = http.StatusBadRequest
			}
			writeError(w, status, err.Error())
			return
		}
		files = append(files, f)
	}

	id := r.PathValue("id")
	count, err := lib.SetPages(id, files)
	if err != nil {
		writeLibraryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cookbooks.UploadResponse{CookbookID: id, PageCount: count})
}

func (e *UploadIndexPagesEndpoint) Command(getServerURL func() string) *cobra.Command {
	var maxFiles int
	cmd := &cobra.Command{
		Use:   "upload <cookbook-id> <file>...",
		Short: "Upload index page scans for a cookbook",
		Long: `Upload index page scans for a cookbook.

Files are sent in numeric suffix order (index-1.jpg, index-2.jpg, ...).
JPEG, PNG and PDF files are accepted; a PDF contributes one page per
document page.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := ingest.Stage(args[1:], ingest.Options{MaxFiles: maxFiles})
			if err != nil {
				return err
			}
			client := cookbooks.NewClient(api.NewClient(getServerURL()))
			resp, err := client.UploadIndexPages(cmd.Context(), args[0], files)
			if err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().IntVar(&maxFiles, "max-files", ingest.DefaultMaxFiles, "Maximum number of files to upload")
	return cmd
}
