package cookbooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/jackzampolin/pantry/internal/api"
	"github.com/jackzampolin/pantry/internal/ingest"
	"github.com/jackzampolin/pantry/internal/ocrjob"
	"github.com/jackzampolin/pantry/internal/schema"
)

// UploadField is the multipart field carrying index page files.
const UploadField = "files"

// Client wraps the Resource API operations used by the import flow.
type Client struct {
	api *api.Client
}

// NewClient creates a Client on top of an API client.
func NewClient(c *api.Client) *Client {
	return &Client{api: c}
}

func cookbookPath(id string, suffix string) string {
	return "/api/cookbooks/" + url.PathEscape(id) + suffix
}

// Create creates a cookbook and returns it.
func (c *Client) Create(ctx context.Context, req CreateRequest) (*Cookbook, error) {
	var cb Cookbook
	if err := c.api.Post(ctx, "/api/cookbooks", req, &cb); err != nil {
		return nil, fmt.Errorf("failed to create cookbook: %w", err)
	}
	if cb.ID == "" {
		return nil, fmt.Errorf("failed to create cookbook: %w: response has no id", api.ErrDecode)
	}
	return &cb, nil
}

// Get fetches a cookbook.
func (c *Client) Get(ctx context.Context, id string) (*Cookbook, error) {
	var cb Cookbook
	if err := c.api.Get(ctx, cookbookPath(id, ""), &cb); err != nil {
		return nil, fmt.Errorf("failed to get cookbook %s: %w", id, err)
	}
	return &cb, nil
}

// UploadIndexPages uploads staged files as the cookbook's index pages.
func (c *Client) UploadIndexPages(ctx context.Context, id string, files []ingest.File) (*UploadResponse, error) {
	parts := make([]api.FilePart, 0, len(files))
	for _, f := range files {
		r, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		defer r.Close()
		parts = append(parts, api.FilePart{
			Filename:    f.Name,
			ContentType: f.ContentType,
			Content:     r,
		})
	}

	var resp UploadResponse
	if err := c.api.PostMultipart(ctx, cookbookPath(id, "/index-pages"), UploadField, parts, &resp); err != nil {
		return nil, fmt.Errorf("failed to upload index pages: %w", err)
	}
	return &resp, nil
}

// StartOCR asks the server to start the cookbook's OCR job. A 409 surfaces
// as an api.HTTPError for the caller to interpret.
func (c *Client) StartOCR(ctx context.Context, id string) error {
	return c.api.Post(ctx, cookbookPath(id, "/ocr/start"), nil, nil)
}

// OCRStatus reads the job status. Bodies that do not match the status
// schema are reported as decode errors.
func (c *Client) OCRStatus(ctx context.Context, id string) (*ocrjob.StatusResponse, error) {
	var raw json.RawMessage
	if err := c.api.Get(ctx, cookbookPath(id, "/ocr/results"), &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty status body", api.ErrDecode)
	}
	if err := schema.Validate(schema.OCRStatus, raw); err != nil {
		return nil, fmt.Errorf("%w: %w", api.ErrDecode, err)
	}

	var resp ocrjob.StatusResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", api.ErrDecode, err)
	}
	return &resp, nil
}

// Confirm submits the reviewed rows.
func (c *Client) Confirm(ctx context.Context, id string, req ConfirmRequest) (*ConfirmResponse, error) {
	if req.Recipes == nil {
		req.Recipes = []ConfirmRecipe{}
	}
	var resp ConfirmResponse
	if err := c.api.Post(ctx, cookbookPath(id, "/confirm"), req, &resp); err != nil {
		return nil, fmt.Errorf("failed to confirm import: %w", err)
	}
	return &resp, nil
}

var (
	_ ocrjob.StartAPI  = (*Client)(nil)
	_ ocrjob.StatusAPI = (*Client)(nil)
)
