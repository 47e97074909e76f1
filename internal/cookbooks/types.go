// Package cookbooks is the client for the cookbook Resource API.
package cookbooks

import "time"

// CreateRequest is the body of POST /api/cookbooks.
type CreateRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

// Cookbook is the representation returned by the Resource API.
type Cookbook struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	CreatedAt   time.Time `json:"createdAt"`
	PageCount   int       `json:"pageCount,omitempty"`
	RecipeCount int       `json:"recipeCount,omitempty"`
	OCRStatus   string    `json:"ocrStatus,omitempty"`
}

// UploadResponse is returned after index pages are uploaded.
type UploadResponse struct {
	CookbookID string `json:"cookbookId"`
	PageCount  int    `json:"pageCount"`
}

// StartResponse is returned when an OCR job is accepted.
type StartResponse struct {
	Message    string `json:"message"`
	CookbookID string `json:"cookbookId"`
	Status     string `json:"status,omitempty"`
}

// ConfirmRecipe is one reviewed row sent with a confirmation.
type ConfirmRecipe struct {
	RecipeName *string `json:"recipeName"`
	PageNumber *int    `json:"pageNumber"`
	Ingredient *string `json:"ingredient"`
	Keep       bool    `json:"keep"`
}

// ConfirmRequest is the body of POST /api/cookbooks/{id}/confirm.
type ConfirmRequest struct {
	Recipes []ConfirmRecipe `json:"recipes"`
}

// ConfirmResponse reports how many recipes were saved.
type ConfirmResponse struct {
	RecipeCount int `json:"recipeCount"`
}
