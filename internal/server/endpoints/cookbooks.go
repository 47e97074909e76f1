package endpoints

import (
	"errors"
	"net/http"

	"github.com/jackzampolin/pantry/internal/cookbooks"
	"github.com/jackzampolin/pantry/internal/library"
	"github.com/jackzampolin/pantry/internal/svcctx"
)

// toCookbook converts a stored cookbook to its wire form.
func toCookbook(cb library.Cookbook) cookbooks.Cookbook {
	return cookbooks.Cookbook{
		ID:          cb.ID,
		Title:       cb.Title,
		Author:      cb.Author,
		CreatedAt:   cb.CreatedAt,
		PageCount:   len(cb.Pages),
		RecipeCount: len(cb.Recipes),
		OCRStatus:   string(cb.OCRState),
	}
}

// libraryFrom writes a 503 and returns false when no library is attached.
func libraryFrom(w http.ResponseWriter, r *http.Request) (*library.Library, bool) {
	lib := svcctx.LibraryFrom(r.Context())
	if lib == nil {
		writeError(w, http.StatusServiceUnavailable, "cookbook library not initialized")
		return nil, false
	}
	return lib, true
}

// writeLibraryError maps library errors to HTTP statuses.
func writeLibraryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, library.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, library.ErrAlreadyProcessing):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, library.ErrNoPages), errors.Is(err, library.ErrInvalidIngredient):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
