package endpoints

import (
	"github.com/jackzampolin/pantry/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},

		// Cookbook endpoints
		&CreateCookbookEndpoint{},
		&ListCookbooksEndpoint{},
		&GetCookbookEndpoint{},
		&DeleteCookbookEndpoint{},
		&UploadIndexPagesEndpoint{},
		&ConfirmImportEndpoint{},

		// OCR endpoints
		&StartOCREndpoint{},
		&OCRResultsEndpoint{},

		// Ingredient endpoints
		&ListIngredientsEndpoint{},
	}
}

// TopLevelCommands returns endpoints whose commands sit directly under "api".
func TopLevelCommands() []api.Endpoint {
	return []api.Endpoint{
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&ListIngredientsEndpoint{},
	}
}

// CookbookCommands returns endpoints for cookbook operations.
// This groups cookbook-related commands under the "cookbooks" subcommand.
func CookbookCommands() []api.Endpoint {
	return []api.Endpoint{
		&CreateCookbookEndpoint{},
		&ListCookbooksEndpoint{},
		&GetCookbookEndpoint{},
		&DeleteCookbookEndpoint{},
		&UploadIndexPagesEndpoint{},
		&StartOCREndpoint{},
		&OCRResultsEndpoint{},
		&ConfirmImportEndpoint{},
	}
}
