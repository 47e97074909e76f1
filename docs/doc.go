// Package docs provides generated OpenAPI documentation.
//
// Pantry Resource API
//
//	@title			Pantry Resource API
//	@version		1.0
//	@description	Cookbook index import: cookbooks, index page uploads, OCR jobs and import confirmation.
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/pantry
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http
package docs

//go:generate swag init -g ../cmd/pantry/serve.go -o ./swagger --parseDependency --parseInternal
