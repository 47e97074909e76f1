package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/pantry/internal/api"
	"github.com/jackzampolin/pantry/internal/config"
	"github.com/jackzampolin/pantry/internal/server/endpoints"
)

var serverURL string

var cookbooksCmd = &cobra.Command{
	Use:     "cookbooks",
	Aliases: []string{"cb"},
	Short:   "Cookbook and OCR job commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
// Without --server it falls back to server_url from config.
func getServerURL() string {
	if serverURL != "" {
		return serverURL
	}
	if mgr, err := loadConfig(); err == nil {
		return mgr.Get().ServerURL
	}
	return config.DefaultConfig().ServerURL
}

func init() {
	registry := api.NewRegistry()
	for _, ep := range endpoints.TopLevelCommands() {
		registry.Register(ep)
	}
	apiCmd := registry.BuildCommands(getServerURL)

	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "", "Resource API URL (default: server_url from config)",
	)

	// Cookbooks as subcommand group
	for _, ep := range endpoints.CookbookCommands() {
		cookbooksCmd.AddCommand(ep.Command(getServerURL))
	}

	apiCmd.AddCommand(cookbooksCmd)
	rootCmd.AddCommand(apiCmd)
}
