package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pantry/internal/api"
	"github.com/jackzampolin/pantry/internal/config"
	"github.com/jackzampolin/pantry/internal/home"
	"github.com/jackzampolin/pantry/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "pantry",
	Short: "Import cookbook indexes with OCR",
	Long: `Pantry imports the recipe index of a printed cookbook.

Scan the index pages, upload them, and review what OCR found:
  - Create a cookbook and upload JPEG, PNG or PDF index scans
  - Track the OCR job until it settles
  - Keep, skip or correct each extracted recipe/ingredient pair
  - Confirm the import into the cookbook library`,
	Version:      version.GitRelease,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.pantry/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "pantry home directory (default: ~/.pantry)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().BoolVar(
		&verbose, "verbose", false, "enable debug logging",
	)

	// Set output format and logging before any command runs
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if _, err := api.ParseOutputFormat(outputFormat); err != nil {
			return err
		}
		api.SetOutputFormat(outputFormat)
		slog.SetDefault(newLogger())
		return nil
	}

	rootCmd.AddCommand(versionCmd)
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// getHome resolves the --home flag.
func getHome() (*home.Dir, error) {
	return home.New(homeDir)
}

// loadConfig loads --config, falling back to the config file in --home.
func loadConfig() (*config.Manager, error) {
	path := cfgFile
	if path == "" && homeDir != "" {
		h, err := getHome()
		if err != nil {
			return nil, err
		}
		if h.ConfigExists() {
			path = h.ConfigPath()
		}
	}
	return config.NewManager(path)
}
