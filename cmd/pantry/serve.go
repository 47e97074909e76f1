package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/pantry/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the development Resource API server",
	Long: `Start an in-memory cookbook Resource API for local imports.

OCR is simulated: each uploaded index page returns scripted results from
the fixtures file (devserver.fixtures) or the built-in set, after
devserver.page_delay. Changing page_delay in the config file applies to
the next page without a restart.

The server provides:
  - /health - Basic server health check
  - /ready  - Readiness check
  - /api/cookbooks/... and /api/ingredients

Examples:
  pantry serve                    # Start on the configured port (8080)
  pantry serve --port 3000        # Start on custom port
  pantry serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := newLogger()

		h, err := getHome()
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		mgr, err := loadConfig()
		if err != nil {
			return err
		}
		mgr.OnError(func(err error) {
			logger.Warn("config reload rejected", "error", err)
		})
		mgr.WatchConfig()

		cfg := mgr.Get().DevServer
		if cmd.Flags().Changed("host") {
			cfg.Host = serveHost
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = servePort
		}
		if f := mgr.File(); f != "" {
			logger.Info("using config file", "path", f)
		}

		srv, err := server.New(server.Config{
			Host:          cfg.Host,
			Port:          cfg.Port,
			PageDelay:     cfg.PageDelay,
			Fixtures:      cfg.Fixtures,
			ConfigManager: mgr,
			Home:          h,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to (default: devserver.host)")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on (default: devserver.port)")

	rootCmd.AddCommand(serveCmd)
}
