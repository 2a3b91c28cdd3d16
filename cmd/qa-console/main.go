package main

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go-indexing-qa-console/internal/backend"
	"go-indexing-qa-console/internal/config"
	httpapi "go-indexing-qa-console/internal/http"
	"go-indexing-qa-console/internal/logging"
)

var version = "dev"

// app carries what every subcommand needs. It is filled by the root PersistentPreRunE.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	client *backend.Client
	output string
}

func main() {
	a := &app{}
	root := newRootCmd(a)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	var backendURL, logLevel string
	root := &cobra.Command{
		Use:           "qa-console",
		Short:         "Admin console for the indexing content QA backend",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.cfg = config.FromEnv()
			if backendURL != "" {
				a.cfg.BackendURL = backendURL
			}
			if logLevel != "" {
				a.cfg.LogLevel = logLevel
			}
			logger, err := logging.New(a.cfg.LogLevel, a.cfg.LogFormat)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			a.logger = logger
			a.client = backend.NewClient(a.cfg.BackendURL, a.cfg.BackendTimeout)
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&backendURL, "backend-url", "", "QA backend base URL (overrides APP_BACKEND_URL)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides APP_LOG_LEVEL)")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "table", "output format: table, json or yaml")

	root.AddCommand(
		newServeCmd(a),
		newHealthCmd(a),
		newRecordsCmd(a),
		newDeadLettersCmd(a),
		newIssuesCmd(a),
		newSettingsCmd(a),
		newSimulateCmd(a),
		newAlertsCmd(a),
	)
	return root
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv, err := httpapi.NewServer(a.cfg, a.logger)
			if err != nil {
				return fmt.Errorf("initialize server: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("starting console",
					zap.String("version", version),
					zap.String("addr", a.cfg.ListenAddr),
					zap.String("backend", a.cfg.BackendURL),
				)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, nethttp.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the QA backend answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			details, err := a.client.GetHealth(cmd.Context())
			if err != nil {
				return fmt.Errorf("backend %s is offline: %w", a.client.Endpoint(), err)
			}
			if a.output != "table" {
				return a.render(details)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backend %s is online\n", a.client.Endpoint())
			return nil
		},
	}
}
