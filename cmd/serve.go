package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kvistgaard/agentlab/internal/api"
)

// Server timeout configuration.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 5 * time.Minute // browser and review runs are slow
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

var flagServeAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagServeAddr, "addr", ":8080", "listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, logger, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	qa, err := a.QAAgent(ctx, true)
	if err != nil {
		return fmt.Errorf("creating qa agent: %w", err)
	}
	qaEphemeral, err := a.QAAgent(ctx, false)
	if err != nil {
		return fmt.Errorf("creating ephemeral qa agent: %w", err)
	}
	executor, err := a.Executor(ctx)
	if err != nil {
		return fmt.Errorf("creating executor: %w", err)
	}
	pipeline, err := a.ReviewPipeline()
	if err != nil {
		return fmt.Errorf("creating review pipeline: %w", err)
	}
	fileAgent, err := a.FileAgent()
	if err != nil {
		return fmt.Errorf("creating file agent: %w", err)
	}
	webAgent, err := a.WebAgent()
	if err != nil {
		return fmt.Errorf("creating web agent: %w", err)
	}

	apiServer, err := api.NewServer(api.ServerConfig{
		Logger:      logger,
		QA:          qa,
		QAEphemeral: qaEphemeral,
		Executor:    executor,
		Reviewer:    pipeline,
		Analyzer:    fileAgent,
		WebRunner:   webAgent,
		Pool:        a.Pool,
		CORSOrigins: a.Config.CORSOrigins,
		TrustProxy:  a.Config.TrustProxy,
		RateBurst:   a.Config.RateBurst,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	srv := &http.Server{
		Addr:              flagServeAddr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	logger.Info("HTTP server ready",
		"addr", flagServeAddr,
		"api", "/api/v1/*",
		"health", "/health, /ready",
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}
