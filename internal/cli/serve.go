package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"lifedash/internal/config"
	apphttp "lifedash/internal/http"
	"lifedash/internal/log"
	"lifedash/internal/middleware/ratelimit"
	"lifedash/internal/session"
)

const shutdownTimeout = 30 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON API",
		Long: `Run the HTTP API for the habit tracker, the financial month and the dashboard.

Edits are saved in the background after a short debounce. On SIGINT or
SIGTERM pending saves are flushed before the process exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadAndValidateConfig(rootOpts)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}
			logger := SetupLogger(cfg, cmd.OutOrStdout())
			ctx, cancel := NotifyShutdown(cmd.Context(), logger)
			defer cancel()
			return runServe(ctx, cfg, logger)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "override PORT")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	logger.Info("Starting lifedash", "backend", cfg.DataBackend, "port", cfg.Port)

	sessCfg, err := SessionConfig(ctx, cfg, logger)
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	registry := session.NewRegistry(st.Store, sessCfg, logger)
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Sessions:      registry,
		Dashboard:     session.NewDashboard(st.Store, sessCfg, logger),
		Ready:         st.Ready,
		Logger:        logger,
		DefaultUserID: cfg.DefaultUserID,
		RateLimit: ratelimit.Config{
			RequestsPerMinute: cfg.RateLimitPerMinute,
			Burst:             cfg.RateLimitBurst,
		},
	})

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("serve http: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err.Error())
	}
	// CloseAll logs its own failures.
	_ = registry.CloseAll(shutdownCtx)

	logger.Info("Server stopped")
	return runErr
}
