package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khanhnv2901/cipher-sentinel/internal/api"
	"github.com/khanhnv2901/cipher-sentinel/internal/application"
	"github.com/khanhnv2901/cipher-sentinel/internal/infrastructure/watch"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the posture engine as a REST API service",
	Long: `Accept captured network events over HTTP and serve the evaluated host
table, alert feed, CSV export and printable reports.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		cfg := cliConfig.Serve
		shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")

		logger := appCtx.Logger.Desugar()
		defer func() {
			_ = logger.Sync()
		}()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		container, err := newContainer(ctx, appCtx)
		if err != nil {
			return err
		}
		if err := container.LoadPolicy(ctx); err != nil {
			// Stay up without a policy; /ready reports 503 until one loads.
			logger.Warn("policy not loaded", zap.String("path", appCtx.PolicyFile), zap.Error(err))
		}

		if cfg.Watch {
			if err := startPolicyWatcher(ctx, container, logger); err != nil {
				return err
			}
		}

		server := api.NewServer(api.Config{
			Session:      container.Session,
			PolicySource: container.PolicySource.Location(),
			Location:     appCtx.Location,
			AuthToken:    cfg.AuthToken,
			Logger:       logger,
			CORSOrigins:  cfg.CORSOrigins,
			RateLimit:    cfg.RateLimit,
			RateBurst:    cfg.RateBurst,
		})

		httpServer := &http.Server{
			Addr:              cfg.Addr,
			Handler:           server,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		}

		// Channel to listen for errors from the server
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("%s API server listening on %s (policy: %s)\n", colorInfo("→"), cfg.Addr, appCtx.PolicyFile)
			fmt.Printf("%s Press Ctrl+C to gracefully shutdown\n", colorInfo("→"))
			serverErrors <- httpServer.ListenAndServe()
		}()

		// Channel to listen for interrupt signals
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		// Block until we receive a signal or an error
		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case sig := <-shutdown:
			fmt.Printf("\n%s Received signal %v, initiating graceful shutdown...\n", colorInfo("→"), sig)
			cancel()

			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancelShutdown()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				// Force close if graceful shutdown fails
				if closeErr := httpServer.Close(); closeErr != nil {
					return fmt.Errorf("failed to gracefully shutdown server: %w (close error: %v)", err, closeErr)
				}
				return fmt.Errorf("failed to gracefully shutdown server: %w", err)
			}

			fmt.Printf("%s Server shutdown complete\n", colorInfo("✓"))
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&cliConfig.Serve.Addr, "addr", cliConfig.Serve.Addr, "Address for the API server")
	serveCmd.Flags().StringVar(&cliConfig.Serve.AuthToken, "auth-token", cliConfig.Serve.AuthToken, "Optional shared secret for API requests")
	serveCmd.Flags().Duration("shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")
	serveCmd.Flags().StringSliceVar(&cliConfig.Serve.CORSOrigins, "cors-origins", cliConfig.Serve.CORSOrigins, "Allowed CORS origins (empty = allow all)")
	serveCmd.Flags().IntVar(&cliConfig.Serve.RateLimit, "rate-limit", cliConfig.Serve.RateLimit, "Rate limit per IP (requests/second, 0 = disabled)")
	serveCmd.Flags().IntVar(&cliConfig.Serve.RateBurst, "rate-burst", cliConfig.Serve.RateBurst, "Rate limit burst size")
	serveCmd.Flags().BoolVar(&cliConfig.Serve.Watch, "watch", cliConfig.Serve.Watch, "Reload the policy when its file changes")
	rootCmd.AddCommand(serveCmd)
}

// startPolicyWatcher reloads the policy into the session whenever its file
// changes. The watcher stops with ctx.
func startPolicyWatcher(ctx context.Context, container *application.Container, logger *zap.Logger) error {
	watcher, err := watch.NewPolicyWatcher(container.PolicySource, container.Session, watch.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to watch policy: %w", err)
	}
	go func() {
		if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("policy watcher stopped", zap.Error(err))
		}
	}()
	logger.Info("watching policy for changes", zap.String("path", container.PolicySource.Location()))
	return nil
}
