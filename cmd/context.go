package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khanhnv2901/cipher-sentinel/internal/application"
)

// AppContext carries the resolved runtime settings to every command.
type AppContext struct {
	Logger         *zap.SugaredLogger
	ResultsDir     string
	PolicyFile     string
	AdvisoriesFile string
	Location       *time.Location
	Telemetry      bool
}

type appContextKey struct{}

func withAppContext(ctx context.Context, appCtx *AppContext) context.Context {
	return context.WithValue(ctx, appContextKey{}, appCtx)
}

// getAppContext returns the context installed by the root command. Commands
// run without the root pre-run (unit tests) get a no-op logger and local zone.
func getAppContext(cmd *cobra.Command) *AppContext {
	if ctx := cmd.Context(); ctx != nil {
		if appCtx, ok := ctx.Value(appContextKey{}).(*AppContext); ok {
			return appCtx
		}
	}
	return &AppContext{
		Logger:         zap.NewNop().Sugar(),
		PolicyFile:     cliConfig.PolicyFile,
		AdvisoriesFile: cliConfig.AdvisoriesFile,
		ResultsDir:     cliConfig.ResultsDir,
		Location:       time.Local,
		Telemetry:      cliConfig.Telemetry,
	}
}

// newContainer wires the application services for appCtx.
func newContainer(ctx context.Context, appCtx *AppContext) (*application.Container, error) {
	container, err := application.NewContainer(ctx, application.Options{
		PolicyFile:     appCtx.PolicyFile,
		AdvisoriesFile: appCtx.AdvisoriesFile,
		Logger:         appCtx.Logger.Desugar(),
	})
	if err != nil {
		return nil, &PolicyLoadError{Path: appCtx.PolicyFile, Err: err}
	}
	return container, nil
}

// newReadyContainer wires the services and loads the policy.
func newReadyContainer(ctx context.Context, appCtx *AppContext) (*application.Container, error) {
	container, err := newContainer(ctx, appCtx)
	if err != nil {
		return nil, err
	}
	if err := container.LoadPolicy(ctx); err != nil {
		return nil, &PolicyLoadError{Path: appCtx.PolicyFile, Err: err}
	}
	return container, nil
}
