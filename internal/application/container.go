package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/khanhnv2901/cipher-sentinel/internal/application/session"
	"github.com/khanhnv2901/cipher-sentinel/internal/checker"
	"github.com/khanhnv2901/cipher-sentinel/internal/domain/host"
	"github.com/khanhnv2901/cipher-sentinel/internal/domain/policy"
	"github.com/khanhnv2901/cipher-sentinel/internal/infrastructure/persistence/json"
	"github.com/khanhnv2901/cipher-sentinel/internal/infrastructure/persistence/memory"
)

// Container holds all application services and repositories
// This is a simple dependency injection container
type Container struct {
	// Repositories
	Registry     host.Registry
	PolicySource policy.Source
	Advisories   *checker.AdvisoryIndex

	// Services
	Session *session.Session
}

// Options configures a Container.
type Options struct {
	PolicyFile     string
	AdvisoriesFile string
	Logger         *zap.Logger
	Session        []session.Option
}

// NewContainer creates a new application service container. The policy is
// not loaded; call LoadPolicy once the caller is ready to report failures.
func NewContainer(ctx context.Context, opts Options) (*Container, error) {
	policySource, err := json.NewPolicyFileSource(opts.PolicyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create policy source: %w", err)
	}

	advisories, err := json.LoadAdvisoryFeed(ctx, opts.AdvisoriesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load advisory feed: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := memory.NewHostRegistry()
	sessionOpts := append([]session.Option{session.WithLogger(logger)}, opts.Session...)

	return &Container{
		Registry:     registry,
		PolicySource: policySource,
		Advisories:   advisories,
		Session:      session.New(registry, advisories, sessionOpts...),
	}, nil
}

// LoadPolicy loads the configured policy into the session.
func (c *Container) LoadPolicy(ctx context.Context) error {
	if err := c.Session.LoadPolicy(ctx, c.PolicySource); err != nil {
		return fmt.Errorf("failed to load policy from %s: %w", c.PolicySource.Location(), err)
	}
	return nil
}
