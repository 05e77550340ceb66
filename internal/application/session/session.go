package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/cipher-sentinel/internal/checker"
	"github.com/khanhnv2901/cipher-sentinel/internal/domain/host"
	"github.com/khanhnv2901/cipher-sentinel/internal/domain/policy"
	sharedErrors "github.com/khanhnv2901/cipher-sentinel/internal/shared/errors"
)

// Snapshot is one evaluation pass over every host in the registry.
type Snapshot struct {
	Policy      *policy.Document
	Evaluations []checker.Evaluation
	GeneratedAt time.Time
}

// Session ties the host registry to the installed policy. Observations are
// accepted before a policy is installed; evaluations are not.
type Session struct {
	registry   host.Registry
	advisories *checker.AdvisoryIndex
	evaluator  atomic.Pointer[checker.Evaluator]
	now        func() time.Time
	logger     *zap.Logger

	// replaceMu orders policy installs with the registry clear they imply.
	replaceMu sync.Mutex
}

// Option customises a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source for expiry countdowns and snapshot stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a session over registry. A nil advisory index selects the built-in table.
func New(registry host.Registry, advisories *checker.AdvisoryIndex, opts ...Option) *Session {
	if advisories == nil {
		advisories = checker.DefaultAdvisoryIndex()
	}
	s := &Session{
		registry:   registry,
		advisories: advisories,
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadPolicy loads a document from src and installs it.
func (s *Session) LoadPolicy(ctx context.Context, src policy.Source) error {
	doc, err := src.Load(ctx)
	if err != nil {
		return err
	}
	return s.ReplacePolicy(ctx, doc)
}

// ReplacePolicy installs doc. Replacing an already installed policy starts a
// new evaluation session and clears the registry; the first install keeps
// whatever was observed while the session was not ready.
func (s *Session) ReplacePolicy(ctx context.Context, doc *policy.Document) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", sharedErrors.ErrInvalidPolicy)
	}
	eval, err := checker.NewEvaluator(doc, s.advisories, checker.WithClock(s.now))
	if err != nil {
		return err
	}

	s.replaceMu.Lock()
	defer s.replaceMu.Unlock()

	previous := s.evaluator.Swap(eval)
	if previous != nil {
		if err := s.registry.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear registry: %w", err)
		}
	}

	s.logger.Info("policy installed",
		zap.String("min_tls_version", doc.MinTLSVersion()),
		zap.Int("min_rsa_bits", doc.MinRSABits()),
		zap.Int("weak_ciphers", len(doc.WeakCiphers())),
		zap.Bool("replaced", previous != nil))
	if !checker.IsKnownProtocol(doc.MinTLSVersion()) {
		s.logger.Warn("minimum TLS version is not a recognised protocol, the protocol floor will never fire",
			zap.String("min_tls_version", doc.MinTLSVersion()))
	}
	return nil
}

// Ready reports whether a policy is installed.
func (s *Session) Ready() bool {
	return s.evaluator.Load() != nil
}

// Policy returns the installed policy.
func (s *Session) Policy() (*policy.Document, error) {
	eval := s.evaluator.Load()
	if eval == nil {
		return nil, sharedErrors.ErrPolicyNotReady
	}
	return eval.Policy(), nil
}

// Advisories returns the advisory index in use.
func (s *Session) Advisories() *checker.AdvisoryIndex {
	return s.advisories
}

// Observe records one network response.
func (s *Session) Observe(ctx context.Context, obs host.Observation) error {
	if obs.Facts == nil {
		return nil
	}
	if err := s.registry.Upsert(ctx, obs); err != nil {
		return fmt.Errorf("failed to record %s: %w", obs.Host, err)
	}
	s.logger.Debug("host observed",
		zap.String("host", obs.Host),
		zap.String("protocol", obs.Facts.Protocol),
		zap.Bool("top_level", obs.TopLevelDocument))
	return nil
}

// Navigate forgets every host seen so far.
func (s *Session) Navigate(ctx context.Context) error {
	if err := s.registry.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear registry: %w", err)
	}
	s.logger.Debug("navigation, registry cleared")
	return nil
}

// Snapshot evaluates every known host against the installed policy.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	eval := s.evaluator.Load()
	if eval == nil {
		return Snapshot{}, sharedErrors.ErrPolicyNotReady
	}
	records, err := s.registry.All(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to list hosts: %w", err)
	}
	return Snapshot{
		Policy:      eval.Policy(),
		Evaluations: eval.EvaluateAll(records),
		GeneratedAt: s.now(),
	}, nil
}

// Evaluate returns the evaluation of a single host. found is false for hosts
// not seen since the last navigation.
func (s *Session) Evaluate(ctx context.Context, name string) (result checker.Evaluation, found bool, err error) {
	eval := s.evaluator.Load()
	if eval == nil {
		return checker.Evaluation{}, false, sharedErrors.ErrPolicyNotReady
	}
	rec, ok, err := s.registry.Get(ctx, name)
	if err != nil {
		return checker.Evaluation{}, false, fmt.Errorf("failed to get host %s: %w", name, err)
	}
	if !ok {
		return checker.Evaluation{}, false, nil
	}
	result, found = eval.EvaluateRecord(rec)
	return result, found, nil
}

// HostCount returns the number of hosts currently tracked.
func (s *Session) HostCount(ctx context.Context) (int, error) {
	return s.registry.Len(ctx)
}
