package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/khanhnv2901/cipher-sentinel/internal/domain/policy"
	"github.com/khanhnv2901/cipher-sentinel/internal/shared/constants"
)

// PolicyInstaller receives every successfully reloaded policy document.
type PolicyInstaller interface {
	ReplacePolicy(ctx context.Context, doc *policy.Document) error
}

// PolicyWatcher watches the policy file and hot-reloads it on change.
// A document that fails to load leaves the installed policy untouched.
type PolicyWatcher struct {
	watcher  *fsnotify.Watcher
	source   policy.Source
	target   PolicyInstaller
	logger   *zap.Logger
	debounce time.Duration
	file     string
}

// Option customises a PolicyWatcher.
type Option func(*PolicyWatcher)

// WithLogger sets the logger used for reload outcomes.
func WithLogger(logger *zap.Logger) Option {
	return func(w *PolicyWatcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithDebounce overrides the quiet period after the last write.
func WithDebounce(d time.Duration) Option {
	return func(w *PolicyWatcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewPolicyWatcher watches the directory holding source's file so that
// editors replacing the file through a rename are still noticed.
func NewPolicyWatcher(source policy.Source, target PolicyInstaller, opts ...Option) (*PolicyWatcher, error) {
	file, err := filepath.Abs(source.Location())
	if err != nil {
		return nil, fmt.Errorf("resolve policy path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(file)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", file, err)
	}

	w := &PolicyWatcher{
		watcher:  watcher,
		source:   source,
		target:   target,
		logger:   zap.NewNop(),
		debounce: constants.PolicyReloadDebounce,
		file:     file,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run watches for file changes and reloads the policy. Blocks until ctx is cancelled.
func (w *PolicyWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var (
		mu       sync.Mutex
		debounce *time.Timer
	)
	stop := func() {
		mu.Lock()
		defer mu.Unlock()
		if debounce != nil {
			debounce.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			stop()
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.file {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			mu.Lock()
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(w.debounce, func() { w.reload(ctx) })
			mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("policy watcher error", zap.Error(err))
		}
	}
}

func (w *PolicyWatcher) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	doc, err := w.source.Load(ctx)
	if err != nil {
		w.logger.Error("policy reload failed, keeping current policy",
			zap.String("path", w.source.Location()),
			zap.Error(err))
		return
	}
	if err := w.target.ReplacePolicy(ctx, doc); err != nil {
		w.logger.Error("policy install failed", zap.Error(err))
		return
	}
	w.logger.Info("policy reloaded",
		zap.String("path", w.source.Location()),
		zap.String("min_tls_version", doc.MinTLSVersion()),
		zap.Int("min_rsa_bits", doc.MinRSABits()))
}
