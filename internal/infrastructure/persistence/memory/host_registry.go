package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/khanhnv2901/cipher-sentinel/internal/domain/host"
	sharedErrors "github.com/khanhnv2901/cipher-sentinel/internal/shared/errors"
)

// entry is the stored form of a record; facts and headers are owned copies.
type entry struct {
	facts   *host.SecurityFacts
	headers host.HeaderSet
}

// HostRegistry implements host.Registry in memory. A single RWMutex serializes
// writers (Upsert, Clear) against readers (All, Get, Len).
type HostRegistry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewHostRegistry creates an empty registry.
func NewHostRegistry() *HostRegistry {
	return &HostRegistry{entries: make(map[string]*entry)}
}

// Upsert records an observation for its host.
func (r *HostRegistry) Upsert(ctx context.Context, obs host.Observation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if obs.Facts == nil {
		return nil
	}
	name := strings.TrimSpace(obs.Host)
	if name == "" {
		return fmt.Errorf("%w: %w", sharedErrors.ErrInvalidObservation, sharedErrors.ErrEmptyHost)
	}

	facts := *obs.Facts

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		e = &entry{headers: host.HeaderSet{}}
		r.entries[name] = e
	}
	e.facts = &facts
	if obs.TopLevelDocument {
		e.headers = obs.Headers.Clone()
	}
	return nil
}

// Clear removes every record.
func (r *HostRegistry) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.entries = make(map[string]*entry)
	r.mu.Unlock()
	return nil
}

// All returns a snapshot of every record sorted by host name.
func (r *HostRegistry) All(ctx context.Context) ([]host.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	records := make([]host.Record, 0, len(r.entries))
	for name, e := range r.entries {
		records = append(records, e.record(name))
	}
	r.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool { return records[i].Host < records[j].Host })
	return records, nil
}

// Get returns the record for name.
func (r *HostRegistry) Get(ctx context.Context, name string) (host.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return host.Record{}, false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return host.Record{}, false, nil
	}
	return e.record(name), true, nil
}

// Len returns the number of records.
func (r *HostRegistry) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries), nil
}

func (e *entry) record(name string) host.Record {
	rec := host.Record{Host: name, Headers: e.headers.Clone()}
	if e.facts != nil {
		facts := *e.facts
		rec.Facts = &facts
	}
	return rec
}
