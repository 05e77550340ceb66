package host

import "context"

// Registry is the mutable per-host store fed by observed responses and
// emptied on navigation.
type Registry interface {
	// Upsert records an observation. Observations without facts are ignored;
	// headers are only replaced by top-level document responses.
	Upsert(ctx context.Context, obs Observation) error

	// Clear removes every record
	Clear(ctx context.Context) error

	// All returns a snapshot of every record
	All(ctx context.Context) ([]Record, error)

	// Get returns the record for a single host
	Get(ctx context.Context, name string) (Record, bool, error)

	// Len returns the number of records
	Len(ctx context.Context) (int, error)
}
