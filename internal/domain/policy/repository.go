package policy

import "context"

// Source loads a policy document from wherever it is bundled.
type Source interface {
	// Load reads and validates the policy document
	Load(ctx context.Context) (*Document, error)

	// Location describes where the document comes from (file path, URL)
	Location() string
}
