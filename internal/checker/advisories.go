package checker

import (
	"fmt"
	"strings"

	sharedErrors "github.com/khanhnv2901/cipher-sentinel/internal/shared/errors"
)

// AdvisoryEntry associates a cipher-name fragment with public vulnerability identifiers.
type AdvisoryEntry struct {
	Match      string   `json:"match" yaml:"match"`
	Advisories []string `json:"advisories" yaml:"advisories"`
}

// AdvisoryIndex is an ordered lookup table from cipher-name fragments to advisories.
// It is built once and read concurrently without locking.
type AdvisoryIndex struct {
	entries []AdvisoryEntry
}

// defaultAdvisories ships with the engine and is used when no feed is configured.
var defaultAdvisories = []AdvisoryEntry{
	{Match: "RC4", Advisories: []string{"CVE-2013-2566"}},
	{Match: "3DES", Advisories: []string{"CVE-2016-2183"}},
}

// DefaultAdvisoryIndex returns the built-in advisory table.
func DefaultAdvisoryIndex() *AdvisoryIndex {
	idx, _ := NewAdvisoryIndex(defaultAdvisories)
	return idx
}

// NewAdvisoryIndex validates entries and builds an index that preserves their order.
func NewAdvisoryIndex(entries []AdvisoryEntry) (*AdvisoryIndex, error) {
	copied := make([]AdvisoryEntry, 0, len(entries))
	for i, e := range entries {
		match := strings.TrimSpace(e.Match)
		if match == "" {
			return nil, fmt.Errorf("%w: entry %d has an empty match", sharedErrors.ErrAdvisoryFeed, i)
		}
		if len(e.Advisories) == 0 {
			return nil, fmt.Errorf("%w: entry %q lists no advisories", sharedErrors.ErrAdvisoryFeed, match)
		}
		copied = append(copied, AdvisoryEntry{
			Match:      match,
			Advisories: append([]string(nil), e.Advisories...),
		})
	}
	return &AdvisoryIndex{entries: copied}, nil
}

// AdvisoriesFor returns every advisory whose fragment occurs in cipher, in table order.
func (idx *AdvisoryIndex) AdvisoriesFor(cipher string) []string {
	if idx == nil || cipher == "" {
		return nil
	}
	var out []string
	for _, e := range idx.entries {
		if strings.Contains(cipher, e.Match) {
			out = append(out, e.Advisories...)
		}
	}
	return out
}

// Entries returns a copy of the table.
func (idx *AdvisoryIndex) Entries() []AdvisoryEntry {
	if idx == nil {
		return nil
	}
	out := make([]AdvisoryEntry, len(idx.entries))
	for i, e := range idx.entries {
		out[i] = AdvisoryEntry{Match: e.Match, Advisories: append([]string(nil), e.Advisories...)}
	}
	return out
}
