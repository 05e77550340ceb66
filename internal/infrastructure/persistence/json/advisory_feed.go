package json

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/khanhnv2901/cipher-sentinel/internal/checker"
	sharedErrors "github.com/khanhnv2901/cipher-sentinel/internal/shared/errors"
	"github.com/khanhnv2901/cipher-sentinel/internal/shared/security"
)

// advisoryFeedDTO is the on-disk shape of an advisory feed:
//
//	{"advisories": [{"match": "RC4", "advisories": ["CVE-2013-2566"]}]}
type advisoryFeedDTO struct {
	Advisories []checker.AdvisoryEntry `json:"advisories" yaml:"advisories"`
}

// LoadAdvisoryFeed reads an advisory feed file and builds an index from it.
// An empty path returns the built-in index.
func LoadAdvisoryFeed(ctx context.Context, path string) (*checker.AdvisoryIndex, error) {
	if strings.TrimSpace(path) == "" {
		return checker.DefaultAdvisoryIndex(), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !security.IsReadablePath(path) {
		return nil, fmt.Errorf("%w: invalid file path: %s", sharedErrors.ErrAdvisoryFeed, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sharedErrors.ErrAdvisoryFeed, err)
	}

	var dto advisoryFeedDTO
	if err := decodeDocument(path, data, &dto); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", sharedErrors.ErrAdvisoryFeed, path, err)
	}
	return checker.NewAdvisoryIndex(dto.Advisories)
}
