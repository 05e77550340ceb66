package json

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/khanhnv2901/cipher-sentinel/internal/domain/policy"
	sharedErrors "github.com/khanhnv2901/cipher-sentinel/internal/shared/errors"
	"github.com/khanhnv2901/cipher-sentinel/internal/shared/security"
)

// PolicyDTO is the on-disk shape of a policy document.
type PolicyDTO struct {
	MinTLSVersion string   `json:"minTlsVersion" yaml:"minTlsVersion"`
	MinRSABits    int      `json:"minRsaBits" yaml:"minRsaBits"`
	WeakCiphers   []string `json:"weakCiphers" yaml:"weakCiphers"`
}

// ToPolicyDTO converts a document back to its serializable form.
func ToPolicyDTO(doc *policy.Document) PolicyDTO {
	weak := doc.WeakCiphers()
	if weak == nil {
		weak = []string{}
	}
	return PolicyDTO{
		MinTLSVersion: doc.MinTLSVersion(),
		MinRSABits:    doc.MinRSABits(),
		WeakCiphers:   weak,
	}
}

// PolicyFileSource implements policy.Source for a JSON or YAML file.
type PolicyFileSource struct {
	filePath string
}

// NewPolicyFileSource creates a source for the policy file at path.
func NewPolicyFileSource(path string) (*PolicyFileSource, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: policy file path cannot be empty", sharedErrors.ErrPolicyLoad)
	}
	if !security.IsReadablePath(path) {
		return nil, fmt.Errorf("%w: invalid file path: %s", sharedErrors.ErrPolicyLoad, path)
	}
	return &PolicyFileSource{filePath: path}, nil
}

// Location returns the policy file path.
func (s *PolicyFileSource) Location() string {
	return s.filePath
}

// Load reads, decodes and validates the policy file.
func (s *PolicyFileSource) Load(ctx context.Context) (*policy.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sharedErrors.ErrPolicyLoad, err)
	}

	dto, err := decodePolicy(s.filePath, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", sharedErrors.ErrPolicyLoad, s.filePath, err)
	}

	doc, err := policy.NewDocument(dto.MinTLSVersion, dto.MinRSABits, dto.WeakCiphers)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", sharedErrors.ErrPolicyLoad, s.filePath, err)
	}
	return doc, nil
}

func decodePolicy(path string, data []byte) (PolicyDTO, error) {
	var dto PolicyDTO
	if err := decodeDocument(path, data, &dto); err != nil {
		return PolicyDTO{}, err
	}
	return dto, nil
}

// decodeDocument picks the decoder from the file extension; anything that is
// not .yaml or .yml is treated as JSON.
func decodeDocument(path string, data []byte, v any) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("decode yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("decode json: %w", err)
		}
	}
	return nil
}
