package policy

import (
	"fmt"
	"strings"

	sharedErrors "github.com/khanhnv2901/cipher-sentinel/internal/shared/errors"
)

// Document is the parsed security policy. It is immutable once constructed
// and is shared read-only by every evaluation pass of a session.
type Document struct {
	minTLSVersion string
	minRSABits    int
	weakCiphers   []string
	weakSet       map[string]struct{}
}

// NewDocument validates the raw policy fields and builds a Document.
func NewDocument(minTLSVersion string, minRSABits int, weakCiphers []string) (*Document, error) {
	minTLSVersion = strings.TrimSpace(minTLSVersion)
	if minTLSVersion == "" {
		return nil, fmt.Errorf("%w: minTlsVersion is required", sharedErrors.ErrInvalidPolicy)
	}
	if minRSABits < 0 {
		return nil, fmt.Errorf("%w: minRsaBits must not be negative (got %d)", sharedErrors.ErrInvalidPolicy, minRSABits)
	}

	ciphers := make([]string, 0, len(weakCiphers))
	set := make(map[string]struct{}, len(weakCiphers))
	for _, c := range weakCiphers {
		if c == "" {
			continue
		}
		if _, dup := set[c]; dup {
			continue
		}
		set[c] = struct{}{}
		ciphers = append(ciphers, c)
	}

	return &Document{
		minTLSVersion: minTLSVersion,
		minRSABits:    minRSABits,
		weakCiphers:   ciphers,
		weakSet:       set,
	}, nil
}

// MinTLSVersion returns the protocol label every TLS connection must meet.
func (d *Document) MinTLSVersion() string {
	return d.minTLSVersion
}

// MinRSABits returns the smallest acceptable RSA key size.
func (d *Document) MinRSABits() int {
	return d.minRSABits
}

// WeakCiphers returns a copy of the weak cipher list in document order.
func (d *Document) WeakCiphers() []string {
	return append([]string(nil), d.weakCiphers...)
}

// IsWeakCipher reports whether cipher is listed verbatim in the weak cipher list.
func (d *Document) IsWeakCipher(cipher string) bool {
	_, ok := d.weakSet[cipher]
	return ok
}
