package host

import (
	"strings"
	"time"
)

// SecurityFacts is the TLS connection metadata observed for a host. Values are
// pre-extracted by the capture layer; nothing here is verified.
type SecurityFacts struct {
	Protocol         string `json:"protocol"`
	Cipher           string `json:"cipher"`
	KeyExchange      string `json:"keyExchange"`
	KeyExchangeGroup string `json:"keyExchangeGroup,omitempty"`
	Issuer           string `json:"issuer"`
	ValidFrom        int64  `json:"validFrom"`
	ValidTo          int64  `json:"validTo"`
}

// ValidFromTime returns the certificate start of validity.
func (f SecurityFacts) ValidFromTime() time.Time {
	return time.Unix(f.ValidFrom, 0)
}

// ValidToTime returns the certificate expiry.
func (f SecurityFacts) ValidToTime() time.Time {
	return time.Unix(f.ValidTo, 0)
}

// KeyExchangeLabel renders the key exchange with its group, e.g. "ECDHE_RSA (X25519)".
func (f SecurityFacts) KeyExchangeLabel() string {
	if f.KeyExchangeGroup == "" {
		return f.KeyExchange
	}
	return f.KeyExchange + " (" + f.KeyExchangeGroup + ")"
}

// HeaderSet holds response headers. Names keep the casing they arrived with;
// lookups ignore case.
type HeaderSet map[string]string

// Has reports whether a header with the given name is present, ignoring case.
func (h HeaderSet) Has(name string) bool {
	_, ok := h.Lookup(name)
	return ok
}

// Lookup returns the value of the named header, ignoring case.
func (h HeaderSet) Lookup(name string) (string, bool) {
	if v, ok := h[name]; ok {
		return v, true
	}
	for k, v := range h {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// Clone returns an independent copy of the header set.
func (h HeaderSet) Clone() HeaderSet {
	if h == nil {
		return HeaderSet{}
	}
	out := make(HeaderSet, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// Record is the latest known state of one host until the next navigation.
type Record struct {
	Host    string
	Facts   *SecurityFacts
	Headers HeaderSet
}

// HasFacts reports whether the record carries TLS data and can be evaluated.
func (r Record) HasFacts() bool {
	return r.Facts != nil
}

// Observation is one qualifying network response as handed over by the capture layer.
type Observation struct {
	Host             string         `json:"host"`
	TopLevelDocument bool           `json:"topLevelDocument"`
	Facts            *SecurityFacts `json:"securityDetails,omitempty"`
	Headers          HeaderSet      `json:"headers,omitempty"`
}
