package checker

import "github.com/khanhnv2901/cipher-sentinel/internal/domain/host"

// checkedHeaders is the fixed list of response headers reported for every host.
var checkedHeaders = []string{
	"strict-transport-security",
	"content-security-policy",
	"x-frame-options",
	"x-content-type-options",
}

// HeaderCheck records whether one of the checked security headers was present.
type HeaderCheck struct {
	Name    string `json:"name"`
	Present bool   `json:"present"`
}

// Label renders the check as "name" or "name (missing)".
func (c HeaderCheck) Label() string {
	if c.Present {
		return c.Name
	}
	return c.Name + " (missing)"
}

// CheckedHeaders returns the header names inspected by CheckSecurityHeaders.
func CheckedHeaders() []string {
	return append([]string(nil), checkedHeaders...)
}

// CheckSecurityHeaders reports presence of each checked header, in list order.
// A host without a captured document response has an empty set and every
// header is reported missing.
func CheckSecurityHeaders(headers host.HeaderSet) []HeaderCheck {
	checks := make([]HeaderCheck, 0, len(checkedHeaders))
	for _, name := range checkedHeaders {
		checks = append(checks, HeaderCheck{Name: name, Present: headers.Has(name)})
	}
	return checks
}
