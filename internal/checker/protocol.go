package checker

// protocolOrdinals maps the protocol labels reported by the capture layer to
// comparable ordinals. QUIC and HTTP/3 ride on TLS 1.3.
var protocolOrdinals = map[string]float64{
	"SSL 3.0": 3.0,
	"TLS 1.0": 1.0,
	"TLS 1.1": 1.1,
	"TLS 1.2": 1.2,
	"TLS 1.3": 1.3,
	"QUIC":    1.3,
	"HTTP/3":  1.3,
	"h3":      1.3,
}

// ProtocolOrdinal returns the comparable ordinal for a protocol label.
// Unknown labels map to 0, which is below every known minimum.
func ProtocolOrdinal(label string) float64 {
	return protocolOrdinals[label]
}

// IsKnownProtocol reports whether label is one of the recognised protocol labels.
func IsKnownProtocol(label string) bool {
	_, ok := protocolOrdinals[label]
	return ok
}
