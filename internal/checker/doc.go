// Package checker holds the TLS posture evaluation engine.
//
// Architecture overview:
//
//   - ProtocolOrdinal normalizes protocol labels ("TLS 1.2", "QUIC", "h3")
//     to comparable ordinals; unknown labels map to 0.
//   - AdvisoryIndex maps cipher-name fragments to public advisory IDs. The
//     built-in table can be replaced by a feed loaded at startup.
//   - Evaluator applies a policy.Document to host.SecurityFacts and produces
//     ordered Findings: protocol floor, RSA key size, weak cipher, advisories,
//     certificate expiry.
//   - Aggregate folds findings into a single Severity for filtering.
//   - CheckSecurityHeaders reports the fixed security header list.
//
// Everything here is pure: no network I/O, no shared mutable state. The
// report package renders Evaluations; it never re-derives findings.
package checker
