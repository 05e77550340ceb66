package checker

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/khanhnv2901/cipher-sentinel/internal/domain/host"
	"github.com/khanhnv2901/cipher-sentinel/internal/domain/policy"
	"github.com/khanhnv2901/cipher-sentinel/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/cipher-sentinel/internal/shared/errors"
)

// Rule identifiers attached to findings.
const (
	RuleProtocolFloor     = "protocol-floor"
	RuleRSAKeySize        = "rsa-key-size"
	RuleWeakCipher        = "weak-cipher"
	RuleCipherAdvisory    = "cipher-advisory"
	RuleCertificateExpiry = "certificate-expiry"
)

// Finding is a single policy deficiency detected for a host.
type Finding struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Rule     string   `json:"rule"`
	Advisory string   `json:"advisory,omitempty"`
}

// Alert renders the finding as "[SEVERITY] message".
func (f Finding) Alert() string {
	return "[" + f.Severity.Label() + "] " + f.Message
}

// Evaluation is the derived posture of one host for a single evaluation pass.
type Evaluation struct {
	Host         string             `json:"host"`
	Facts        host.SecurityFacts `json:"facts"`
	Headers      host.HeaderSet     `json:"headers"`
	Findings     []Finding          `json:"findings"`
	Overall      Severity           `json:"overallSeverity"`
	HeaderChecks []HeaderCheck      `json:"headerChecks"`
	ExpiresDays  int                `json:"expiresDays"`
	RSABits      *int               `json:"rsaBits,omitempty"`
}

// Evaluator applies a policy and an advisory index to observed host facts.
type Evaluator struct {
	policy     *policy.Document
	advisories *AdvisoryIndex
	now        func() time.Time
}

// EvaluatorOption customises an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithClock overrides the time source used by the expiry countdown.
func WithClock(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEvaluator builds an evaluator. A nil policy yields ErrPolicyNotReady;
// a nil index falls back to the built-in advisory table.
func NewEvaluator(doc *policy.Document, advisories *AdvisoryIndex, opts ...EvaluatorOption) (*Evaluator, error) {
	if doc == nil {
		return nil, sharedErrors.ErrPolicyNotReady
	}
	if advisories == nil {
		advisories = DefaultAdvisoryIndex()
	}
	e := &Evaluator{policy: doc, advisories: advisories, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Policy returns the policy the evaluator applies.
func (e *Evaluator) Policy() *policy.Document {
	return e.policy
}

// Evaluate runs every rule against facts and returns findings in rule order.
func (e *Evaluator) Evaluate(facts host.SecurityFacts) []Finding {
	return e.evaluateAt(facts, e.now())
}

func (e *Evaluator) evaluateAt(facts host.SecurityFacts, now time.Time) []Finding {
	findings := []Finding{}
	findings = append(findings, e.checkProtocolFloor(facts)...)
	findings = append(findings, e.checkRSAKeySize(facts)...)
	findings = append(findings, e.checkWeakCipher(facts)...)
	findings = append(findings, e.checkAdvisories(facts)...)
	findings = append(findings, checkExpiry(facts, now)...)
	return findings
}

// EvaluateRecord derives the full evaluation for a record. Records without
// facts are not evaluated and report ok=false. The clock is read once so the
// expiry finding and ExpiresDays always agree.
func (e *Evaluator) EvaluateRecord(rec host.Record) (Evaluation, bool) {
	if !rec.HasFacts() {
		return Evaluation{}, false
	}
	facts := *rec.Facts
	now := e.now()
	findings := e.evaluateAt(facts, now)

	eval := Evaluation{
		Host:         rec.Host,
		Facts:        facts,
		Headers:      rec.Headers.Clone(),
		Findings:     findings,
		Overall:      Aggregate(findings),
		HeaderChecks: CheckSecurityHeaders(rec.Headers),
		ExpiresDays:  ExpiresInDays(facts.ValidTo, now),
	}
	if bits, ok := ParseRSABits(facts.KeyExchange); ok {
		eval.RSABits = &bits
	}
	return eval, true
}

// EvaluateAll evaluates every record carrying facts, preserving input order.
func (e *Evaluator) EvaluateAll(records []host.Record) []Evaluation {
	out := make([]Evaluation, 0, len(records))
	for _, rec := range records {
		if eval, ok := e.EvaluateRecord(rec); ok {
			out = append(out, eval)
		}
	}
	return out
}

// checkProtocolFloor only applies to TLS labels; SSL and QUIC/HTTP-3 labels are exempt.
func (e *Evaluator) checkProtocolFloor(facts host.SecurityFacts) []Finding {
	if !strings.HasPrefix(facts.Protocol, "TLS") {
		return nil
	}
	if ProtocolOrdinal(facts.Protocol) >= ProtocolOrdinal(e.policy.MinTLSVersion()) {
		return nil
	}
	return []Finding{{
		Message:  fmt.Sprintf("protocol %s < %s", facts.Protocol, e.policy.MinTLSVersion()),
		Severity: SeverityCritical,
		Rule:     RuleProtocolFloor,
	}}
}

func (e *Evaluator) checkRSAKeySize(facts host.SecurityFacts) []Finding {
	bits, ok := ParseRSABits(facts.KeyExchange)
	if !ok || bits >= e.policy.MinRSABits() {
		return nil
	}
	return []Finding{{
		Message:  fmt.Sprintf("RSA %d bits < %d", bits, e.policy.MinRSABits()),
		Severity: SeverityWarning,
		Rule:     RuleRSAKeySize,
	}}
}

func (e *Evaluator) checkWeakCipher(facts host.SecurityFacts) []Finding {
	if !e.policy.IsWeakCipher(facts.Cipher) {
		return nil
	}
	return []Finding{{
		Message:  fmt.Sprintf("cipher %s is weak", facts.Cipher),
		Severity: SeverityInfo,
		Rule:     RuleWeakCipher,
	}}
}

func (e *Evaluator) checkAdvisories(facts host.SecurityFacts) []Finding {
	ids := e.advisories.AdvisoriesFor(facts.Cipher)
	if len(ids) == 0 {
		return nil
	}
	findings := make([]Finding, 0, len(ids))
	for _, id := range ids {
		findings = append(findings, Finding{
			Message:  fmt.Sprintf("cipher %s has advisory %s", facts.Cipher, id),
			Severity: SeverityCritical,
			Rule:     RuleCipherAdvisory,
			Advisory: id,
		})
	}
	return findings
}

func checkExpiry(facts host.SecurityFacts, now time.Time) []Finding {
	days := ExpiresInDays(facts.ValidTo, now)
	var sev Severity
	switch {
	case days <= constants.CriticalExpiryDays:
		sev = SeverityCritical
	case days <= constants.WarningExpiryDays:
		sev = SeverityWarning
	default:
		return nil
	}
	return []Finding{{
		Message:  fmt.Sprintf("expires in %d days", days),
		Severity: sev,
		Rule:     RuleCertificateExpiry,
	}}
}

// ExpiresInDays returns the whole days between now and validTo (unix seconds),
// rounded half up. Expired certificates yield zero or negative values.
func ExpiresInDays(validTo int64, now time.Time) int {
	diff := validTo*1000 - now.UnixMilli()
	return int(math.Floor(float64(diff)/constants.DayMillis + 0.5))
}

// ParseRSABits extracts the RSA key size from a key-exchange descriptor such
// as "ECDHE_RSA_2048_SHA": the third underscore-delimited token, read as a
// leading integer. Descriptors without "RSA", without a third token, or whose
// third token has no leading digits report ok=false.
func ParseRSABits(keyExchange string) (int, bool) {
	if !strings.Contains(keyExchange, "RSA") {
		return 0, false
	}
	parts := strings.Split(keyExchange, "_")
	if len(parts) < 3 {
		return 0, false
	}
	return leadingInt(parts[2])
}

// leadingInt parses an optional sign followed by decimal digits, ignoring
// leading whitespace and any trailing characters.
func leadingInt(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t\n\r")
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n, digits := 0, 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		if n > (math.MaxInt32-int(r-'0'))/10 {
			return 0, false
		}
		n = n*10 + int(r-'0')
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}
