package report

import (
	"testing"
	"time"

	"github.com/khanhnv2901/cipher-sentinel/internal/checker"
	"github.com/khanhnv2901/cipher-sentinel/internal/domain/host"
	"github.com/khanhnv2901/cipher-sentinel/internal/domain/policy"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

const day = int64(24 * 60 * 60)

func testRecords() []host.Record {
	return []host.Record{
		{
			Host: "good.example",
			Facts: &host.SecurityFacts{
				Protocol:         "TLS 1.3",
				Cipher:           "AES_128_GCM",
				KeyExchange:      "ECDHE_secp256r1",
				KeyExchangeGroup: "X25519",
				Issuer:           `Example "Trust", Inc`,
				ValidFrom:        t0.Unix(),
				ValidTo:          t0.Unix() + 365*day,
			},
			Headers: host.HeaderSet{
				"Strict-Transport-Security": "max-age=63072000",
				"Content-Security-Policy":   "default-src 'self'",
				"X-Frame-Options":           "DENY",
				"X-Content-Type-Options":    "nosniff",
			},
		},
		{
			Host: "mid.example",
			Facts: &host.SecurityFacts{
				Protocol:    "TLS 1.2",
				Cipher:      "AES_256_GCM",
				KeyExchange: "ECDHE_RSA_2048",
				Issuer:      "R3",
				ValidFrom:   t0.Unix(),
				ValidTo:     t0.Unix() + 20*day,
			},
		},
		{
			Host: "Weak.Example",
			Facts: &host.SecurityFacts{
				Protocol:    "TLS 1.1",
				Cipher:      "RC4",
				KeyExchange: "ECDHE_RSA_1024_SHA",
				Issuer:      "Old CA",
				ValidFrom:   t0.Unix(),
				ValidTo:     t0.Unix() + day,
			},
			Headers: host.HeaderSet{"x-frame-options": "DENY"},
		},
		{Host: "nofacts.example"},
	}
}

func testEvaluations(t *testing.T) []checker.Evaluation {
	t.Helper()
	doc, err := policy.NewDocument("TLS 1.2", 2048, []string{"RC4"})
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	e, err := checker.NewEvaluator(doc, nil, checker.WithClock(func() time.Time { return t0 }))
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	return e.EvaluateAll(testRecords())
}
