package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/khanhnv2901/cipher-sentinel/internal/domain/host"
	sharedErrors "github.com/khanhnv2901/cipher-sentinel/internal/shared/errors"
)

var _ host.Registry = (*HostRegistry)(nil)

func facts(protocol string) *host.SecurityFacts {
	return &host.SecurityFacts{Protocol: protocol, Cipher: "AES_128_GCM", KeyExchange: "ECDHE_RSA_2048", ValidTo: 1}
}

func TestHostRegistry_UpsertIgnoresResponsesWithoutFacts(t *testing.T) {
	ctx := context.Background()
	r := NewHostRegistry()

	if err := r.Upsert(ctx, host.Observation{Host: "a.example", TopLevelDocument: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, _ := r.Len(ctx); n != 0 {
		t.Fatalf("expected empty registry, got %d records", n)
	}
}

func TestHostRegistry_UpsertRejectsEmptyHost(t *testing.T) {
	err := NewHostRegistry().Upsert(context.Background(), host.Observation{Facts: facts("TLS 1.3")})
	if !errors.Is(err, sharedErrors.ErrEmptyHost) || !errors.Is(err, sharedErrors.ErrInvalidObservation) {
		t.Fatalf("expected empty host error, got %v", err)
	}
}

func TestHostRegistry_FactsOverwrittenHeadersOnlyFromDocument(t *testing.T) {
	ctx := context.Background()
	r := NewHostRegistry()

	mustUpsert(t, r, host.Observation{
		Host:             "www.example.com",
		TopLevelDocument: true,
		Facts:            facts("TLS 1.2"),
		Headers:          host.HeaderSet{"X-Frame-Options": "DENY"},
	})
	mustUpsert(t, r, host.Observation{
		Host:    "www.example.com",
		Facts:   facts("TLS 1.3"),
		Headers: host.HeaderSet{"Content-Security-Policy": "default-src 'self'"},
	})

	rec, ok, err := r.Get(ctx, "www.example.com")
	if err != nil || !ok {
		t.Fatalf("expected record, got ok=%v err=%v", ok, err)
	}
	if rec.Facts.Protocol != "TLS 1.3" {
		t.Errorf("expected latest facts to win, got %s", rec.Facts.Protocol)
	}
	if !rec.Headers.Has("x-frame-options") || rec.Headers.Has("content-security-policy") {
		t.Errorf("sub-resource headers must not replace document headers: %v", rec.Headers)
	}

	mustUpsert(t, r, host.Observation{
		Host:             "www.example.com",
		TopLevelDocument: true,
		Facts:            facts("TLS 1.3"),
		Headers:          host.HeaderSet{"Content-Security-Policy": "default-src 'self'"},
	})
	rec, _, _ = r.Get(ctx, "www.example.com")
	if rec.Headers.Has("x-frame-options") || !rec.Headers.Has("content-security-policy") {
		t.Errorf("document headers must replace, not merge: %v", rec.Headers)
	}
}

func TestHostRegistry_ClearThenAll(t *testing.T) {
	ctx := context.Background()
	r := NewHostRegistry()
	mustUpsert(t, r, host.Observation{Host: "b.example", Facts: facts("TLS 1.2")})
	mustUpsert(t, r, host.Observation{Host: "a.example", Facts: facts("TLS 1.3")})

	all, err := r.All(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 || all[0].Host != "a.example" || all[1].Host != "b.example" {
		t.Fatalf("unexpected records: %+v", all)
	}

	if err := r.Clear(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	all, _ = r.All(ctx)
	if len(all) != 0 {
		t.Fatalf("expected no records after clear, got %d", len(all))
	}
	if _, ok, _ := r.Get(ctx, "a.example"); ok {
		t.Fatal("cleared host must be unseen")
	}
}

func TestHostRegistry_SnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	r := NewHostRegistry()
	f := facts("TLS 1.2")
	hdr := host.HeaderSet{"X-Frame-Options": "DENY"}
	mustUpsert(t, r, host.Observation{Host: "a.example", TopLevelDocument: true, Facts: f, Headers: hdr})

	f.Protocol = "TLS 1.0"
	hdr["X-Frame-Options"] = "ALLOW"

	rec, _, _ := r.Get(ctx, "a.example")
	if rec.Facts.Protocol != "TLS 1.2" || rec.Headers["X-Frame-Options"] != "DENY" {
		t.Fatalf("registry must own its copies: %+v %v", rec.Facts, rec.Headers)
	}

	rec.Facts.Protocol = "SSL 3.0"
	again, _, _ := r.Get(ctx, "a.example")
	if again.Facts.Protocol != "TLS 1.2" {
		t.Fatal("returned records must not alias registry storage")
	}
}

func TestHostRegistry_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewHostRegistry()
	if err := r.Upsert(ctx, host.Observation{Host: "a", Facts: facts("TLS 1.3")}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := r.All(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestHostRegistry_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	r := NewHostRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			_ = r.Upsert(ctx, host.Observation{Host: "a.example", TopLevelDocument: true, Facts: facts("TLS 1.3")})
		}()
		go func() {
			defer wg.Done()
			_, _ = r.All(ctx)
		}()
		go func() {
			defer wg.Done()
			_ = r.Clear(ctx)
		}()
	}
	wg.Wait()

	if n, _ := r.Len(ctx); n > 1 {
		t.Fatalf("expected at most one host, got %d", n)
	}
}

func mustUpsert(t *testing.T, r *HostRegistry, obs host.Observation) {
	t.Helper()
	if err := r.Upsert(context.Background(), obs); err != nil {
		t.Fatalf("upsert %s: %v", obs.Host, err)
	}
}
