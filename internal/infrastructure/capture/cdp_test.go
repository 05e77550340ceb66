package capture

import (
	"errors"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"

	sharedErrors "github.com/khanhnv2901/cipher-sentinel/internal/shared/errors"
)

func timeSinceEpoch(sec int64) *cdp.TimeSinceEpoch {
	t := cdp.TimeSinceEpoch(time.Unix(sec, 0))
	return &t
}

func TestFromResponseReceived(t *testing.T) {
	ev := &network.EventResponseReceived{
		Type: network.ResourceTypeDocument,
		Response: &network.Response{
			URL: "https://www.example.com:8443/index.html",
			Headers: network.Headers{
				"Strict-Transport-Security": "max-age=31536000",
				"Content-Length":            float64(512),
			},
			SecurityDetails: &network.SecurityDetails{
				Protocol:         "TLS 1.3",
				KeyExchange:      "",
				KeyExchangeGroup: "X25519",
				Cipher:           "AES_128_GCM",
				Issuer:           "Example CA",
				ValidFrom:        timeSinceEpoch(1_700_000_000),
				ValidTo:          timeSinceEpoch(1_730_000_000),
			},
		},
	}

	obs, err := FromResponseReceived(ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obs.Host != "www.example.com:8443" {
		t.Errorf("host = %q, want port kept", obs.Host)
	}
	if !obs.TopLevelDocument {
		t.Error("document responses are top level")
	}
	if obs.Facts == nil {
		t.Fatal("expected facts")
	}
	if obs.Facts.Protocol != "TLS 1.3" || obs.Facts.KeyExchangeGroup != "X25519" || obs.Facts.Issuer != "Example CA" {
		t.Errorf("unexpected facts: %+v", obs.Facts)
	}
	if obs.Facts.ValidFrom != 1_700_000_000 || obs.Facts.ValidTo != 1_730_000_000 {
		t.Errorf("unexpected validity: %d..%d", obs.Facts.ValidFrom, obs.Facts.ValidTo)
	}
	if v, _ := obs.Headers.Lookup("content-length"); v != "512" {
		t.Errorf("numeric header stringified as %q", v)
	}
}

func TestFromResponseReceived_SubresourceWithoutTLS(t *testing.T) {
	obs, err := FromResponseReceived(&network.EventResponseReceived{
		Type:     network.ResourceTypeScript,
		Response: &network.Response{URL: "http://cdn.example.com/app.js"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obs.TopLevelDocument || obs.Facts != nil {
		t.Errorf("expected plain sub-resource observation, got %+v", obs)
	}
}

func TestFromResponseReceived_HostKey(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{url: "https://a.example/", want: "a.example"},
		{url: "https://a.example:443/", want: "a.example:443"},
		{url: "https://a.example:8443/login", want: "a.example:8443"},
		{url: "https://[::1]:8443/", want: "[::1]:8443"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			obs, err := FromResponseReceived(&network.EventResponseReceived{
				Response: &network.Response{
					URL:             tt.url,
					SecurityDetails: &network.SecurityDetails{Protocol: "TLS 1.3"},
				},
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if obs.Host != tt.want {
				t.Errorf("host = %q, want %q", obs.Host, tt.want)
			}
		})
	}
}

func TestFromResponseReceived_NonNetworkSchemes(t *testing.T) {
	for _, raw := range []string{"data:text/plain,hi", "blob:https://a.example/uuid", "about:blank", "::not a url"} {
		t.Run(raw, func(t *testing.T) {
			obs, err := FromResponseReceived(&network.EventResponseReceived{
				Type:     network.ResourceTypeImage,
				Response: &network.Response{URL: raw},
			})
			if err != nil {
				t.Fatalf("responses without security details must not fail: %v", err)
			}
			if obs.Facts != nil || obs.Host != "" {
				t.Errorf("expected empty observation, got %+v", obs)
			}
		})
	}
}

func TestFromResponseReceived_Invalid(t *testing.T) {
	tests := []struct {
		name string
		ev   *network.EventResponseReceived
	}{
		{name: "nil event"},
		{name: "nil response", ev: &network.EventResponseReceived{}},
		{name: "no host", ev: &network.EventResponseReceived{Response: &network.Response{
			URL:             "data:text/plain,hi",
			SecurityDetails: &network.SecurityDetails{Protocol: "TLS 1.3"},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromResponseReceived(tt.ev); !errors.Is(err, sharedErrors.ErrInvalidObservation) {
				t.Fatalf("expected ErrInvalidObservation, got %v", err)
			}
		})
	}
}

func TestDecodeEvent(t *testing.T) {
	raw := []byte(`{
		"requestId": "1000.1",
		"type": "Document",
		"response": {
			"url": "https://api.example.com/",
			"status": 200,
			"headers": {"X-Frame-Options": "DENY"},
			"securityDetails": {
				"protocol": "TLS 1.2",
				"keyExchange": "ECDHE_RSA",
				"keyExchangeGroup": "P-256",
				"cipher": "AES_256_GCM",
				"issuer": "R3",
				"validFrom": 1700000000,
				"validTo": 1710000000
			}
		}
	}`)

	obs, err := DecodeEvent(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obs.Host != "api.example.com" || !obs.TopLevelDocument {
		t.Errorf("unexpected observation: %+v", obs)
	}
	if obs.Facts == nil || obs.Facts.KeyExchange != "ECDHE_RSA" || obs.Facts.ValidTo != 1_710_000_000 {
		t.Errorf("unexpected facts: %+v", obs.Facts)
	}
	if !obs.Headers.Has("x-frame-options") {
		t.Errorf("headers lost: %v", obs.Headers)
	}
}

func TestDecodeEvent_Malformed(t *testing.T) {
	if _, err := DecodeEvent([]byte(`{"response":`)); !errors.Is(err, sharedErrors.ErrInvalidObservation) {
		t.Fatalf("expected ErrInvalidObservation, got %v", err)
	}
}
