package json

import (
	"context"
	"errors"
	"reflect"
	"testing"

	sharedErrors "github.com/khanhnv2901/cipher-sentinel/internal/shared/errors"
)

func TestLoadAdvisoryFeed_DefaultWhenUnset(t *testing.T) {
	idx, err := LoadAdvisoryFeed(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := idx.AdvisoriesFor("RC4_128"); !reflect.DeepEqual(got, []string{"CVE-2013-2566"}) {
		t.Errorf("expected built-in table, got %v", got)
	}
}

func TestLoadAdvisoryFeed(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name:    "json",
			file:    "feed.json",
			content: `{"advisories":[{"match":"CBC","advisories":["CVE-2011-3389","CVE-2013-0169"]},{"match":"RC4","advisories":["CVE-2015-2808"]}]}`,
		},
		{
			name: "yaml",
			file: "feed.yaml",
			content: `advisories:
  - match: CBC
    advisories: [CVE-2011-3389, CVE-2013-0169]
  - match: RC4
    advisories: [CVE-2015-2808]
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := LoadAdvisoryFeed(context.Background(), writeFile(t, tt.file, tt.content))
			if err != nil {
				t.Fatalf("LoadAdvisoryFeed: %v", err)
			}
			want := []string{"CVE-2011-3389", "CVE-2013-0169", "CVE-2015-2808"}
			if got := idx.AdvisoriesFor("RC4_CBC"); !reflect.DeepEqual(got, want) {
				t.Errorf("AdvisoriesFor = %v, want %v", got, want)
			}
			if got := idx.AdvisoriesFor("3DES_EDE_CBC_SHA"); !reflect.DeepEqual(got, want[:2]) {
				t.Errorf("feed must replace the built-in table, got %v", got)
			}
		})
	}
}

func TestLoadAdvisoryFeed_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "malformed", content: `{"advisories":`},
		{name: "empty match", content: `{"advisories":[{"match":"","advisories":["CVE-1"]}]}`},
		{name: "no identifiers", content: `{"advisories":[{"match":"RC4","advisories":[]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadAdvisoryFeed(context.Background(), writeFile(t, "feed.json", tt.content))
			if !errors.Is(err, sharedErrors.ErrAdvisoryFeed) {
				t.Fatalf("expected ErrAdvisoryFeed, got %v", err)
			}
		})
	}
}
