package report

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, testEvaluations(t)); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	out := buf.String()

	if !strings.HasSuffix(out, "\r\n") {
		t.Error("records must end with CRLF")
	}
	if strings.Contains(strings.ReplaceAll(out, "\r\n", ""), "\n") {
		t.Error("bare LF found")
	}

	lines := strings.Split(strings.TrimSuffix(out, "\r\n"), "\r\n")
	want := []string{
		"Host,Protocol,Cipher,KeyExchange,Issuer,ValidFrom,ValidTo,ExpiresIn,RSA,Alerts,Headers",
		`good.example,TLS 1.3,AES_128_GCM,ECDHE_secp256r1 (X25519),"Example ""Trust"", Inc",2025-03-01T12:00:00.000Z,2026-03-01T12:00:00.000Z,365,,,"strict-transport-security; content-security-policy; x-frame-options; x-content-type-options"`,
		`mid.example,TLS 1.2,AES_256_GCM,ECDHE_RSA_2048,R3,2025-03-01T12:00:00.000Z,2025-03-21T12:00:00.000Z,20,2048,[WARNING] expires in 20 days,"strict-transport-security (missing); content-security-policy (missing); x-frame-options (missing); x-content-type-options (missing)"`,
		`Weak.Example,TLS 1.1,RC4,ECDHE_RSA_1024_SHA,Old CA,2025-03-01T12:00:00.000Z,2025-03-02T12:00:00.000Z,1,1024,"[CRITICAL] protocol TLS 1.1 < TLS 1.2; [WARNING] RSA 1024 bits < 2048; [INFO] cipher RC4 is weak; [CRITICAL] cipher RC4 has advisory CVE-2013-2566; [CRITICAL] expires in 1 days","strict-transport-security (missing); content-security-policy (missing); x-frame-options; x-content-type-options (missing)"`,
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), out)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d:\n got %s\nwant %s", i, lines[i], want[i])
		}
	}
}

func TestWriteCSV_AlertsMatchRows(t *testing.T) {
	evals := testEvaluations(t)
	view := BuildView(evals, DefaultFilter())
	if len(view.Rows) != len(evals) {
		t.Fatalf("default filter should show every host, got %d rows", len(view.Rows))
	}
	for i, eval := range evals {
		if got := exportRecord(eval)[9]; got != view.Rows[i].Alerts {
			t.Errorf("%s: export alerts %q differ from row alerts %q", eval.Host, got, view.Rows[i].Alerts)
		}
	}
}

func TestWriteCSV_EmptyRegistry(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if buf.String() != strings.Join(Columns, ",")+"\r\n" {
		t.Fatalf("expected header only, got %q", buf.String())
	}
}

func TestCSVField(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"", ""},
		{"a,b", `"a,b"`},
		{"a; b", `"a; b"`},
		{`say "hi"`, `"say ""hi"""`},
		{"line\nbreak", "\"line\nbreak\""},
		{"cr\rhere", "\"cr\rhere\""},
	}
	for _, tt := range tests {
		if got := csvField(tt.in); got != tt.want {
			t.Errorf("csvField(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExportFilename(t *testing.T) {
	if ExportFilename != "ssl-checker-report.csv" {
		t.Fatalf("unexpected export filename %q", ExportFilename)
	}
}
