package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const testPolicy = `{"minTlsVersion":"TLS 1.2","minRsaBits":2048,"weakCiphers":["RC4_128"]}`

// good.example carries no findings; weak.example violates the protocol floor
// and uses an advisory cipher.
const testCapture = `{"host":"good.example","topLevelDocument":true,"securityDetails":{"protocol":"TLS 1.3","cipher":"AES_128_GCM","keyExchange":"","issuer":"Good CA","validFrom":1700000000,"validTo":4102444800},"headers":{"Strict-Transport-Security":"max-age=63072000"}}
{"method":"Network.requestWillBeSent","params":{}}
{"host":"weak.example","securityDetails":{"protocol":"TLS 1.0","cipher":"RC4_128","keyExchange":"RSA","issuer":"Old CA","validFrom":1700000000,"validTo":4102444800}}
`

type cliEnv struct {
	dir        string
	policyPath string
	inputPath  string
	resultsDir string
}

// setupCLI isolates the global command tree from the host environment and
// from previous tests.
func setupCLI(t *testing.T) *cliEnv {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv(dataDirEnvVar, filepath.Join(dir, "data"))

	originalLogger := newLogger
	originalNoColor := color.NoColor
	newLogger = func() (*zap.Logger, error) { return zap.NewNop(), nil }
	color.NoColor = true
	viper.Reset()
	resetCommandFlags(rootCmd)

	t.Cleanup(func() {
		newLogger = originalLogger
		color.NoColor = originalNoColor
		viper.Reset()
		resetCommandFlags(rootCmd)
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	env := &cliEnv{
		dir:        dir,
		policyPath: filepath.Join(dir, "policy.json"),
		inputPath:  filepath.Join(dir, "capture.jsonl"),
		resultsDir: filepath.Join(dir, "results"),
	}
	writeTestFile(t, env.policyPath, testPolicy)
	writeTestFile(t, env.inputPath, testCapture)
	return env
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// resetCommandFlags restores every flag to its default so values set by one
// test do not leak into the next.
func resetCommandFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetCommandFlags(sub)
	}
}

// runCLI executes the root command with args and returns combined output.
func runCLI(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	if stdin != nil {
		rootCmd.SetIn(stdin)
	}
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func (e *cliEnv) args(extra ...string) []string {
	base := []string{"--policy", e.policyPath, "--results-dir", e.resultsDir, "--timezone", "UTC"}
	return append(extra, base...)
}

func lineContaining(out, needle string) string {
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, needle) {
			return line
		}
	}
	return ""
}
