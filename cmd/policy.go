package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/khanhnv2901/cipher-sentinel/internal/checker"
	jsonstore "github.com/khanhnv2901/cipher-sentinel/internal/infrastructure/persistence/json"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect the security policy",
}

var policyValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate the policy document",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		container, err := newReadyContainer(ctx, appCtx)
		if err != nil {
			return err
		}
		doc, err := container.Session.Policy()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s Policy %s is valid\n", colorSuccess("✓"), container.PolicySource.Location())
		fmt.Fprintf(out, "  Minimum TLS version: %s\n", doc.MinTLSVersion())
		fmt.Fprintf(out, "  Minimum RSA bits:    %d\n", doc.MinRSABits())
		fmt.Fprintf(out, "  Weak ciphers:        %d\n", len(doc.WeakCiphers()))
		fmt.Fprintf(out, "  Advisories:          %d\n", len(container.Advisories.Entries()))
		fmt.Fprintf(out, "  Checked headers:     %s\n", strings.Join(checker.CheckedHeaders(), ", "))
		if !checker.IsKnownProtocol(doc.MinTLSVersion()) {
			fmt.Fprintf(out, "%s Minimum TLS version %q is not a recognised protocol; the protocol floor will never fire\n",
				colorWarn("!"), doc.MinTLSVersion())
		}
		return nil
	},
}

type policyShowOutput struct {
	Source         string                  `json:"source" yaml:"source"`
	Policy         jsonstore.PolicyDTO     `json:"policy" yaml:"policy"`
	Advisories     []checker.AdvisoryEntry `json:"advisories" yaml:"advisories"`
	CheckedHeaders []string                `json:"checkedHeaders" yaml:"checkedHeaders"`
}

var policyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective policy and advisory table",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		format, _ := cmd.Flags().GetString("format")
		format = strings.ToLower(strings.TrimSpace(format))
		if format != "json" && format != "yaml" {
			return &UnsupportedFormatError{Format: format, Allowed: []string{"json", "yaml"}}
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		container, err := newReadyContainer(ctx, appCtx)
		if err != nil {
			return err
		}
		doc, err := container.Session.Policy()
		if err != nil {
			return err
		}

		payload := policyShowOutput{
			Source:         container.PolicySource.Location(),
			Policy:         jsonstore.ToPolicyDTO(doc),
			Advisories:     container.Advisories.Entries(),
			CheckedHeaders: checker.CheckedHeaders(),
		}

		out := cmd.OutOrStdout()
		if format == "yaml" {
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(payload); err != nil {
				return fmt.Errorf("failed to encode policy: %w", err)
			}
			return enc.Close()
		}

		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode policy: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	},
}

func init() {
	policyShowCmd.Flags().StringP("format", "f", "json", "output format (json, yaml)")
	policyCmd.AddCommand(policyValidateCmd)
	policyCmd.AddCommand(policyShowCmd)
}
