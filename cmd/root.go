package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	consts "github.com/khanhnv2901/cipher-sentinel/internal/shared/constants"
)

var cfgFile string
var logger *zap.SugaredLogger

// newLogger builds the process logger; tests swap it for a no-op logger.
var newLogger = func() (*zap.Logger, error) {
	return zap.NewProduction()
}

var rootCmd = &cobra.Command{
	Use:          "sentinel",
	Short:        "Evaluate captured TLS connection metadata against a security policy",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// init config
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			viper.AddConfigPath("$HOME")
			viper.SetConfigName(".cipher-sentinel")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("SENTINEL")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		if err := viper.ReadInConfig(); err != nil && cfgFile != "" {
			return fmt.Errorf("failed to read config %s: %w", cfgFile, err)
		}
		applyConfigDefaults(cmd)

		// init logger
		l, err := newLogger()
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		logger = l.Sugar()

		resultsDir := cliConfig.ResultsDir
		if resultsDir == "" {
			if resultsDir, err = getResultsDir(); err != nil {
				return err
			}
		}
		if err := os.MkdirAll(resultsDir, consts.DefaultDirPerm); err != nil {
			return fmt.Errorf("failed to create results directory: %s", err.Error())
		}
		// Make final resultsDir absolute (for clarity in logs)
		if abs, err := filepath.Abs(resultsDir); err == nil {
			resultsDir = abs
		}

		policyFile := cliConfig.PolicyFile
		if policyFile == "" {
			if policyFile, err = getDefaultPolicyPath(); err != nil {
				return err
			}
		}

		loc, err := loadLocation(cliConfig.Timezone)
		if err != nil {
			return err
		}

		appCtx := &AppContext{
			Logger:         logger,
			ResultsDir:     resultsDir,
			PolicyFile:     policyFile,
			AdvisoriesFile: cliConfig.AdvisoriesFile,
			Location:       loc,
			Telemetry:      cliConfig.Telemetry,
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cmd.SetContext(withAppContext(ctx, appCtx))

		logger.Debugw("configuration loaded",
			"config_file", viper.ConfigFileUsed(),
			"policy_file", policyFile,
			"results_dir", resultsDir,
			"timezone", loc.String())
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colorError(err.Error()))
		os.Exit(1)
	}
}

// loadLocation resolves the display zone; empty means the local zone.
func loadLocation(name string) (*time.Location, error) {
	if strings.TrimSpace(name) == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cipher-sentinel.yaml)")
	rootCmd.PersistentFlags().StringVarP(&cliConfig.PolicyFile, "policy", "p", cliConfig.PolicyFile, "policy document (.json, .yaml or .yml)")
	rootCmd.PersistentFlags().StringVar(&cliConfig.AdvisoriesFile, "advisories", cliConfig.AdvisoriesFile, "cipher advisory feed (default: built-in table)")
	rootCmd.PersistentFlags().StringVar(&cliConfig.ResultsDir, "results-dir", cliConfig.ResultsDir, "directory for exported reports")
	rootCmd.PersistentFlags().BoolVar(&cliConfig.Telemetry, "telemetry", cliConfig.Telemetry, "append a run summary to telemetry.jsonl in the results directory")
	rootCmd.PersistentFlags().StringVar(&cliConfig.Timezone, "timezone", cliConfig.Timezone, "IANA zone for displayed timestamps (default: local)")

	// add subcommands
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(policyCmd)
	rootCmd.AddCommand(versionCmd)
}
