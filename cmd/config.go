package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultServeAddr = "127.0.0.1:8080"
	defaultRateLimit = 20
	defaultRateBurst = 40
)

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	PolicyFile     string
	AdvisoriesFile string
	ResultsDir     string
	Timezone       string
	Telemetry      bool
	Serve          ServeConfig
}

// ServeConfig consolidates flag-driven settings for the API server.
type ServeConfig struct {
	Addr        string
	AuthToken   string
	RateLimit   int
	RateBurst   int
	CORSOrigins []string
	Watch       bool
}

type configOverrides struct {
	PolicyFile     string
	AdvisoriesFile string
	ResultsDir     string
	Timezone       string
	Telemetry      *bool
	Addr           string
	AuthToken      string
	RateLimit      *int
	RateBurst      *int
	CORSOrigins    []string
	Watch          *bool
}

var cliConfig = newCLIConfig()

func newCLIConfig() *CLIConfig {
	return &CLIConfig{
		Serve: ServeConfig{
			Addr:        defaultServeAddr,
			RateLimit:   defaultRateLimit,
			RateBurst:   defaultRateBurst,
			CORSOrigins: []string{},
		},
	}
}

func loadConfigOverrides() configOverrides {
	overrides := configOverrides{
		PolicyFile:     viper.GetString("policy_file"),
		AdvisoriesFile: viper.GetString("advisories_file"),
		ResultsDir:     viper.GetString("results_dir"),
		Timezone:       viper.GetString("timezone"),
		Addr:           viper.GetString("serve.addr"),
		AuthToken:      viper.GetString("serve.auth_token"),
	}

	if viper.IsSet("telemetry") {
		val := viper.GetBool("telemetry")
		overrides.Telemetry = &val
	}

	if viper.IsSet("serve.rate_limit") {
		val := viper.GetInt("serve.rate_limit")
		overrides.RateLimit = &val
	}

	if viper.IsSet("serve.rate_burst") {
		val := viper.GetInt("serve.rate_burst")
		overrides.RateBurst = &val
	}

	if viper.IsSet("serve.cors_origins") {
		overrides.CORSOrigins = viper.GetStringSlice("serve.cors_origins")
	}

	if viper.IsSet("serve.watch") {
		val := viper.GetBool("serve.watch")
		overrides.Watch = &val
	}

	return overrides
}

// applyConfigDefaults merges config file and environment values into the
// runtime config when the user did not explicitly set the corresponding flag.
func applyConfigDefaults(cmd *cobra.Command) {
	overrides := loadConfigOverrides()
	flags := cmd.Flags()

	applyStringDefault(flags, "policy", overrides.PolicyFile, func(v string) { cliConfig.PolicyFile = v })
	applyStringDefault(flags, "advisories", overrides.AdvisoriesFile, func(v string) { cliConfig.AdvisoriesFile = v })
	applyStringDefault(flags, "results-dir", overrides.ResultsDir, func(v string) { cliConfig.ResultsDir = v })
	applyStringDefault(flags, "timezone", overrides.Timezone, func(v string) { cliConfig.Timezone = v })
	applyStringDefault(flags, "addr", overrides.Addr, func(v string) { cliConfig.Serve.Addr = v })
	applyStringDefault(flags, "auth-token", overrides.AuthToken, func(v string) { cliConfig.Serve.AuthToken = v })

	if overrides.Telemetry != nil {
		applyBoolDefault(flags, "telemetry", *overrides.Telemetry, func(v bool) { cliConfig.Telemetry = v })
	}

	if overrides.RateLimit != nil {
		applyIntDefault(flags, "rate-limit", *overrides.RateLimit, func(v int) { cliConfig.Serve.RateLimit = v })
	}

	if overrides.RateBurst != nil {
		applyIntDefault(flags, "rate-burst", *overrides.RateBurst, func(v int) { cliConfig.Serve.RateBurst = v })
	}

	if overrides.CORSOrigins != nil {
		flag := flags.Lookup("cors-origins")
		if flag == nil || !flag.Changed {
			cliConfig.Serve.CORSOrigins = append([]string(nil), overrides.CORSOrigins...)
		}
	}

	if overrides.Watch != nil {
		applyBoolDefault(flags, "watch", *overrides.Watch, func(v bool) { cliConfig.Serve.Watch = v })
	}
}

func applyStringDefault(flags *pflag.FlagSet, name, value string, setter func(string)) {
	if flags == nil || setter == nil || value == "" {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyBoolDefault(flags *pflag.FlagSet, name string, value bool, setter func(bool)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}
