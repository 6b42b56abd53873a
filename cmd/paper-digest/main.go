// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-digest CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-digest/internal/observability"
	"github.com/pdiddy/paper-digest/internal/secrets"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Loaded by the root command before any subcommand runs.
var (
	cfg    types.DigestConfig
	logger zerolog.Logger
)

// configKeys lists every flat configuration key so each can be set from
// the environment (PAPER_DIGEST_<KEY>) without appearing in the file.
var configKeys = []string{
	"tag", "category_list", "keyword_list",
	"use_llm_for_filtering", "use_llm_for_translation",
	"max_results_per_category", "page_size", "request_interval", "max_retries",
	"lark_batch_size", "webhook_url", "template_id", "template_version_name",
	"model", "base_url", "api_key", "paper_to_hunt_file", "llm_max_retries",
	"webhook_max_retries",
	"paper_file", "schedule_time",
	"http_timeout", "user_agent", "log_level", "log_format",
}

var rootCmd = &cobra.Command{
	Use:   "paper-digest",
	Short: "Daily arXiv digest delivered to a Lark webhook",
	Long: `paper-digest fetches the newest arXiv papers of the configured categories,
narrows them down with keyword expressions and an optional LLM judgement,
remembers what it already reported in a JSON store and posts the new papers
to a Lark webhook as template cards.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("decoding configuration: %w", err)
		}
		cfg.ApplyDefaults()
		logger = observability.NewLogger(cfg.LoggingConfig, os.Stderr)

		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir, logger)
		if err != nil {
			return err
		}
		secrets.Apply(&cfg, s)
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug().Strs("keys", keys).Msg("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./paper-digest.yaml or ~/.config/paper-digest/paper-digest.yaml)")
	pf.String("secrets-dir", secrets.DefaultDir, "directory of secret files (llm-api-key, lark-webhook-url)")
	pf.String("log-level", "", "log level: trace, debug, info, warn, error")
	pf.String("log-format", "", "log format: json or console")
	pf.String("paper-file", "", "JSON store of reported papers")

	viper.BindPFlag("log_level", pf.Lookup("log-level"))
	viper.BindPFlag("log_format", pf.Lookup("log-format"))
	viper.BindPFlag("paper_file", pf.Lookup("paper-file"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-digest")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-digest"))
		}
	}

	viper.SetEnvPrefix("PAPER_DIGEST")
	viper.AutomaticEnv()
	for _, key := range configKeys {
		viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintf(os.Stderr, "error: reading config %s: %v\n", cfgFile, err)
		os.Exit(1)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
