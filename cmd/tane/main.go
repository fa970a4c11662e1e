// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the tane CLI: it serves the garden,
// runs the background gardener, and manages seeds from the terminal.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zidariuandrei/tane/internal/logging"
	"github.com/zidariuandrei/tane/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is built from the log.* settings before any command runs.
var logger = zerolog.Nop()

// rootCmd is the base command for the tane CLI.
var rootCmd = &cobra.Command{
	Use:   "tane",
	Short: "Plant startup ideas and grow them into research reports",
	Long: `tane keeps a garden of startup ideas ("seeds"). A background gardener
picks up each new seed, researches it with a language model and a web search
tool, and stores a structured market report.

Run "tane serve" for the web garden and the gardener. The other commands
manage seeds directly against the same database.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger = logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
		if f := viper.ConfigFileUsed(); f != "" {
			logger.Debug().Str("file", f).Msg("using config file")
		}
		return nil
	},
}

// versionCmd prints the build version.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the tane version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tane %s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./tane.yaml or ~/.config/tane/tane.yaml)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (default data/tane.sqlite)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error")

	_ = viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func setDefaults() {
	viper.SetDefault("store.path", filepath.Join("data", "tane.sqlite"))
	viper.SetDefault("store.busy_timeout", 5*time.Second)

	viper.SetDefault("nursery.poll_interval", 2*time.Second)
	viper.SetDefault("nursery.max_in_flight", 4)
	viper.SetDefault("nursery.repair_on_start", false)

	viper.SetDefault("search.url", "http://searxng:8080")
	viper.SetDefault("search.timeout", 5*time.Second)
	viper.SetDefault("search.max_results", 5)
	viper.SetDefault("search.user_agent", "tane/"+version)

	viper.SetDefault("research.timeout", 120*time.Second)
	viper.SetDefault("research.user_agent", "tane/"+version)
	viper.SetDefault("research.secrets_dir", ".secrets")
	viper.SetDefault("research.models_file", "")
	viper.SetDefault("research.fallback_models", []string{"glm-4.7-flash", "gemini-3-flash"})
	viper.SetDefault("research.max_turns", 12)
	viper.SetDefault("research.max_tokens", 4096)
	viper.SetDefault("research.max_retries", 5)

	viper.SetDefault("web.addr", ":5173")
	viper.SetDefault("web.cors_origins", []string{})
	viper.SetDefault("web.garden_size", 50)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
}

func initConfig() {
	setDefaults()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("tane")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "tane"))
		}
	}

	viper.SetEnvPrefix("TANE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	// The search container is conventionally configured with SEARXNG_URL.
	_ = viper.BindEnv("search.url", "TANE_SEARCH_URL", "SEARXNG_URL")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintln(os.Stderr, "Reading config:", err)
		}
	}
}

// loadConfig decodes the merged flags, environment, config file and
// defaults.
func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
