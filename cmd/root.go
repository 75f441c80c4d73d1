package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/resolvebot/resolvebot/internal/output"
	"github.com/resolvebot/resolvebot/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store

	verbose bool
	dryRun  bool

	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "resolvebot",
	Short: "Generate pull requests from GitHub issues",
	Long: `resolvebot automates resolving a GitHub issue: it collects the issue's
full discussion context (including referenced issues and PR review
threads), asks an LLM for an implementation plan, drives a CLI coding
tool to apply the change, retries the test command with automated
fixes, and opens a pull request summarizing the run.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/resolvebot/config.yaml)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "resolvebot %s (commit %s, built %s)\n", buildVersion, buildCommit, buildDate)
		},
	})
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "resolvebot")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("RESOLVEBOT")
	viper.AutomaticEnv()

	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "resolvebot")

	viper.SetDefault("db_path", filepath.Join(defaultConfigDir, "resolvebot.db"))

	viper.SetDefault("github.token", "")
	viper.SetDefault("github.owner", "")
	viper.SetDefault("github.repo", "")

	viper.SetDefault("llm.model", "anthropic/claude-sonnet-4-5")
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.reasoning_effort", "")
	viper.SetDefault("llm.two_stage", false)

	viper.SetDefault("coder.backend", "claude")
	viper.SetDefault("coder.command", "")

	viper.SetDefault("test.command", "")
	viper.SetDefault("test.max_attempts", 3)

	viper.SetDefault("context.redact_pattern", "")

	viper.SetDefault("diff.total_cap", 50000)
	viper.SetDefault("diff.per_file_cap", 10000)

	viper.SetDefault("pr.base", "")
	viper.SetDefault("pr.draft", false)
	viper.SetDefault("pr.body_limit", 30000)

	viper.SetDefault("repopack.include", []string{})
	viper.SetDefault("repopack.exclude", []string{"node_modules/**", "dist/**", "vendor/**"})

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	// The store opens lazily so config/version commands run without a db.
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(rootCmd.Context()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}
