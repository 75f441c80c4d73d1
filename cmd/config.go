package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "resolvebot"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage resolvebot configuration.

Running bare 'resolvebot config' is the same as 'resolvebot config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# resolvebot configuration
# See: resolvebot config show (for effective values and sources)

# SQLite database path for run history (default: ~/.config/resolvebot/resolvebot.db)
# db_path: {{ .DBPath }}

# GitHub
github:
  # Personal access token; falls back to $GITHUB_TOKEN when empty
  token: ""

  # Repository to operate on; inferred from the origin remote when empty
  owner: "{{ .GitHubOwner }}"
  repo: "{{ .GitHubRepo }}"

# Planning model
llm:
  # Model identifier with provider prefix: anthropic/..., openai/..., gemini/...
  model: "{{ .LLMModel }}"

  # Reasoning effort hint: low, medium, or high (empty disables)
  reasoning_effort: "{{ .LLMReasoningEffort }}"

  # Two-stage planning: select files first, then plan with their contents
  two_stage: {{ .LLMTwoStage }}

# Coding tool that applies the change
coder:
  # Backend: claude, aider, or codex
  backend: "{{ .CoderBackend }}"

# Test command run after the change, with bounded automated fix retries
test:
  command: "{{ .TestCommand }}"
  max_attempts: {{ .TestMaxAttempts }}

# Pull request settings
pr:
  # Base branch; inferred from origin HEAD when empty
  base: "{{ .PRBase }}"
  draft: {{ .PRDraft }}
`

type configTemplateData struct {
	DBPath             string
	GitHubOwner        string
	GitHubRepo         string
	LLMModel           string
	LLMReasoningEffort string
	LLMTwoStage        bool
	CoderBackend       string
	TestCommand        string
	TestMaxAttempts    int
	PRBase             string
	PRDraft            bool
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		DBPath:             viper.GetString("db_path"),
		GitHubOwner:        viper.GetString("github.owner"),
		GitHubRepo:         viper.GetString("github.repo"),
		LLMModel:           viper.GetString("llm.model"),
		LLMReasoningEffort: viper.GetString("llm.reasoning_effort"),
		LLMTwoStage:        viper.GetBool("llm.two_stage"),
		CoderBackend:       viper.GetString("coder.backend"),
		TestCommand:        viper.GetString("test.command"),
		TestMaxAttempts:    viper.GetInt("test.max_attempts"),
		PRBase:             viper.GetString("pr.base"),
		PRDraft:            viper.GetBool("pr.draft"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
}

var configKeys = []configKeyInfo{
	{Key: "db_path", EnvVar: "RESOLVEBOT_DB_PATH"},
	{Key: "github.token", EnvVar: "RESOLVEBOT_GITHUB_TOKEN"},
	{Key: "github.owner", EnvVar: "RESOLVEBOT_GITHUB_OWNER"},
	{Key: "github.repo", EnvVar: "RESOLVEBOT_GITHUB_REPO"},
	{Key: "llm.model", EnvVar: "RESOLVEBOT_LLM_MODEL"},
	{Key: "llm.reasoning_effort", EnvVar: "RESOLVEBOT_LLM_REASONING_EFFORT"},
	{Key: "llm.two_stage", EnvVar: "RESOLVEBOT_LLM_TWO_STAGE"},
	{Key: "coder.backend", EnvVar: "RESOLVEBOT_CODER_BACKEND"},
	{Key: "coder.command", EnvVar: "RESOLVEBOT_CODER_COMMAND"},
	{Key: "test.command", EnvVar: "RESOLVEBOT_TEST_COMMAND"},
	{Key: "test.max_attempts", EnvVar: "RESOLVEBOT_TEST_MAX_ATTEMPTS"},
	{Key: "context.redact_pattern", EnvVar: "RESOLVEBOT_CONTEXT_REDACT_PATTERN"},
	{Key: "diff.total_cap", EnvVar: "RESOLVEBOT_DIFF_TOTAL_CAP"},
	{Key: "diff.per_file_cap", EnvVar: "RESOLVEBOT_DIFF_PER_FILE_CAP"},
	{Key: "pr.base", EnvVar: "RESOLVEBOT_PR_BASE"},
	{Key: "pr.draft", EnvVar: "RESOLVEBOT_PR_DRAFT"},
	{Key: "pr.body_limit", EnvVar: "RESOLVEBOT_PR_BODY_LIMIT"},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		if k.Key == "github.token" && val != "" {
			val = "(set)"
		}
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-24s %v  %s\n", k.Key, val, source)
	}

	return nil
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set, set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'resolvebot config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
