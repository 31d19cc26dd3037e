package cli

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/semmy-space/nbsecrets/internal/config"
	"github.com/semmy-space/nbsecrets/internal/output"
	"github.com/semmy-space/nbsecrets/internal/secrets"
)

// ConfigGetCmd implements config get command
type ConfigGetCmd struct {
	Key string `arg:"" help:"Config key to get (e.g., backend, identity)" predictor:"config_key"`
}

// Run executes the get command
func (cmd *ConfigGetCmd) Run(cfg *config.Config, fp *FormatterProvider) error {
	value, err := cfg.Get(cmd.Key)
	if err != nil {
		return &output.CLIError{
			Message:  fmt.Sprintf("Unknown config key: %s", cmd.Key),
			Hint:     "Valid keys: " + strings.Join(config.Keys(), ", "),
			ExitCode: output.ExitNotFound,
		}
	}

	return fp.Formatter.PrintText(value)
}

// ConfigSetCmd implements config set command
type ConfigSetCmd struct {
	Key   string `arg:"" help:"Config key to set" predictor:"config_key"`
	Value string `arg:"" help:"Value to set"`
}

// validValues lists the accepted values of enumerated config keys
var validValues = map[string][]string{
	"backend":             secrets.Backends,
	"provider":            config.ValidProviders(),
	"application_default": {"true", "false"},
	"default_output":      {"json", "plain", "rich", "auto"},
}

// Run executes the set command
func (cmd *ConfigSetCmd) Run(cfg *config.Config, streams Streams) error {
	// Validate key exists
	if _, err := cfg.Get(cmd.Key); err != nil {
		return &output.CLIError{
			Message:  fmt.Sprintf("Unknown config key: %s", cmd.Key),
			Hint:     "Valid keys: " + strings.Join(config.Keys(), ", "),
			ExitCode: output.ExitUsage,
		}
	}

	if valid, ok := validValues[cmd.Key]; ok && !slices.Contains(valid, cmd.Value) {
		return &output.CLIError{
			Message:  fmt.Sprintf("Invalid %s: %s. Valid values: %s", cmd.Key, cmd.Value, strings.Join(valid, ", ")),
			ExitCode: output.ExitUsage,
		}
	}

	// Hint for client_secret
	if cmd.Key == "client_secret" {
		fmt.Fprintf(streams.Err, "Note: client_secret is stored in the config file, not the credential store.\n")
	}

	// Set and save
	if err := cfg.Set(cmd.Key, cmd.Value); err != nil {
		return &output.CLIError{
			Message:  fmt.Sprintf("Failed to set config: %v", err),
			ExitCode: output.ExitConfigError,
		}
	}

	shown := cmd.Value
	if cmd.Key == "client_secret" {
		shown = maskSecret(shown)
	}
	fmt.Fprintf(streams.Err, "Set %s = %s\n", cmd.Key, shown)
	return nil
}

// ConfigUnsetCmd implements config unset command
type ConfigUnsetCmd struct {
	Key string `arg:"" help:"Config key to remove" predictor:"config_key"`
}

// Run executes the unset command
func (cmd *ConfigUnsetCmd) Run(cfg *config.Config, streams Streams) error {
	// Validate key exists
	if _, err := cfg.Get(cmd.Key); err != nil {
		return &output.CLIError{
			Message:  fmt.Sprintf("Unknown config key: %s", cmd.Key),
			ExitCode: output.ExitUsage,
		}
	}

	if err := cfg.Unset(cmd.Key); err != nil {
		return &output.CLIError{
			Message:  fmt.Sprintf("Failed to unset config: %v", err),
			ExitCode: output.ExitConfigError,
		}
	}

	fmt.Fprintf(streams.Err, "Unset %s\n", cmd.Key)
	return nil
}

// ConfigListConfigCmd implements config list command
type ConfigListConfigCmd struct{}

// configItem is one row of config list output
type configItem struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Run executes the list command
func (cmd *ConfigListConfigCmd) Run(cfg *config.Config, fp *FormatterProvider) error {
	keys := config.Keys()
	items := make([]configItem, 0, len(keys))
	for _, key := range keys {
		value, _ := cfg.Get(key)
		if key == "client_secret" {
			value = maskSecret(value)
		}
		items = append(items, configItem{Key: key, Value: value})
	}

	cols := []output.Column{
		{Name: "Key", Key: "Key"},
		{Name: "Value", Key: "Value"},
	}

	return fp.Formatter.PrintList(items, cols)
}

// maskSecret masks sensitive values, showing only last 4 characters
func maskSecret(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}

// ConfigPathCmd implements config path command
type ConfigPathCmd struct{}

// Run executes the path command
func (cmd *ConfigPathCmd) Run(cfg *config.Config, fp *FormatterProvider, streams Streams) error {
	path := cfg.Path()

	if err := fp.Formatter.PrintText(path); err != nil {
		return err
	}

	// Print existence hint to stderr
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(streams.Err, "(file does not exist yet - will be created on first write)\n")
	} else {
		fmt.Fprintf(streams.Err, "(file exists)\n")
	}

	return nil
}
