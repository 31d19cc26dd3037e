package cli

import (
	"os"

	"golang.org/x/term"

	"github.com/semmy-space/nbsecrets/internal/config"
)

// Globals holds global flags available to all commands
type Globals struct {
	Backend    string `help:"Credential store backend" default:"" enum:"auto,keyring,system,file,memory," env:"NBSECRETS_BACKEND" predictor:"backend"`
	StoreFile  string `help:"Encrypted file store location" name:"store-file" type:"path" env:"NBSECRETS_STORE_FILE"`
	ConfigFile string `help:"Config file location" name:"config-file" type:"path" env:"NBSECRETS_CONFIG"`
	User       string `help:"Default identity for secrets addressed without --username" env:"NBSECRETS_USER"`
	Output     string `help:"Output format" default:"auto" enum:"json,plain,rich,auto" short:"o" env:"NBSECRETS_OUTPUT"`
	Verbose    bool   `help:"Verbose output" short:"v" env:"NBSECRETS_VERBOSE"`
	NoInput    bool   `help:"Disable interactive prompts (fail instead)" env:"NBSECRETS_NO_INPUT"`
}

// ResolvedOutput returns the effective output mode
// "auto" falls back to the default_output config key, then detects TTY:
// if stdout is TTY -> rich, else -> plain
func (g *Globals) ResolvedOutput(cfg *config.Config) string {
	if g.Output != "" && g.Output != "auto" {
		return g.Output
	}
	if cfg != nil && cfg.DefaultOutput != "" && cfg.DefaultOutput != "auto" {
		return cfg.DefaultOutput
	}

	// Detect if stdout is a TTY
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return "rich"
	}

	return "plain"
}
