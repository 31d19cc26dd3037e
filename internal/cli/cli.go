package cli

import (
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/willabides/kongplete"

	"github.com/semmy-space/nbsecrets/internal/config"
	"github.com/semmy-space/nbsecrets/internal/log"
	"github.com/semmy-space/nbsecrets/internal/output"
)

// FormatterProvider wraps the formatter interface for Kong binding
type FormatterProvider struct {
	Formatter output.Formatter
}

// Streams are the process streams commands read from and write to.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// StdStreams returns the process's standard streams.
func StdStreams() Streams {
	return Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// CLI is the root command structure
type CLI struct {
	Globals

	Get        GetCmd                       `cmd:"" help:"Print a secret, prompting for it when missing"`
	Set        SetCmd                       `cmd:"" help:"Store a secret"`
	Delete     DeleteCmd                    `cmd:"" help:"Delete a stored secret"`
	List       ListCmd                      `cmd:"" help:"List stored secrets (names only)"`
	Whoami     WhoamiCmd                    `cmd:"" help:"Show the default identity"`
	Auth       AuthCmd                      `cmd:"" help:"Authentication commands"`
	Config     ConfigCmd                    `cmd:"" help:"Configuration commands"`
	Setup      SetupCmd                     `cmd:"" help:"Interactive setup wizard"`
	Schema     SchemaCmd                    `cmd:"" help:"Print the command tree as JSON"`
	Version    VersionCmd                   `cmd:"" help:"Show version information"`
	Completion kongplete.InstallCompletions `cmd:"" help:"Install shell completions"`
}

// AfterApply hook runs once flags are parsed, before any command executes
// It loads config, creates formatter and logger, and binds dependencies
func (c *CLI) AfterApply(ctx *kong.Context, streams Streams) error {
	// --config-file wins over NBSECRETS_CONFIG and the XDG default
	path := c.ConfigFile
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return &output.CLIError{
			Message:  err.Error(),
			Hint:     "Check the file at: " + path,
			ExitCode: output.ExitConfigError,
		}
	}

	formatter := &FormatterProvider{
		Formatter: output.NewWithWriters(c.ResolvedOutput(cfg), streams.Out, streams.Err),
	}
	logger := log.NewWithWriter(streams.Err, c.Verbose)

	// Bind dependencies to kong context
	ctx.Bind(cfg)
	ctx.Bind(formatter)
	ctx.Bind(&c.Globals)
	ctx.Bind(newApp(cfg, &c.Globals, streams, logger))

	return nil
}

// AuthCmd holds authentication subcommands
type AuthCmd struct {
	Login  AuthLoginCmd  `cmd:"" help:"Log in so your account email becomes the default identity"`
	Logout AuthLogoutCmd `cmd:"" help:"Log out and remove stored credentials"`
	Status AuthStatusCmd `cmd:"" help:"Show login status"`
}

// ConfigCmd holds configuration subcommands
type ConfigCmd struct {
	Get   ConfigGetCmd        `cmd:"" help:"Get a configuration value"`
	Set   ConfigSetCmd        `cmd:"" help:"Set a configuration value"`
	Unset ConfigUnsetCmd      `cmd:"" help:"Remove a configuration value"`
	List  ConfigListConfigCmd `cmd:"" name:"list" help:"List all configuration values"`
	Path  ConfigPathCmd       `cmd:"" help:"Show config file path"`
}

// NewParser builds the kong parser for cli. streams is bound for commands
// and hooks; Kong's own help and errors go to streams.Out and streams.Err.
func NewParser(cli *CLI, version string, streams Streams, opts ...kong.Option) (*kong.Kong, error) {
	base := []kong.Option{
		kong.Name("nbsecrets"),
		kong.Description("Keep passwords and API keys out of notebooks and scripts"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
		kong.Writers(streams.Out, streams.Err),
		kong.Bind(streams),
	}
	return kong.New(cli, append(base, opts...)...)
}

// VersionCmd shows version information
type VersionCmd struct{}

func (cmd *VersionCmd) Run(ctx *kong.Context, streams Streams) error {
	version := ctx.Model.Vars()["version"]
	_, err := io.WriteString(streams.Out, "nbsecrets version "+version+"\n")
	return err
}
