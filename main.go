package main

import (
	"errors"
	"os"

	"github.com/willabides/kongplete"

	"github.com/semmy-space/nbsecrets/internal/cli"
	"github.com/semmy-space/nbsecrets/internal/output"
)

var (
	version = "dev"
)

func main() {
	streams := cli.StdStreams()

	cliInstance := &cli.CLI{}
	parser, err := cli.NewParser(cliInstance, version, streams)
	if err != nil {
		panic(err)
	}

	// Answers shell completion requests and exits
	kongplete.Complete(parser, cli.CompletionOptions()...)

	ctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		// Usage errors get kong's usage output; hook failures carry exit codes
		var cliErr *output.CLIError
		if !errors.As(err, &cliErr) {
			parser.FatalIfErrorf(err)
		}
		exit(cliInstance, streams, err)
	}

	// Run command with bound dependencies
	if err := ctx.Run(); err != nil {
		exit(cliInstance, streams, err)
	}
}

// exit prints err through a formatter and exits with its code
func exit(c *cli.CLI, streams cli.Streams, err error) {
	formatter := output.NewWithWriters(c.ResolvedOutput(nil), streams.Out, streams.Err)
	os.Exit(output.Report(formatter, err))
}
