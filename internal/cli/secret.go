package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/semmy-space/nbsecrets/internal/auth"
	"github.com/semmy-space/nbsecrets/internal/identity"
	"github.com/semmy-space/nbsecrets/internal/output"
	"github.com/semmy-space/nbsecrets/internal/secrets"
	"github.com/semmy-space/nbsecrets/pkg/secret"
)

// secretValue is the JSON shape of get output
type secretValue struct {
	Service  string `json:"service"`
	Username string `json:"username"`
	Value    string `json:"value"`
}

// GetCmd implements the get command
type GetCmd struct {
	Service     string  `arg:"" help:"Service the secret belongs to" predictor:"service"`
	Username    string  `help:"Username (default identity when omitted)" short:"u"`
	Default     *string `help:"Print this instead of prompting when nothing is stored"`
	ForcePrompt bool    `help:"Prompt even when a secret is stored, replacing it" name:"force-prompt"`
	Prompt      *string `help:"Prompt text (default: SERVICE[USERNAME])"`
}

// Run executes the get command
func (cmd *GetCmd) Run(app *App, fp *FormatterProvider, globals *Globals) error {
	ctx := context.Background()

	acc, err := app.Accessor()
	if err != nil {
		return err
	}

	// Resolve once so the prompt, the store and the output agree
	username := cmd.Username
	if username == "" {
		username = acc.DefaultIdentity(ctx)
	}

	opts := []secret.CallOption{secret.WithUsername(username)}
	if cmd.Default != nil {
		opts = append(opts, secret.WithDefault(*cmd.Default))
	}
	if cmd.ForcePrompt {
		opts = append(opts, secret.WithForcePrompt())
	}
	if cmd.Prompt != nil {
		opts = append(opts, secret.WithPrompt(*cmd.Prompt))
	}

	value, _, err := acc.Get(ctx, cmd.Service, opts...)
	if err != nil {
		return storeError(err, cmd.Service, username)
	}

	if globals.ResolvedOutput(app.cfg) == "json" {
		return fp.Formatter.Print(secretValue{Service: cmd.Service, Username: username, Value: value})
	}
	return fp.Formatter.PrintText(value)
}

// SetCmd implements the set command
type SetCmd struct {
	Service  string  `arg:"" help:"Service the secret belongs to" predictor:"service"`
	Value    *string `arg:"" optional:"" help:"Secret value (prompted when omitted)"`
	Username string  `help:"Username (default identity when omitted)" short:"u"`
}

// Run executes the set command
func (cmd *SetCmd) Run(app *App, streams Streams) error {
	ctx := context.Background()

	acc, err := app.Accessor()
	if err != nil {
		return err
	}

	username := cmd.Username
	if username == "" {
		username = acc.DefaultIdentity(ctx)
	}

	if cmd.Value == nil {
		// A forced prompt stores the answer
		_, _, err = acc.Get(ctx, cmd.Service, secret.WithUsername(username), secret.WithForcePrompt())
	} else {
		err = acc.Set(ctx, cmd.Service, *cmd.Value, secret.WithUsername(username))
	}
	if err != nil {
		return storeError(err, cmd.Service, username)
	}

	fmt.Fprintf(streams.Err, "Stored %s[%s] in %s\n", cmd.Service, username, app.Backend())
	return nil
}

// DeleteCmd implements the delete command
type DeleteCmd struct {
	Service  string `arg:"" help:"Service the secret belongs to" predictor:"service"`
	Username string `help:"Username (default identity when omitted)" short:"u"`
}

// Run executes the delete command
func (cmd *DeleteCmd) Run(app *App, streams Streams) error {
	ctx := context.Background()

	acc, err := app.Accessor()
	if err != nil {
		return err
	}

	username := cmd.Username
	if username == "" {
		username = acc.DefaultIdentity(ctx)
	}

	if err := acc.Delete(ctx, cmd.Service, secret.WithUsername(username)); err != nil {
		return storeError(err, cmd.Service, username)
	}

	fmt.Fprintf(streams.Err, "Deleted %s[%s]\n", cmd.Service, username)
	return nil
}

// ListCmd implements the list command
type ListCmd struct {
	Service string `arg:"" optional:"" help:"Only list secrets of this service" predictor:"service"`
}

// listEntry is one row of list output
type listEntry struct {
	Service  string `json:"service"`
	Username string `json:"username"`
}

// Run executes the list command
func (cmd *ListCmd) Run(app *App, fp *FormatterProvider, streams Streams) error {
	entries, err := listEntries(app)
	if err != nil {
		return err
	}

	rows := make([]listEntry, 0, len(entries))
	for _, e := range entries {
		if cmd.Service != "" && e.Service != cmd.Service {
			continue
		}
		rows = append(rows, listEntry{Service: e.Service, Username: e.Username})
	}

	if len(rows) == 0 {
		fmt.Fprintf(streams.Err, "No secrets stored\n")
		fmt.Fprintf(streams.Err, "Run 'nbsecrets set SERVICE' to add one\n")
		return nil
	}

	cols := []output.Column{
		{Name: "Service", Key: "Service"},
		{Name: "Username", Key: "Username", Width: 40},
	}
	return fp.Formatter.PrintList(rows, cols)
}

// listEntries returns stored secrets, without the login refresh token.
func listEntries(app *App) ([]secrets.Entry, error) {
	store, err := app.BaseStore()
	if err != nil {
		return nil, err
	}

	lister, ok := store.(secrets.Lister)
	if !ok {
		return nil, &output.CLIError{
			Message:  fmt.Sprintf("The %s backend cannot list secrets", secrets.BackendName(store)),
			Hint:     "Use --backend keyring or --backend file",
			ExitCode: output.ExitUsage,
		}
	}

	entries, err := lister.List()
	if err != nil {
		return nil, &output.CLIError{
			Message:  fmt.Sprintf("Failed to list stored secrets: %v", err),
			ExitCode: output.ExitStore,
		}
	}

	return slices.DeleteFunc(entries, func(e secrets.Entry) bool {
		return e.Service == auth.TokenService
	}), nil
}

// WhoamiCmd implements the whoami command
type WhoamiCmd struct {
	Explain bool `help:"Show every identity source and what it yields" short:"e"`
}

// candidateRow is one row of whoami --explain output
type candidateRow struct {
	Source   string `json:"source"`
	Value    string `json:"value"`
	Selected bool   `json:"selected"`
}

// Run executes the whoami command
func (cmd *WhoamiCmd) Run(app *App, fp *FormatterProvider) error {
	ctx := context.Background()

	store, err := app.Store()
	if err != nil {
		return err
	}
	resolver := identity.NewResolver(app.IdentityConfig(), store)

	if !cmd.Explain {
		return fp.Formatter.PrintText(resolver.Resolve(ctx))
	}

	var rows []candidateRow
	selected := false
	for source, value := range resolver.Candidates(ctx) {
		row := candidateRow{Source: string(source), Value: value}
		if value != "" && !selected {
			row.Selected = true
			selected = true
		}
		rows = append(rows, row)
	}

	cols := []output.Column{
		{Name: "Source", Key: "Source"},
		{Name: "Value", Key: "Value"},
		{Name: "Selected", Key: "Selected"},
	}
	return fp.Formatter.PrintList(rows, cols)
}
