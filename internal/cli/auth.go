package cli

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/semmy-space/nbsecrets/internal/auth"
	"github.com/semmy-space/nbsecrets/internal/config"
	"github.com/semmy-space/nbsecrets/internal/identity"
	"github.com/semmy-space/nbsecrets/internal/output"
)

// AuthLoginCmd implements the auth login command
type AuthLoginCmd struct {
	Manual bool `help:"Manual paste mode (no browser)" short:"m"`
}

// Run executes the login command
func (cmd *AuthLoginCmd) Run(cfg *config.Config, app *App, streams Streams) error {
	// Validate required config
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return &output.CLIError{
			Message: "Client ID and Client Secret required.\n\n" +
				"Run: nbsecrets config set client_id YOUR_CLIENT_ID\n" +
				"Run: nbsecrets config set client_secret YOUR_CLIENT_SECRET",
			ExitCode: output.ExitConfigError,
		}
	}

	tokenCache, err := app.Tokens()
	if err != nil {
		return err
	}

	// Execute login flow
	ctx := context.Background()
	var token *oauth2.Token

	if cmd.Manual {
		token, err = auth.ManualLogin(ctx, cfg, streams.In, streams.Err)
	} else {
		token, err = auth.InteractiveLogin(ctx, cfg, streams.Err)
	}

	if err != nil {
		return &output.CLIError{
			Message:  fmt.Sprintf("Login failed: %v", err),
			ExitCode: output.ExitAuth,
		}
	}

	// Save tokens
	if err := tokenCache.SaveInitialTokens(token); err != nil {
		return &output.CLIError{
			Message:  fmt.Sprintf("Failed to save tokens: %v", err),
			ExitCode: output.ExitStore,
		}
	}

	fmt.Fprintf(streams.Err, "✓ Authenticated successfully\n")
	if email := identity.EmailFromToken(token); email != "" {
		fmt.Fprintf(streams.Err, "Account: %s\n", email)
	}
	fmt.Fprintf(streams.Err, "Token expires: %s\n", token.Expiry.Format(time.RFC3339))
	fmt.Fprintf(streams.Err, "Refresh token stored in %s backend\n", app.Backend())

	return nil
}

// AuthLogoutCmd implements the auth logout command
type AuthLogoutCmd struct{}

// Run executes the logout command
func (cmd *AuthLogoutCmd) Run(app *App, streams Streams) error {
	tokenCache, err := app.Tokens()
	if err != nil {
		return err
	}

	if err := tokenCache.ClearTokens(); err != nil {
		return &output.CLIError{
			Message:  fmt.Sprintf("Failed to clear tokens: %v", err),
			ExitCode: output.ExitStore,
		}
	}

	fmt.Fprintf(streams.Err, "Credentials removed\n")
	return nil
}

// AuthStatusCmd implements the auth status command
type AuthStatusCmd struct {
	Check bool `help:"Refresh the token to validate it" short:"c"`
}

// authStatus is the output of auth status
type authStatus struct {
	LoggedIn bool   `json:"logged_in"`
	Account  string `json:"account"`
	Valid    string `json:"valid"` // "yes", "no", "unknown" (if not checked)
	Expiry   string `json:"expiry"`
}

// Run executes the status command
func (cmd *AuthStatusCmd) Run(cfg *config.Config, app *App, fp *FormatterProvider) error {
	if cfg.ClientID == "" {
		return fp.Formatter.Print(authStatus{Valid: "unknown", Expiry: "n/a"})
	}

	tokenCache, err := app.Tokens()
	if err != nil {
		return err
	}

	status := authStatus{
		LoggedIn: tokenCache.LoggedIn(),
		Valid:    "unknown",
		Expiry:   "n/a",
	}

	if status.LoggedIn && cmd.Check {
		token, err := tokenCache.Token()
		if err != nil {
			status.Valid = "no"
		} else {
			status.Valid = "yes"
			status.Account = identity.EmailFromToken(token)
			status.Expiry = token.Expiry.Format(time.RFC3339)
		}
	}

	return fp.Formatter.Print(status)
}
