package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"golang.org/x/oauth2"

	"github.com/semmy-space/nbsecrets/internal/auth"
	"github.com/semmy-space/nbsecrets/internal/config"
	"github.com/semmy-space/nbsecrets/internal/output"
	"github.com/semmy-space/nbsecrets/internal/secrets"
)

// SetupCmd implements the interactive setup wizard
type SetupCmd struct {
	SkipLogin bool `help:"Configure only, do not log in" name:"skip-login"`
}

// Run executes the setup wizard
func (cmd *SetupCmd) Run(cfg *config.Config, app *App, streams Streams, globals *Globals) error {
	if globals.NoInput {
		return &output.CLIError{
			Message:  "setup is interactive and --no-input is set",
			Hint:     "Use: nbsecrets config set KEY VALUE",
			ExitCode: output.ExitUsage,
		}
	}

	reader := bufio.NewReader(streams.In)
	w := streams.Err

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  nbsecrets setup\n")
	fmt.Fprintf(w, "  ===============\n\n")

	// Step 1: Backend
	detected := "OS keyring"
	if secrets.IsWSL() || secrets.IsHeadless() {
		detected = "encrypted file (no keyring in this environment)"
	}
	fmt.Fprintf(w, "  Step 1: Choose where secrets are stored\n\n")
	fmt.Fprintf(w, "    auto     keyring when available, else file (detected: %s)\n", detected)
	fmt.Fprintf(w, "    keyring  OS keyring via 99designs/keyring\n")
	fmt.Fprintf(w, "    system   OS keyring via the platform secret service\n")
	fmt.Fprintf(w, "    file     encrypted file under the data directory\n\n")

	backend := ask(reader, w, fmt.Sprintf("  Backend [%s]: ", orDefault(cfg.Backend, secrets.BackendAuto)))
	if backend == "" {
		backend = orDefault(cfg.Backend, secrets.BackendAuto)
	}
	if !slices.Contains(secrets.Backends, backend) {
		return &output.CLIError{
			Message:  fmt.Sprintf("Invalid backend: %s. Valid: %s", backend, strings.Join(secrets.Backends, ", ")),
			ExitCode: output.ExitUsage,
		}
	}

	// Step 2: Default identity
	fmt.Fprintf(w, "\n  Step 2: Default identity\n\n")
	fmt.Fprintf(w, "    Secrets addressed without a username are stored under this name.\n")
	fmt.Fprintf(w, "    Leave empty to use $USER, then your login email.\n\n")

	identity := ask(reader, w, fmt.Sprintf("  Identity [%s]: ", cfg.Identity))
	if identity == "" {
		identity = cfg.Identity
	}

	// Step 3: Optional OAuth client
	fmt.Fprintf(w, "\n  Step 3: Account login (optional)\n\n")
	fmt.Fprintf(w, "    With an OAuth client, your account email can be the default identity.\n")
	fmt.Fprintf(w, "    Redirect URI for manual login: http://127.0.0.1:8085/callback\n")
	fmt.Fprintf(w, "    Leave empty to skip.\n\n")

	clientID := ask(reader, w, "  Client ID: ")
	if clientID == "" && cfg.ClientID != "" {
		clientID = cfg.ClientID
		fmt.Fprintf(w, "  (keeping existing)\n")
	}

	clientSecret := cfg.ClientSecret
	if clientID != "" {
		clientSecret = ask(reader, w, "  Client Secret: ")
		if clientSecret == "" && cfg.ClientSecret != "" {
			clientSecret = cfg.ClientSecret
			fmt.Fprintf(w, "  (keeping existing)\n")
		}
		if clientSecret == "" {
			return &output.CLIError{
				Message:  "Client Secret is required with a Client ID",
				ExitCode: output.ExitUsage,
			}
		}
	}

	// Save config before login
	cfg.Backend = backend
	cfg.Identity = identity
	cfg.ClientID = clientID
	cfg.ClientSecret = clientSecret
	if err := cfg.Save(); err != nil {
		return &output.CLIError{
			Message:  fmt.Sprintf("Failed to save config: %v", err),
			ExitCode: output.ExitConfigError,
		}
	}

	if clientID != "" && !cmd.SkipLogin {
		if err := setupLogin(reader, app, cfg, streams); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "\n  Setup complete!\n\n")
	fmt.Fprintf(w, "    Backend:  %s\n", backend)
	fmt.Fprintf(w, "    Identity: %s\n", orDefault(identity, "(automatic)"))
	fmt.Fprintf(w, "    Config:   %s\n\n", cfg.Path())
	fmt.Fprintf(w, "  Try it out:\n\n")
	fmt.Fprintf(w, "    nbsecrets whoami --explain\n")
	fmt.Fprintf(w, "    nbsecrets get MY_API_KEY\n\n")

	return nil
}

func setupLogin(reader *bufio.Reader, app *App, cfg *config.Config, streams Streams) error {
	w := streams.Err
	fmt.Fprintf(w, "\n  Step 4: Authenticate\n\n")

	answer := ask(reader, w, "  Open browser to log in? [Y/n]: ")
	manual := strings.ToLower(answer) == "n"

	// Backend changes made above apply to this run too
	app.globals.Backend = cfg.Backend
	tokenCache, err := app.Tokens()
	if err != nil {
		return err
	}

	ctx := context.Background()
	var token *oauth2.Token

	if manual {
		token, err = auth.ManualLogin(ctx, cfg, reader, w)
	} else {
		token, err = auth.InteractiveLogin(ctx, cfg, w)
	}

	if err != nil {
		return &output.CLIError{
			Message:  fmt.Sprintf("Login failed: %v", err),
			Hint:     "Retry later with: nbsecrets auth login",
			ExitCode: output.ExitAuth,
		}
	}

	if err := tokenCache.SaveInitialTokens(token); err != nil {
		return &output.CLIError{
			Message:  fmt.Sprintf("Failed to save tokens: %v", err),
			ExitCode: output.ExitStore,
		}
	}
	return nil
}

// ask prints a prompt and reads a line of input
func ask(reader *bufio.Reader, w io.Writer, text string) string {
	fmt.Fprint(w, text)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
