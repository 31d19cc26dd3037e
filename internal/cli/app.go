package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/semmy-space/nbsecrets/internal/auth"
	"github.com/semmy-space/nbsecrets/internal/config"
	"github.com/semmy-space/nbsecrets/internal/identity"
	"github.com/semmy-space/nbsecrets/internal/log"
	"github.com/semmy-space/nbsecrets/internal/output"
	"github.com/semmy-space/nbsecrets/internal/prompt"
	"github.com/semmy-space/nbsecrets/internal/secrets"
	"github.com/semmy-space/nbsecrets/pkg/secret"
)

// App builds the store and accessor a command needs on first use, so
// commands such as config and version never touch a credential store.
type App struct {
	cfg     *config.Config
	globals *Globals
	streams Streams
	log     log.Logger

	store  secrets.Store
	tokens *auth.TokenCache
}

func newApp(cfg *config.Config, globals *Globals, streams Streams, logger log.Logger) *App {
	return &App{cfg: cfg, globals: globals, streams: streams, log: logger}
}

// Backend returns the selected backend name: flag > env > config > auto.
func (a *App) Backend() string {
	if a.globals.Backend != "" {
		return a.globals.Backend
	}
	if a.cfg.Backend != "" {
		return a.cfg.Backend
	}
	return secrets.BackendAuto
}

// BaseStore returns the credential store without login credentials attached.
func (a *App) BaseStore() (secrets.Store, error) {
	if a.store != nil {
		return a.store, nil
	}

	store, err := secrets.NewStore(secrets.Options{
		Backend:      a.Backend(),
		FilePath:     a.globals.StoreFile,
		FilePassword: os.Getenv("NBSECRETS_STORE_PASSWORD"),
		Logger:       a.log,
	})
	if err != nil {
		return nil, &output.CLIError{
			Message:  fmt.Sprintf("Failed to initialize secrets store: %v", err),
			Hint:     "Try: nbsecrets --backend file",
			ExitCode: output.ExitStore,
		}
	}
	a.store = store
	return store, nil
}

// Tokens returns the login token cache over the base store.
func (a *App) Tokens() (*auth.TokenCache, error) {
	if a.tokens != nil {
		return a.tokens, nil
	}

	store, err := a.BaseStore()
	if err != nil {
		return nil, err
	}
	tokens, err := auth.NewTokenCache(a.cfg, store)
	if err != nil {
		return nil, &output.CLIError{
			Message:  fmt.Sprintf("Failed to initialize token cache: %v", err),
			ExitCode: output.ExitConfigError,
		}
	}
	a.tokens = tokens
	return tokens, nil
}

// Store returns the credential store secrets are read from. When an OAuth
// client is configured the store also carries the login credentials, making
// the account email a default identity candidate.
func (a *App) Store() (secrets.Store, error) {
	store, err := a.BaseStore()
	if err != nil {
		return nil, err
	}
	if a.cfg.ClientID == "" {
		return store, nil
	}

	tokens, err := a.Tokens()
	if err != nil {
		a.log.Warn().Err(err).Msg("login credentials unavailable")
		return store, nil
	}
	return auth.NewCredentialedStore(store, tokens), nil
}

// IdentityConfig returns the inputs to default identity resolution.
// The environment default is --user or NBSECRETS_USER, then the identity
// config key, then USER.
func (a *App) IdentityConfig() identity.Config {
	user := a.globals.User
	if user == "" {
		user = a.cfg.Identity
	}
	if user == "" {
		user = os.Getenv("USER")
	}

	cfg := identity.Config{
		EnvUser:    user,
		Fallback:   a.cfg.FallbackIdentity,
		DisableADC: !a.cfg.ADCEnabled(),
	}
	if p, err := a.cfg.GetProvider(); err == nil {
		cfg.UserinfoURL = p.UserinfoURL
	}
	return cfg
}

// Frontend returns the prompt for missing secrets.
func (a *App) Frontend() prompt.Frontend {
	if a.globals.NoInput {
		return prompt.NoInput{}
	}
	if f, ok := a.streams.In.(*os.File); ok && f == os.Stdin {
		return prompt.NewTerminal()
	}
	return prompt.NewTerminalWith(a.streams.In, a.streams.Err)
}

// Accessor returns the secret accessor over Store.
func (a *App) Accessor() (*secret.Accessor, error) {
	store, err := a.Store()
	if err != nil {
		return nil, err
	}
	return secret.New(store,
		secret.WithFrontend(a.Frontend()),
		secret.WithIdentity(a.IdentityConfig()),
	), nil
}

// storeError maps store and prompt failures to CLI errors.
func storeError(err error, service, username string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, secrets.ErrNotFound):
		msg := fmt.Sprintf("No secret stored for %s", service)
		if username != "" {
			msg = fmt.Sprintf("No secret stored for %s[%s]", service, username)
		}
		return &output.CLIError{
			Message:  msg,
			Hint:     "Run: nbsecrets set " + service,
			ExitCode: output.ExitNotFound,
		}
	case errors.Is(err, prompt.ErrNoInput):
		return &output.CLIError{
			Message:  fmt.Sprintf("No secret stored for %s and prompting is disabled", service),
			Hint:     "Pass --default, or run without --no-input",
			ExitCode: output.ExitUsage,
		}
	default:
		var cliErr *output.CLIError
		if errors.As(err, &cliErr) {
			return cliErr
		}
		return &output.CLIError{
			Message:  err.Error(),
			ExitCode: output.ExitStore,
		}
	}
}
