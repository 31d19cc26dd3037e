package auth

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/semmy-space/nbsecrets/internal/config"
	"github.com/semmy-space/nbsecrets/internal/output"
	"github.com/semmy-space/nbsecrets/pkg/browser"
)

// manualRedirectURL is registered with the OAuth client for the paste flow.
const manualRedirectURL = "http://127.0.0.1:8085/callback"

// newOAuth2Config creates an oauth2.Config for the configured provider.
func newOAuth2Config(cfg *config.Config, redirectURL string) (*oauth2.Config, error) {
	provider, err := cfg.GetProvider()
	if err != nil {
		return nil, err
	}

	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     provider.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       MergeScopes(provider.Scopes),
	}, nil
}

// generateState generates a random state parameter for OAuth2 CSRF protection.
func generateState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func requireClient(cfg *config.Config) error {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return &output.CLIError{
			Message:  "Client ID and Client Secret required",
			Hint:     "Run: nbsecrets config set client_id <id> && nbsecrets config set client_secret <secret>",
			ExitCode: output.ExitConfigError,
		}
	}
	return nil
}

// authCodeURL builds the consent URL asking for a refresh token, with PKCE.
func authCodeURL(oauthCfg *oauth2.Config, state, verifier string) string {
	return oauthCfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier),
	)
}

// InteractiveLogin performs an OAuth2 login flow using the browser.
// Opens the authorization URL in the default browser and starts a local callback server.
// Progress messages are written to w.
func InteractiveLogin(ctx context.Context, cfg *config.Config, w io.Writer) (*oauth2.Token, error) {
	if err := requireClient(cfg); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	cb, err := startCallbackServer(ctx)
	if err != nil {
		return nil, err
	}
	defer cb.shutdown()

	oauthCfg, err := newOAuth2Config(cfg, cb.url)
	if err != nil {
		return nil, fmt.Errorf("failed to create OAuth2 config: %w", err)
	}

	state := generateState()
	verifier := oauth2.GenerateVerifier()
	authURL := authCodeURL(oauthCfg, state, verifier)

	fmt.Fprintf(w, "Opening browser for authentication...\n")
	fmt.Fprintf(w, "If the browser doesn't open, visit this URL:\n%s\n\n", authURL)

	if err := browser.Open(authURL); err != nil {
		fmt.Fprintf(w, "Failed to open browser: %v\n", err)
		fmt.Fprintf(w, "Please visit the URL above manually.\n")
	}

	var result callbackResult
	select {
	case result = <-cb.results:
	case <-ctx.Done():
		return nil, fmt.Errorf("authentication timeout (5 minutes)")
	}

	if result.Error != "" {
		return nil, fmt.Errorf("authentication failed: %s", result.Error)
	}
	if result.State != state {
		return nil, fmt.Errorf("state mismatch (possible CSRF attack)")
	}

	token, err := oauthCfg.Exchange(ctx, result.Code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	return token, nil
}

// ManualLogin performs an OAuth2 login flow by printing the auth URL and accepting a pasted redirect.
// This is useful for environments where the browser can't be opened automatically (SSH, headless, etc).
func ManualLogin(ctx context.Context, cfg *config.Config, in io.Reader, w io.Writer) (*oauth2.Token, error) {
	if err := requireClient(cfg); err != nil {
		return nil, err
	}

	oauthCfg, err := newOAuth2Config(cfg, manualRedirectURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OAuth2 config: %w", err)
	}

	state := generateState()
	verifier := oauth2.GenerateVerifier()
	authURL := authCodeURL(oauthCfg, state, verifier)

	fmt.Fprintf(w, "\n=== Manual OAuth2 Flow ===\n\n")
	fmt.Fprintf(w, "1. Visit this URL in your browser:\n\n")
	fmt.Fprintf(w, "%s\n\n", authURL)
	fmt.Fprintf(w, "2. After authorizing, you'll be redirected to a page that won't load.\n")
	fmt.Fprintf(w, "3. Copy the FULL URL from your browser's address bar and paste it here.\n\n")
	fmt.Fprintf(w, "Paste the redirect URL: ")

	reader := bufio.NewReader(in)
	redirectedURL, err := reader.ReadString('\n')
	if err != nil && redirectedURL == "" {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	code, err := parseRedirect(strings.TrimSpace(redirectedURL), state)
	if err != nil {
		return nil, err
	}

	token, err := oauthCfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	fmt.Fprintf(w, "\nAuthentication successful!\n")
	return token, nil
}

// parseRedirect extracts the authorization code from a pasted redirect URL
// and checks its state.
func parseRedirect(redirectedURL, state string) (string, error) {
	parsedURL, err := url.Parse(redirectedURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	q := parsedURL.Query()
	code := q.Get("code")
	if code == "" {
		if errorMsg := q.Get("error"); errorMsg != "" {
			return "", fmt.Errorf("authorization failed: %s", errorMsg)
		}
		return "", fmt.Errorf("no authorization code found in URL")
	}

	if q.Get("state") != state {
		return "", fmt.Errorf("state mismatch (possible CSRF attack)")
	}

	return code, nil
}
