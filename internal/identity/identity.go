// Package identity resolves the default username under which secrets are
// stored when a caller does not name one.
//
// Candidates are tried in order: the configured environment default, the
// credential store's own OAuth credentials (if it has any), application
// default credentials, and finally a fixed fallback. The first non-empty
// candidate wins and later candidates are never evaluated.
package identity

import (
	"context"
	"iter"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultFallback is the identity used when no other source produces one.
const DefaultFallback = "nbsecrets"

// DefaultUserinfoURL is the Google OAuth2 userinfo endpoint.
const DefaultUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Scopes requested for application default credentials.
var Scopes = []string{"openid", "email"}

// Source names the step that produced a candidate.
type Source string

const (
	SourceEnv           Source = "env"
	SourceStoreIDToken  Source = "store-id-token"
	SourceStoreUserinfo Source = "store-userinfo"
	SourceADCIDToken    Source = "adc-id-token"
	SourceADCUserinfo   Source = "adc-userinfo"
	SourceFallback      Source = "fallback"
)

// CredentialSource is the optional capability of a credential store that
// holds OAuth credentials of its own.
type CredentialSource interface {
	Credentials() (oauth2.TokenSource, error)
}

// ADCFunc finds application default credentials.
type ADCFunc func(ctx context.Context) (oauth2.TokenSource, error)

// Config holds the inputs to identity resolution. Nothing is read from the
// process environment; callers fill EnvUser explicitly.
type Config struct {
	// EnvUser is the environment-provided default identity (e.g. $USER).
	EnvUser string
	// Fallback is returned when every other step yields nothing.
	Fallback string
	// UserinfoURL is queried with the credentials when no id_token email is present.
	UserinfoURL string
	// DisableADC skips application default credentials.
	DisableADC bool
	// FindADC overrides application default credential discovery.
	FindADC ADCFunc
	// HTTPClient is the base client for userinfo queries.
	HTTPClient *http.Client
	// Timeout bounds each userinfo query.
	Timeout time.Duration
}

// Resolver produces identity candidates. It holds no state between calls.
type Resolver struct {
	cfg   Config
	store any
}

// NewResolver returns a Resolver probing store for the CredentialSource
// capability. store may be nil.
func NewResolver(cfg Config, store any) *Resolver {
	if cfg.Fallback == "" {
		cfg.Fallback = DefaultFallback
	}
	if cfg.UserinfoURL == "" {
		cfg.UserinfoURL = DefaultUserinfoURL
	}
	if cfg.FindADC == nil {
		cfg.FindADC = findADC
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Resolver{cfg: cfg, store: store}
}

// Resolve returns the first non-empty candidate.
func (r *Resolver) Resolve(ctx context.Context) string {
	for _, v := range r.Candidates(ctx) {
		if v != "" {
			return v
		}
	}
	return r.cfg.Fallback
}

// Candidates yields each step's candidate in order, including empty ones.
// Every step runs only when the consumer asks for it, and the sequence ends
// with the non-empty fallback. Ranging again starts over.
func (r *Resolver) Candidates(ctx context.Context) iter.Seq2[Source, string] {
	return func(yield func(Source, string) bool) {
		if !yield(SourceEnv, r.cfg.EnvUser) {
			return
		}

		if cs, ok := r.store.(CredentialSource); ok {
			ts, err := cs.Credentials()
			if err == nil && ts != nil {
				if !r.credentialCandidates(ctx, ts, SourceStoreIDToken, SourceStoreUserinfo, yield) {
					return
				}
			}
		}

		if !r.cfg.DisableADC {
			ts, err := r.cfg.FindADC(ctx)
			if err == nil && ts != nil {
				if !r.credentialCandidates(ctx, ts, SourceADCIDToken, SourceADCUserinfo, yield) {
					return
				}
			}
		}

		yield(SourceFallback, r.cfg.Fallback)
	}
}

// credentialCandidates yields the id_token email, then the userinfo email,
// for one set of credentials. It reports false once the consumer stops.
func (r *Resolver) credentialCandidates(ctx context.Context, ts oauth2.TokenSource, idSrc, infoSrc Source, yield func(Source, string) bool) bool {
	tok, err := ts.Token()
	if err != nil {
		return true
	}
	if !yield(idSrc, EmailFromToken(tok)) {
		return false
	}
	return yield(infoSrc, r.userinfoEmail(ctx, ts))
}

func findADC(ctx context.Context) (oauth2.TokenSource, error) {
	creds, err := google.FindDefaultCredentials(ctx, Scopes...)
	if err != nil {
		return nil, err
	}
	return creds.TokenSource, nil
}
