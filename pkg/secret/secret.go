// Package secret reads, stores and deletes secrets such as passwords and API
// keys for interactive sessions, so they never have to appear in source.
//
// A secret is addressed by a service name and a username. When the username
// is omitted a default identity is resolved on every call. A secret missing
// from the credential store is prompted for, saved, and cleared from the
// screen.
//
//	acc := secret.New(store, secret.WithFrontend(secret.NewTerminal()))
//	key, _, err := acc.Get(ctx, "TWILIO_API_KEY")
//	key, _, err = acc.Get(ctx, "TWILIO_API_KEY", secret.WithUsername("my-account"))
//	key, _, err = acc.Get(ctx, "TWILIO_API_KEY", secret.WithPrompt("Enter the API key: "))
package secret

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/semmy-space/nbsecrets/internal/identity"
	"github.com/semmy-space/nbsecrets/internal/prompt"
	"github.com/semmy-space/nbsecrets/internal/secrets"
)

// Store is the credential store the accessor reads and writes.
type Store = secrets.Store

// Frontend prompts a human for missing secrets.
type Frontend = prompt.Frontend

// IdentityConfig configures default identity resolution.
type IdentityConfig = identity.Config

// StoreOptions selects and configures a store backend.
type StoreOptions = secrets.Options

// Backend names accepted in StoreOptions.
const (
	BackendAuto    = secrets.BackendAuto
	BackendKeyring = secrets.BackendKeyring
	BackendSystem  = secrets.BackendSystem
	BackendFile    = secrets.BackendFile
	BackendMemory  = secrets.BackendMemory
)

// DefaultFallback is the identity used when no other source produces one.
const DefaultFallback = identity.DefaultFallback

var (
	// ErrNotFound is returned by Delete when no secret is stored.
	ErrNotFound = secrets.ErrNotFound
	// ErrNoInput is returned by Get when a secret must be prompted for but
	// prompting is disabled.
	ErrNoInput = prompt.ErrNoInput
)

// NewStore opens the credential store selected by opts. The auto backend
// prefers the OS keyring and falls back to an encrypted file.
func NewStore(opts StoreOptions) (Store, error) {
	return secrets.NewStore(opts)
}

// NewMemoryStore returns a process-local store.
func NewMemoryStore() Store {
	return secrets.NewMemoryStore()
}

// NewTerminal returns a Frontend on the controlling terminal. Typed input is
// hidden when stdin is a terminal.
func NewTerminal() Frontend {
	return prompt.NewTerminal()
}

// NewTerminalWith returns a Frontend reading from in and writing to out.
func NewTerminalWith(in io.Reader, out io.Writer) Frontend {
	return prompt.NewTerminalWith(in, out)
}

// NoInput is a Frontend that always fails with ErrNoInput.
type NoInput = prompt.NoInput

// Accessor is the entry point for secret lookups. It keeps no secret state
// of its own; every call goes to the store.
type Accessor struct {
	store    Store
	frontend Frontend
	identity IdentityConfig
}

// Option configures an Accessor.
type Option func(*Accessor)

// WithFrontend sets the prompt used for missing secrets. Without one,
// prompting fails with ErrNoInput.
func WithFrontend(f Frontend) Option {
	return func(a *Accessor) { a.frontend = f }
}

// WithIdentity sets the inputs to default identity resolution.
func WithIdentity(cfg IdentityConfig) Option {
	return func(a *Accessor) { a.identity = cfg }
}

// New returns an Accessor over store.
func New(store Store, opts ...Option) *Accessor {
	a := &Accessor{store: store, frontend: prompt.NoInput{}}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// DefaultIdentity returns the username used when a call names none.
// It is recomputed on every call.
func (a *Accessor) DefaultIdentity(ctx context.Context) string {
	return identity.NewResolver(a.identity, a.store).Resolve(ctx)
}

func (a *Accessor) username(ctx context.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return a.DefaultIdentity(ctx)
}

// Get returns the secret stored for service.
//
// If none is stored (or WithForcePrompt is given) and a default was supplied,
// the default is returned without touching the store. Otherwise the user is
// prompted, and the answer is stored, cleared from view and returned.
//
// ok is false only when WithNullDefault supplied the result.
func (a *Accessor) Get(ctx context.Context, service string, opts ...CallOption) (value string, ok bool, err error) {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	username := a.username(ctx, o.username)

	if !o.forcePrompt {
		v, err := a.store.Get(service, username)
		if err == nil {
			return v, true, nil
		}
		if !errors.Is(err, secrets.ErrNotFound) {
			return "", false, err
		}
	}

	switch o.fallback {
	case valueDefault:
		return o.defaultValue, true, nil
	case nullDefault:
		return "", false, nil
	}

	text := fmt.Sprintf("%s[%s]", service, username)
	if o.hasPrompt {
		text = o.prompt
	}

	v, err := a.frontend.ReadLine(text)
	if err != nil {
		return "", false, err
	}
	if err := a.store.Set(service, username, v); err != nil {
		return "", false, err
	}
	a.frontend.ClearTranscript()
	return v, true, nil
}

// Set stores value for service, overwriting any previous value.
func (a *Accessor) Set(ctx context.Context, service, value string, opts ...CallOption) error {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	return a.store.Set(service, a.username(ctx, o.username), value)
}

// Delete removes the secret for service. It returns ErrNotFound when nothing
// is stored.
func (a *Accessor) Delete(ctx context.Context, service string, opts ...CallOption) error {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	return a.store.Delete(service, a.username(ctx, o.username))
}
