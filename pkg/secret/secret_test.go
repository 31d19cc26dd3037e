package secret

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semmy-space/nbsecrets/internal/identity"
	"github.com/semmy-space/nbsecrets/internal/prompt"
	"github.com/semmy-space/nbsecrets/internal/secrets"
)

const testUser = "nbsecrets_TEST_USER"

// fakeFrontend answers every prompt with input and records what it saw.
type fakeFrontend struct {
	input   string
	err     error
	prompts []string
	clears  int
}

func (f *fakeFrontend) ReadLine(p string) (string, error) {
	f.prompts = append(f.prompts, p)
	return f.input, f.err
}

func (f *fakeFrontend) ClearTranscript() { f.clears++ }

// spyStore counts writes on top of a MemoryStore.
type spyStore struct {
	*secrets.MemoryStore
	sets int
}

func (s *spyStore) Set(service, username, value string) error {
	s.sets++
	return s.MemoryStore.Set(service, username, value)
}

func newAccessor(t *testing.T, fe *fakeFrontend) (*Accessor, *spyStore) {
	t.Helper()
	store := &spyStore{MemoryStore: secrets.NewMemoryStore()}
	if fe == nil {
		fe = &fakeFrontend{input: "user input"}
	}
	acc := New(store,
		WithFrontend(fe),
		WithIdentity(identity.Config{EnvUser: testUser, DisableADC: true}),
	)
	return acc, store
}

func get(t *testing.T, acc *Accessor, service string, opts ...CallOption) string {
	t.Helper()
	v, ok, err := acc.Get(context.Background(), service, opts...)
	require.NoError(t, err)
	require.True(t, ok)
	return v
}

func TestGetPromptsAndStores(t *testing.T) {
	fe := &fakeFrontend{input: "user input"}
	acc, store := newAccessor(t, fe)

	assert.Equal(t, "user input", get(t, acc, "KEY"))
	assert.Equal(t, []string{"KEY[" + testUser + "]"}, fe.prompts)
	assert.Equal(t, 1, fe.clears)

	v, err := store.Get("KEY", testUser)
	require.NoError(t, err)
	assert.Equal(t, "user input", v)

	// second lookup hits the store without prompting
	assert.Equal(t, "user input", get(t, acc, "KEY"))
	assert.Len(t, fe.prompts, 1)
}

func TestGetPromptText(t *testing.T) {
	t.Run("custom prompt", func(t *testing.T) {
		fe := &fakeFrontend{input: "v"}
		acc, _ := newAccessor(t, fe)
		get(t, acc, "KEY", WithPrompt("Enter the API key: "))
		assert.Equal(t, []string{"Enter the API key: "}, fe.prompts)
	})

	t.Run("empty prompt is honoured", func(t *testing.T) {
		fe := &fakeFrontend{input: "v"}
		acc, _ := newAccessor(t, fe)
		get(t, acc, "KEY", WithPrompt(""))
		assert.Equal(t, []string{""}, fe.prompts)
	})

	t.Run("explicit username", func(t *testing.T) {
		fe := &fakeFrontend{input: "v"}
		acc, _ := newAccessor(t, fe)
		get(t, acc, "KEY", WithUsername("my-account"))
		assert.Equal(t, []string{"KEY[my-account]"}, fe.prompts)
	})
}

func TestGetEmptyInputIsStored(t *testing.T) {
	fe := &fakeFrontend{input: ""}
	acc, store := newAccessor(t, fe)

	assert.Equal(t, "", get(t, acc, "KEY"))
	v, err := store.Get("KEY", testUser)
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestGetDefaults(t *testing.T) {
	fe := &fakeFrontend{input: "user input"}
	acc, store := newAccessor(t, fe)
	ctx := context.Background()

	assert.Equal(t, "default", get(t, acc, "KEY", WithDefault("default")))

	v, ok, err := acc.Get(ctx, "KEY", WithNullDefault())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "", v)

	assert.Empty(t, fe.prompts, "a supplied default must never prompt")
	assert.Zero(t, store.sets, "a supplied default must never write")
	assert.Zero(t, store.Len())

	require.NoError(t, acc.Set(ctx, "KEY", "S1"))
	assert.Equal(t, "S1", get(t, acc, "KEY", WithDefault("default")))
	assert.Equal(t, "S1", get(t, acc, "KEY", WithNullDefault()))
}

func TestGetEmptyStringDefaultIsNotNull(t *testing.T) {
	acc, _ := newAccessor(t, nil)

	v, ok, err := acc.Get(context.Background(), "KEY", WithDefault(""))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func TestSetSecret(t *testing.T) {
	acc, _ := newAccessor(t, &fakeFrontend{err: errors.New("unexpected prompt")})
	ctx := context.Background()

	require.NoError(t, acc.Set(ctx, "K1", "S1"))
	assert.Equal(t, "S1", get(t, acc, "K1"))

	require.NoError(t, acc.Set(ctx, "K2", "S2"))
	assert.Equal(t, "S1", get(t, acc, "K1"))
	assert.Equal(t, "S2", get(t, acc, "K2"))

	require.NoError(t, acc.Set(ctx, "K1", "S3"))
	assert.Equal(t, "S3", get(t, acc, "K1"))
	assert.Equal(t, "S2", get(t, acc, "K2"))

	require.NoError(t, acc.Set(ctx, "K1", "S4", WithUsername("u1")))
	require.NoError(t, acc.Set(ctx, "K1", "S5", WithUsername("u2")))
	assert.Equal(t, "S3", get(t, acc, "K1"))
	assert.Equal(t, "S4", get(t, acc, "K1", WithUsername("u1")))
	assert.Equal(t, "S5", get(t, acc, "K1", WithUsername("u2")))
}

func TestDeleteSecret(t *testing.T) {
	acc, _ := newAccessor(t, nil)
	ctx := context.Background()

	require.NoError(t, acc.Set(ctx, "K1", "S1"))
	require.NoError(t, acc.Set(ctx, "K2", "S2"))
	require.NoError(t, acc.Delete(ctx, "K1"))

	assert.Equal(t, "none", get(t, acc, "K1", WithDefault("none")))
	assert.Equal(t, "S2", get(t, acc, "K2"))
}

func TestDeleteMissingFails(t *testing.T) {
	acc, _ := newAccessor(t, nil)
	ctx := context.Background()

	assert.ErrorIs(t, acc.Delete(ctx, "NEVER"), ErrNotFound)

	require.NoError(t, acc.Set(ctx, "K1", "S1", WithUsername("u1")))
	assert.ErrorIs(t, acc.Delete(ctx, "K1"), ErrNotFound, "default user has nothing stored")
	assert.ErrorIs(t, acc.Delete(ctx, "K1", WithUsername("u2")), ErrNotFound)
}

func TestLifecycleScenario(t *testing.T) {
	acc, _ := newAccessor(t, nil)
	ctx := context.Background()

	assert.Equal(t, "d", get(t, acc, "K", WithDefault("d")))
	require.NoError(t, acc.Set(ctx, "K", "v"))
	assert.Equal(t, "v", get(t, acc, "K", WithDefault("d")))
	require.NoError(t, acc.Delete(ctx, "K"))
	assert.Equal(t, "d", get(t, acc, "K", WithDefault("d")))
}

func TestForcePromptOverwrites(t *testing.T) {
	fe := &fakeFrontend{input: "fresh"}
	acc, store := newAccessor(t, fe)
	ctx := context.Background()

	require.NoError(t, acc.Set(ctx, "K", "stale"))
	assert.Equal(t, "fresh", get(t, acc, "K", WithForcePrompt()))
	assert.Len(t, fe.prompts, 1)

	v, err := store.Get("K", testUser)
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
}

func TestForcePromptWithDefaultReturnsDefault(t *testing.T) {
	fe := &fakeFrontend{input: "fresh"}
	acc, _ := newAccessor(t, fe)
	ctx := context.Background()

	require.NoError(t, acc.Set(ctx, "K", "stored"))
	assert.Equal(t, "d", get(t, acc, "K", WithForcePrompt(), WithDefault("d")))
	assert.Empty(t, fe.prompts)
	assert.Equal(t, "stored", get(t, acc, "K"))
}

func TestPromptFailureStoresNothing(t *testing.T) {
	acc, store := newAccessor(t, &fakeFrontend{err: prompt.ErrNoInput})

	_, _, err := acc.Get(context.Background(), "KEY")
	assert.ErrorIs(t, err, prompt.ErrNoInput)
	assert.Zero(t, store.sets)
}

func TestNoFrontendRefusesToPrompt(t *testing.T) {
	acc := New(secrets.NewMemoryStore(), WithIdentity(identity.Config{EnvUser: testUser, DisableADC: true}))

	_, _, err := acc.Get(context.Background(), "KEY")
	assert.ErrorIs(t, err, prompt.ErrNoInput)
}

// brokenStore fails every operation with a backend error.
type brokenStore struct{}

var errBackend = errors.New("backend unavailable")

func (brokenStore) Get(string, string) (string, error) { return "", errBackend }
func (brokenStore) Set(string, string, string) error   { return errBackend }
func (brokenStore) Delete(string, string) error        { return errBackend }

func TestStoreErrorsPropagate(t *testing.T) {
	fe := &fakeFrontend{input: "x"}
	acc := New(brokenStore{}, WithFrontend(fe), WithIdentity(identity.Config{EnvUser: testUser, DisableADC: true}))
	ctx := context.Background()

	_, _, err := acc.Get(ctx, "KEY", WithDefault("d"))
	assert.ErrorIs(t, err, errBackend, "backend errors are not treated as a missing secret")
	assert.Empty(t, fe.prompts)

	assert.ErrorIs(t, acc.Set(ctx, "KEY", "v"), errBackend)
	assert.ErrorIs(t, acc.Delete(ctx, "KEY"), errBackend)
}

func TestDefaultIdentity(t *testing.T) {
	acc, _ := newAccessor(t, nil)
	assert.Equal(t, testUser, acc.DefaultIdentity(context.Background()))

	fallback := New(secrets.NewMemoryStore(), WithIdentity(identity.Config{DisableADC: true}))
	assert.Equal(t, identity.DefaultFallback, fallback.DefaultIdentity(context.Background()))
}
