package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semmy-space/nbsecrets/internal/output"
	"github.com/semmy-space/nbsecrets/internal/secrets"
)

// testEnv points every run at a temp config and an encrypted file store
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json5")
	require.NoError(t, os.WriteFile(configPath, []byte(`{application_default: "false"}`), 0600))

	t.Setenv("NBSECRETS_CONFIG", configPath)
	t.Setenv("NBSECRETS_BACKEND", "file")
	t.Setenv("NBSECRETS_STORE_FILE", filepath.Join(dir, "secrets.enc"))
	t.Setenv("NBSECRETS_STORE_PASSWORD", "test-password")
	t.Setenv("NBSECRETS_USER", "alice")
	t.Setenv("NBSECRETS_OUTPUT", "plain")
	return configPath
}

type result struct {
	stdout string
	stderr string
	err    error
}

func run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	streams := Streams{In: strings.NewReader(stdin), Out: &out, Err: &errOut}

	parser, err := NewParser(&CLI{}, "1.2.3", streams, kong.Exit(func(int) {}))
	require.NoError(t, err)

	ctx, err := parser.Parse(args)
	if err == nil {
		err = ctx.Run()
	}
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var cliErr *output.CLIError
	require.ErrorAs(t, err, &cliErr)
	return cliErr.ExitCode
}

func TestSetThenGet(t *testing.T) {
	testEnv(t)

	r := run(t, "", "set", "db", "s3cret")
	require.NoError(t, r.err)
	assert.Contains(t, r.stderr, "Stored db[alice] in file")

	r = run(t, "", "get", "db")
	require.NoError(t, r.err)
	assert.Equal(t, "s3cret\n", r.stdout)
}

func TestGetJSON(t *testing.T) {
	testEnv(t)
	require.NoError(t, run(t, "", "set", "db", "s3cret").err)

	r := run(t, "", "-o", "json", "get", "db")
	require.NoError(t, r.err)

	var got secretValue
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &got))
	assert.Equal(t, secretValue{Service: "db", Username: "alice", Value: "s3cret"}, got)
}

func TestGetMissingNoInput(t *testing.T) {
	testEnv(t)

	r := run(t, "", "--no-input", "get", "db")
	assert.Equal(t, output.ExitUsage, exitCode(t, r.err))
}

func TestGetMissingWithDefault(t *testing.T) {
	testEnv(t)

	r := run(t, "", "--no-input", "get", "db", "--default", "fallback")
	require.NoError(t, r.err)
	assert.Equal(t, "fallback\n", r.stdout)

	// The default is not stored
	r = run(t, "", "--no-input", "get", "db")
	assert.Equal(t, output.ExitUsage, exitCode(t, r.err))
}

func TestGetEmptyDefault(t *testing.T) {
	testEnv(t)

	r := run(t, "", "--no-input", "get", "db", "--default", "")
	require.NoError(t, r.err)
	assert.Equal(t, "\n", r.stdout)
}

func TestGetPromptsAndStores(t *testing.T) {
	testEnv(t)

	r := run(t, "typed-value\n", "get", "db")
	require.NoError(t, r.err)
	assert.Equal(t, "typed-value\n", r.stdout)
	assert.Contains(t, r.stderr, "db[alice]")

	r = run(t, "", "--no-input", "get", "db")
	require.NoError(t, r.err)
	assert.Equal(t, "typed-value\n", r.stdout)
}

func TestGetCustomPrompt(t *testing.T) {
	testEnv(t)

	r := run(t, "v\n", "get", "db", "--prompt", "Password please: ")
	require.NoError(t, r.err)
	assert.Contains(t, r.stderr, "Password please: ")
	assert.NotContains(t, r.stderr, "db[alice]")
}

func TestGetForcePromptOverwrites(t *testing.T) {
	testEnv(t)
	require.NoError(t, run(t, "", "set", "db", "old").err)

	r := run(t, "new\n", "get", "db", "--force-prompt")
	require.NoError(t, r.err)
	assert.Equal(t, "new\n", r.stdout)

	r = run(t, "", "get", "db")
	require.NoError(t, r.err)
	assert.Equal(t, "new\n", r.stdout)
}

func TestSetPromptsWhenValueOmitted(t *testing.T) {
	testEnv(t)

	r := run(t, "prompted\n", "set", "db")
	require.NoError(t, r.err)
	assert.Empty(t, r.stdout)

	r = run(t, "", "get", "db")
	require.NoError(t, r.err)
	assert.Equal(t, "prompted\n", r.stdout)
}

func TestSetExplicitEmptyValue(t *testing.T) {
	testEnv(t)

	r := run(t, "ignored\n", "set", "db", "")
	require.NoError(t, r.err)
	assert.NotContains(t, r.stderr, "db[alice]:")

	r = run(t, "", "--no-input", "get", "db")
	require.NoError(t, r.err)
	assert.Equal(t, "\n", r.stdout)
}

func TestUsernamesAreIndependent(t *testing.T) {
	testEnv(t)
	require.NoError(t, run(t, "", "set", "db", "a-pw").err)
	require.NoError(t, run(t, "", "set", "db", "b-pw", "-u", "bob").err)

	r := run(t, "", "get", "db", "-u", "bob")
	require.NoError(t, r.err)
	assert.Equal(t, "b-pw\n", r.stdout)

	r = run(t, "", "--user", "bob", "get", "db")
	require.NoError(t, r.err)
	assert.Equal(t, "b-pw\n", r.stdout)

	r = run(t, "", "get", "db")
	require.NoError(t, r.err)
	assert.Equal(t, "a-pw\n", r.stdout)
}

func TestDelete(t *testing.T) {
	testEnv(t)

	r := run(t, "", "delete", "db")
	assert.Equal(t, output.ExitNotFound, exitCode(t, r.err))

	require.NoError(t, run(t, "", "set", "db", "pw").err)
	r = run(t, "", "delete", "db")
	require.NoError(t, r.err)
	assert.Contains(t, r.stderr, "Deleted db[alice]")

	r = run(t, "", "--no-input", "get", "db", "--default", "gone")
	require.NoError(t, r.err)
	assert.Equal(t, "gone\n", r.stdout)
}

func TestList(t *testing.T) {
	testEnv(t)

	r := run(t, "", "list")
	require.NoError(t, r.err)
	assert.Contains(t, r.stderr, "No secrets stored")

	require.NoError(t, run(t, "", "set", "db", "pw").err)
	require.NoError(t, run(t, "", "set", "api", "key", "-u", "bob").err)

	r = run(t, "", "list")
	require.NoError(t, r.err)
	assert.Equal(t, "Service\tUsername\napi\tbob\ndb\talice\n", r.stdout)
	assert.NotContains(t, r.stdout, "pw")

	r = run(t, "", "-o", "json", "list", "db")
	require.NoError(t, r.err)
	var got struct {
		Data  []listEntry `json:"data"`
		Count int         `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &got))
	assert.Equal(t, 1, got.Count)
	assert.Equal(t, listEntry{Service: "db", Username: "alice"}, got.Data[0])
}

func TestListUnsupportedBackend(t *testing.T) {
	testEnv(t)

	r := run(t, "", "--backend", "system", "list")
	assert.Equal(t, output.ExitUsage, exitCode(t, r.err))
}

func TestWhoami(t *testing.T) {
	testEnv(t)

	r := run(t, "", "whoami")
	require.NoError(t, r.err)
	assert.Equal(t, "alice\n", r.stdout)

	r = run(t, "", "--user", "", "whoami")
	require.NoError(t, r.err)
	assert.NotEmpty(t, strings.TrimSpace(r.stdout))
}

func TestWhoamiExplain(t *testing.T) {
	testEnv(t)

	r := run(t, "", "-o", "json", "whoami", "--explain")
	require.NoError(t, r.err)

	var got struct {
		Data []candidateRow `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &got))
	require.NotEmpty(t, got.Data)
	assert.Equal(t, candidateRow{Source: "env", Value: "alice", Selected: true}, got.Data[0])

	last := got.Data[len(got.Data)-1]
	assert.Equal(t, "fallback", last.Source)
	assert.Equal(t, "nbsecrets", last.Value)
	assert.False(t, last.Selected)
}

func TestWhoamiIdentityFromConfig(t *testing.T) {
	testEnv(t)
	t.Setenv("NBSECRETS_USER", "")
	require.NoError(t, run(t, "", "config", "set", "identity", "carol").err)

	r := run(t, "", "whoami")
	require.NoError(t, r.err)
	assert.Equal(t, "carol\n", r.stdout)
}

func TestConfigCommands(t *testing.T) {
	configPath := testEnv(t)

	r := run(t, "", "config", "set", "backend", "bogus")
	assert.Equal(t, output.ExitUsage, exitCode(t, r.err))

	r = run(t, "", "config", "set", "nope", "x")
	assert.Equal(t, output.ExitUsage, exitCode(t, r.err))

	require.NoError(t, run(t, "", "config", "set", "fallback_identity", "notebook").err)
	r = run(t, "", "config", "get", "fallback_identity")
	require.NoError(t, r.err)
	assert.Equal(t, "notebook\n", r.stdout)

	r = run(t, "", "config", "set", "client_secret", "abcdefgh")
	require.NoError(t, r.err)
	assert.Contains(t, r.stderr, "****efgh")
	assert.NotContains(t, r.stderr, "abcdefgh")

	r = run(t, "", "config", "list")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "fallback_identity\tnotebook")
	assert.Contains(t, r.stdout, "client_secret\t****efgh")

	require.NoError(t, run(t, "", "config", "unset", "fallback_identity").err)
	r = run(t, "", "config", "get", "fallback_identity")
	require.NoError(t, r.err)
	assert.Equal(t, "\n", r.stdout)

	r = run(t, "", "config", "path")
	require.NoError(t, r.err)
	assert.Equal(t, configPath+"\n", r.stdout)
	assert.Contains(t, r.stderr, "file exists")
}

func TestInvalidConfigFile(t *testing.T) {
	configPath := testEnv(t)
	require.NoError(t, os.WriteFile(configPath, []byte("{broken"), 0600))

	r := run(t, "", "whoami")
	assert.Equal(t, output.ExitConfigError, exitCode(t, r.err))

	var cliErr *output.CLIError
	require.ErrorAs(t, r.err, &cliErr)
	assert.Equal(t, "Check the file at: "+configPath, cliErr.Hint)
}

func TestConfigFileFlagOverridesEnv(t *testing.T) {
	testEnv(t)
	other := filepath.Join(t.TempDir(), "other.json5")
	require.NoError(t, os.WriteFile(other, []byte(`{fallback_identity: "from-flag"}`), 0600))

	r := run(t, "", "--config-file", other, "config", "get", "fallback_identity")
	require.NoError(t, r.err)
	assert.Equal(t, "from-flag\n", r.stdout)

	r = run(t, "", "config", "get", "fallback_identity")
	require.NoError(t, r.err)
	assert.Equal(t, "\n", r.stdout)
}

func TestConfigFileFlagErrorNamesFlagPath(t *testing.T) {
	testEnv(t)
	other := filepath.Join(t.TempDir(), "broken.json5")
	require.NoError(t, os.WriteFile(other, []byte("{broken"), 0600))

	r := run(t, "", "--config-file", other, "whoami")
	var cliErr *output.CLIError
	require.ErrorAs(t, r.err, &cliErr)
	assert.Equal(t, output.ExitConfigError, cliErr.ExitCode)
	assert.Equal(t, "Check the file at: "+other, cliErr.Hint)
}

func TestVerboseLogsDebug(t *testing.T) {
	testEnv(t)

	r := run(t, "", "set", "db", "x")
	require.NoError(t, r.err)
	assert.NotContains(t, r.stderr, "opening store")

	r = run(t, "", "-v", "set", "db", "x")
	require.NoError(t, r.err)
	assert.Contains(t, r.stderr, "DBG")
	assert.Contains(t, r.stderr, "opening store")
}

func TestAuthStatusWithoutClient(t *testing.T) {
	testEnv(t)

	r := run(t, "", "-o", "json", "auth", "status")
	require.NoError(t, r.err)
	assert.JSONEq(t, `{"logged_in":false,"account":"","valid":"unknown","expiry":"n/a"}`, r.stdout)
}

func TestAuthLoginRequiresClient(t *testing.T) {
	testEnv(t)

	r := run(t, "", "auth", "login", "--manual")
	assert.Equal(t, output.ExitConfigError, exitCode(t, r.err))
}

func TestVersion(t *testing.T) {
	testEnv(t)

	r := run(t, "", "version")
	require.NoError(t, r.err)
	assert.Equal(t, "nbsecrets version 1.2.3\n", r.stdout)
}

func TestSchema(t *testing.T) {
	testEnv(t)

	r := run(t, "", "schema", "get")
	require.NoError(t, r.err)

	var node SchemaNode
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &node))
	assert.Equal(t, "get", node.Name)
	require.Len(t, node.Args, 1)
	assert.Equal(t, "service", node.Args[0].Name)

	r = run(t, "", "schema", "nope")
	assert.Equal(t, output.ExitUsage, exitCode(t, r.err))
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected string
	}{
		{name: "empty", value: "", expected: ""},
		{name: "short", value: "abc", expected: "****"},
		{name: "exactly 4", value: "abcd", expected: "****"},
		{name: "long", value: "supersecret", expected: "****cret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, maskSecret(tt.value))
		})
	}
}

func TestServiceNames(t *testing.T) {
	entries := []secrets.Entry{
		{Service: "api", Username: "alice"},
		{Service: "api", Username: "bob"},
		{Service: "db", Username: "alice"},
	}
	assert.Equal(t, []string{"api", "db"}, serviceNames(entries))
	assert.Nil(t, serviceNames(nil))
}
