package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessagesCmd_PrintsPersistedLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.json")
	require.NoError(t, os.WriteFile(path, []byte(`["a","b"]`), 0o600))

	var out bytes.Buffer
	cmd := messagesCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--file", path})

	require.NoError(t, cmd.Execute())
	require.JSONEq(t, `["a","b"]`, out.String())
}

func TestMessagesCmd_MissingFileIsEmpty(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := messagesCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"--file", filepath.Join(t.TempDir(), "absent.json")})

	require.NoError(t, cmd.Execute())
	require.JSONEq(t, `[]`, out.String())
	require.Empty(t, errOut.String())
}

func TestMessagesCmd_MalformedFileWarns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.json")
	require.NoError(t, os.WriteFile(path, []byte(`{oops`), 0o600))

	var out, errOut bytes.Buffer
	cmd := messagesCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"--file", path})

	require.NoError(t, cmd.Execute())
	require.JSONEq(t, `[]`, out.String())
	require.Contains(t, errOut.String(), "warning")
}

func TestMessagesCmd_UsesMessagesFileFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "from-env.json")
	require.NoError(t, os.WriteFile(path, []byte(`["env"]`), 0o600))
	t.Setenv("MESSAGES_FILE", path)

	var out bytes.Buffer
	cmd := messagesCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--env-file", filepath.Join(dir, "absent.env")})

	require.NoError(t, cmd.Execute())
	require.JSONEq(t, `["env"]`, out.String())
}

func TestMessagesCmd_UsesMessagesFileFromEnvFile(t *testing.T) {
	const key = "MESSAGES_FILE"
	if _, preset := os.LookupEnv(key); preset {
		t.Skipf("%s already set in the environment", key)
	}
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	dir := t.TempDir()
	path := filepath.Join(dir, "from-dotenv.json")
	require.NoError(t, os.WriteFile(path, []byte(`["dotenv"]`), 0o600))
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(key+"="+path+"\n"), 0o600))

	var out bytes.Buffer
	cmd := messagesCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--env-file", envFile})

	require.NoError(t, cmd.Execute())
	require.JSONEq(t, `["dotenv"]`, out.String())
}

func TestMessagesCmd_FileFlagWinsOverEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MESSAGES_FILE", filepath.Join(dir, "ignored.json"))
	path := filepath.Join(dir, "flag.json")
	require.NoError(t, os.WriteFile(path, []byte(`["flag"]`), 0o600))

	var out bytes.Buffer
	cmd := messagesCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--file", path})

	require.NoError(t, cmd.Execute())
	require.JSONEq(t, `["flag"]`, out.String())
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := versionCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "relay dev")
}
