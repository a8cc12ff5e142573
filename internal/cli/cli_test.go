package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenery/internal/greenery"
)

const oakRecord = `{"greenery_id":"g1","name":"Oak","phone":"555-1","email":"a@b.com","address":"1 Main St"}`

func setCLIHome(t *testing.T) string {
	t.Helper()

	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)
	t.Setenv("XDG_CONFIG_HOME", homeDir)
	return homeDir
}

// writeLocalConfig points the local backend at a temp dir and returns the
// config path and that dir.
func writeLocalConfig(t *testing.T) (string, string) {
	t.Helper()

	objectsDir := t.TempDir()
	configPath := filepath.Join(t.TempDir(), "config.toml")
	configText := fmt.Sprintf(`[storage]
backend = "local"
local_dir = %q

[log]
level = "error"
`, objectsDir)
	require.NoError(t, os.WriteFile(configPath, []byte(configText), 0o600))
	return configPath, objectsDir
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestCreateFromStdinThenRead(t *testing.T) {
	setCLIHome(t)
	configPath, objectsDir := writeLocalConfig(t)

	out, _, err := execute(t, oakRecord, "--config", configPath, "create")
	require.NoError(t, err)
	assert.Equal(t, "created general/g1.json\n", out)

	stored, err := os.ReadFile(filepath.Join(objectsDir, "general", "g1.json"))
	require.NoError(t, err)
	assert.Equal(t, oakRecord, string(stored))

	out, _, err = execute(t, "", "--config", configPath, "read", "g1")
	require.NoError(t, err)
	assert.Equal(t, oakRecord+"\n", out)
}

func TestCreateFromFile(t *testing.T) {
	setCLIHome(t)
	configPath, objectsDir := writeLocalConfig(t)

	recordPath := filepath.Join(t.TempDir(), "record.json")
	require.NoError(t, os.WriteFile(recordPath, []byte(oakRecord), 0o600))

	_, _, err := execute(t, "", "--config", configPath, "create", "--file", recordPath)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(objectsDir, "general", "g1.json"))
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	setCLIHome(t)
	configPath, objectsDir := writeLocalConfig(t)

	cases := []struct {
		name  string
		stdin string
		want  error
	}{
		{"traversal id", strings.Replace(oakRecord, `"g1"`, `"../x"`, 1), greenery.ErrInvalidID},
		{"only id", `{"greenery_id":"g2"}`, greenery.ErrMissingField},
		{"missing address", `{"greenery_id":"g2","name":"Oak","phone":"555-1","email":"a@b.com"}`, greenery.ErrMissingField},
		{"trailing data", oakRecord + " not json", greenery.ErrMalformedRequest},
		{"empty input", "", greenery.ErrMalformedRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := execute(t, tc.stdin, "--config", configPath, "create")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}

	entries, err := os.ReadDir(objectsDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCreateIgnoresUnknownFields(t *testing.T) {
	setCLIHome(t)
	configPath, objectsDir := writeLocalConfig(t)

	stdin := strings.Replace(oakRecord, `{`, `{"colour":"green",`, 1)
	_, _, err := execute(t, stdin, "--config", configPath, "create")
	require.NoError(t, err)

	stored, err := os.ReadFile(filepath.Join(objectsDir, "general", "g1.json"))
	require.NoError(t, err)
	assert.Equal(t, oakRecord, string(stored))
}

func TestReadMissingRecordFails(t *testing.T) {
	setCLIHome(t)
	configPath, _ := writeLocalConfig(t)

	_, _, err := execute(t, "", "--config", configPath, "read", "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, greenery.ErrNotFound), "got %v", err)
}

func TestReadRequiresExactlyOneID(t *testing.T) {
	setCLIHome(t)
	configPath, _ := writeLocalConfig(t)

	_, _, err := execute(t, "", "--config", configPath, "read")
	require.Error(t, err)
}

func TestCheckReportsBackend(t *testing.T) {
	setCLIHome(t)
	configPath, _ := writeLocalConfig(t)

	out, _, err := execute(t, "", "--config", configPath, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "local object store reachable")
}

func TestEnvironmentOverridesConfigFile(t *testing.T) {
	setCLIHome(t)
	configPath, _ := writeLocalConfig(t)
	overrideDir := t.TempDir()
	t.Setenv("GREENERY_STORAGE_LOCAL_DIR", overrideDir)

	_, _, err := execute(t, oakRecord, "--config", configPath, "create")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(overrideDir, "general", "g1.json"))
}

func TestInvalidConfigFails(t *testing.T) {
	setCLIHome(t)
	configPath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("[storage]\nbackend = \"ftp\"\n"), 0o600))

	_, _, err := execute(t, "", "--config", configPath, "check")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestLogLevelFlagIsValidated(t *testing.T) {
	setCLIHome(t)
	configPath, _ := writeLocalConfig(t)

	_, _, err := execute(t, "", "--config", configPath, "--log-level", "chatty", "check")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply config overrides")
}

func TestServeRejectsRemoteListenerWithoutFlag(t *testing.T) {
	setCLIHome(t)
	configPath, _ := writeLocalConfig(t)

	_, _, err := execute(t, "", "--config", configPath, "--listen-addr", "0.0.0.0:5000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--allow-remote")
}

func TestUnknownCommandFails(t *testing.T) {
	setCLIHome(t)

	_, _, err := execute(t, "", "nope")
	require.Error(t, err)
}
