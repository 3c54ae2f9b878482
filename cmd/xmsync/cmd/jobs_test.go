package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/Sternrassler/xmatters-sync/internal/testutil"
	"github.com/Sternrassler/xmatters-sync/internal/xmatters"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobCommandFlags(t *testing.T) {
	tests := []struct {
		cmd  string
		flag string
	}{
		{"activate-devices", "dry-run"},
		{"team-regions", "apply"},
		{"responses", "date"},
	}

	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			c, _, err := rootCmd.Find([]string{tt.cmd})
			require.NoError(t, err)
			assert.Equal(t, tt.cmd, c.Name())
			assert.NotNil(t, c.Flags().Lookup(tt.flag))
			assert.NotNil(t, c.RunE)
		})
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xmsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func resetFlags(t *testing.T) {
	t.Cleanup(func() {
		cfgFile = "xmsync.yaml"
		envFile = ""
		logLevel = ""
		threads = 0
		noColor = false
		dryRun = false
		applyUpdates = false
		responsesDate = ""
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
}

func TestActivateDevices_DryRunEndToEnd(t *testing.T) {
	resetFlags(t)

	mock := testutil.NewMockXMatters()
	defer mock.Close()
	mock.AddDevices(
		xmatters.Device{ID: "d1", TargetName: "alice|Work Email", DeviceType: xmatters.DeviceTypeEmail, Status: xmatters.StatusInactive},
		xmatters.Device{ID: "d2", TargetName: "bob|Work Email", DeviceType: xmatters.DeviceTypeEmail, Status: xmatters.StatusActive},
	)

	path := writeConfig(t, fmt.Sprintf(`
environment:
  url: %s
  username: integration
  password: secret
logging:
  level: error
devices:
  page_size: 10
  thread_count: 2
`, mock.URL()))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"activate-devices", "--config", path, "--dry-run", "--no-color"})

	require.NoError(t, rootCmd.Execute())

	assert.Empty(t, mock.GetPosts())
	assert.Contains(t, out.String(), "alice|Work Email")
	assert.Contains(t, out.String(), "plan")
}

func TestJobCommand_ConfigErrors(t *testing.T) {
	resetFlags(t)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)

	rootCmd.SetArgs([]string{"import-users", "--config", filepath.Join(t.TempDir(), "missing.yaml")})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")

	path := writeConfig(t, "environment:\n  url: https://acme.xmatters.com\n")
	rootCmd.SetArgs([]string{"import-users", "--config", path})
	err = rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "environment.username")
}

func TestJobCommand_EnvFileSuppliesCredentials(t *testing.T) {
	resetFlags(t)
	t.Cleanup(func() { os.Unsetenv("XMSYNC_TEST_PASSWORD") })

	mock := testutil.NewMockXMatters()
	defer mock.Close()

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("XMSYNC_TEST_PASSWORD=from-env-file\n"), 0600))

	path := writeConfig(t, fmt.Sprintf(`
environment:
  url: %s
  username: integration
  password: ${XMSYNC_TEST_PASSWORD}
logging:
  level: error
`, mock.URL()))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"activate-devices", "--config", path, "--env-file", envPath, "--dry-run", "--no-color"})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "from-env-file", os.Getenv("XMSYNC_TEST_PASSWORD"))

	rootCmd.SetArgs([]string{"activate-devices", "--config", path, "--env-file", filepath.Join(dir, "missing.env")})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load env file")
}
