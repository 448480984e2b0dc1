package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultOutputCap, cfg.OutputCap())
	require.Equal(t, DefaultRunRetention, cfg.RunRetention())
	require.Equal(t, uint64(DefaultRetryAttempts), cfg.RetryPolicy().MaxAttempts)
	require.Equal(t, DefaultRetryDelay, cfg.RetryPolicy().Delay)
}

func TestLoadFullConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
projectName: shop
workDir: /srv/shop
buildCommand: make build
testCommand: make test
outputBufferBytes: 65536
runRetention: 30m
debugAdapterAddr: 127.0.0.1:5005
timeouts:
  build: 3m
  debug: 5s
resultRetry:
  attempts: 8
  delay: 50ms
runConfigurations:
  - name: Server
    command: [./bin/server, --port, "8080"]
    dir: /srv/shop
    env: [MODE=dev]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "shop", cfg.ProjectName)
	require.Equal(t, "make build", cfg.BuildCommand)
	require.Equal(t, 65536, cfg.OutputCap())
	require.Equal(t, 30*time.Minute, cfg.RunRetention())
	require.Equal(t, "127.0.0.1:5005", cfg.DebugAdapterAddr)

	timeouts := cfg.ServiceTimeouts()
	require.Equal(t, 3*time.Minute, timeouts.Build)
	require.Equal(t, 5*time.Second, timeouts.Debug)
	// Unset fields fall back to service defaults.
	require.Equal(t, 10*time.Minute, timeouts.Test)

	retry := cfg.RetryPolicy()
	require.Equal(t, uint64(8), retry.MaxAttempts)
	require.Equal(t, 50*time.Millisecond, retry.Delay)

	require.Len(t, cfg.RunConfigs, 1)
	require.Equal(t, "Server", cfg.RunConfigs[0].Name)
	require.Equal(t, []string{"./bin/server", "--port", "8080"}, cfg.RunConfigs[0].Command)
}

func TestLoadRejectsBadRunConfigs(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, "runConfigurations:\n  - name: \"\"\n    command: [x]\n"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "runConfigurations:\n  - name: a\n    command: []\n"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "runConfigurations:\n  - name: a\n    command: [x]\n  - name: a\n    command: [y]\n"))
	require.Error(t, err)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, "projectName: [unclosed"))
	require.Error(t, err)
}

func TestBadDurationFallsBack(t *testing.T) {
	t.Parallel()

	cfg := &Config{RawRunRetention: "soon"}
	require.Equal(t, DefaultRunRetention, cfg.RunRetention())
}
