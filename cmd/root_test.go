// File: cmd/root_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/clickassist/internal/config"
)

// executeCommand runs a fresh command tree and returns everything it wrote.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rootCmd := NewRootCommand()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// writeFile creates a file under the test's temp dir.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "clickassist version "+Version)
}

func TestVersionCmd(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "clickassist version "+Version+"\n", out)
}

func TestRootCmd_NoArgs(t *testing.T) {
	out, err := executeCommand(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Adaptive click assist and cursor damping engine.")
}

func TestConfigCmd_PrintsDefaults(t *testing.T) {
	cfgFile := writeFile(t, "config.yaml", "{}\n")
	out, err := executeCommand(t, "--config", cfgFile, "config")
	require.NoError(t, err)

	var got config.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	if diff := cmp.Diff(config.NewDefaultConfig(), &got); diff != "" {
		t.Errorf("printed config mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigCmd_Precedence(t *testing.T) {
	cfgFile := writeFile(t, "config.yaml", `
assist:
  burst_max: 3
  hold_max: 40ms
damping:
  multiplier: 0.4
`)
	t.Setenv("CLICKASSIST_ASSIST_HOLD_MAX", "25ms")

	out, err := executeCommand(t, "--config", cfgFile, "config")
	require.NoError(t, err)

	var got config.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, 3, got.AssistCfg.BurstMax, "file overrides default")
	assert.Equal(t, 25*time.Millisecond, got.AssistCfg.HoldMax, "env overrides file")
	assert.Equal(t, 0.4, got.DampingCfg.Multiplier)
	assert.Equal(t, 2, got.AssistCfg.BurstMin, "untouched keys keep defaults")
}

func TestRootCmd_ConfigErrors(t *testing.T) {
	t.Run("invalid values", func(t *testing.T) {
		cfgFile := writeFile(t, "config.yaml", "damping:\n  multiplier: 2\n")
		_, err := executeCommand(t, "--config", cfgFile, "config")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "damping.multiplier")
	})

	t.Run("explicit file missing", func(t *testing.T) {
		_, err := executeCommand(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "config")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error reading config file")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		cfgFile := writeFile(t, "config.yaml", "assist: [unclosed\n")
		_, err := executeCommand(t, "--config", cfgFile, "config")
		assert.Error(t, err)
	})
}

func TestConfigFromContext(t *testing.T) {
	_, err := configFromContext(context.Background())
	assert.Error(t, err)

	cfg := config.NewDefaultConfig()
	got, err := configFromContext(context.WithValue(context.Background(), configKey, config.Interface(cfg)))
	require.NoError(t, err)
	assert.Same(t, cfg, got)
}
