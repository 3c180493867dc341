package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/micropods"
)

func TestDistDir(t *testing.T) {
	assert.Equal(t, "pods/dashboard/dist", distDir("pods/{pod}/dist", "pod_dashboard"))
	assert.Equal(t, "build", distDir("build", "pod_ui"))
	assert.Empty(t, distDir("", "pod_ui"))
}

func TestServedPods(t *testing.T) {
	composed := []string{"pod_shell", "pod_ui", "pod_dashboard"}
	assert.Equal(t, []string{"pod_ui", "pod_dashboard"}, servedPods(composed, "pod_shell", nil))
	assert.Equal(t, []string{"pod_ui", "pod_dashboard"}, servedPods(composed, "shell", nil))
	assert.Equal(t, []string{"shell"}, servedPods(composed, "pod_shell", []string{"shell"}))
}

func TestServeDefaultsLeaveShellPortFree(t *testing.T) {
	cfg := micropods.DefaultConfig()
	comp, err := cfg.Compose(nil)
	require.NoError(t, err)
	for _, name := range servedPods(comp.Names(), cfg.Shell.Pod, nil) {
		d, err := comp.Descriptor(name)
		require.NoError(t, err)
		assert.NotEqual(t, cfg.Shell.Port, d.Port, name)
	}
}

func TestLoggerLevel(t *testing.T) {
	buf := new(bytes.Buffer)
	c := &cobra.Command{}
	c.SetErr(buf)

	opts := &globalOptions{logLevel: "warn"}
	logger := opts.logger(c)
	assert.False(t, logger.Enabled(context.Background(), -4))
	logger.Info("hidden")
	logger.Warn("shown", "pod", "pod_ui")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "pod=pod_ui")
}

func TestOsExitIsReplaceable(t *testing.T) {
	orig := OsExit
	defer func() { OsExit = orig }()

	code := -1
	OsExit = func(c int) { code = c }
	OsExit(3)
	assert.Equal(t, 3, code)
}
