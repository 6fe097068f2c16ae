package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/scopyflow/internal/app"
	"github.com/specialistvlad/scopyflow/internal/device"
	"github.com/specialistvlad/scopyflow/internal/hcl"
	"github.com/specialistvlad/scopyflow/internal/registry"
	"github.com/stretchr/testify/require"
)

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Err       error
	App       *app.App
}

// RunSession provides a standardized harness for running a whole session
// using a default background context. files maps relative paths to HCL.
func RunSession(t *testing.T, files map[string]string, cfg app.Config, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunSessionWithContext(context.Background(), t, files, cfg, modules...)
}

// RunSessionWithContext is RunSession with a caller supplied context. The
// devices are SimDevices(); a panic during startup is returned as Err.
func RunSessionWithContext(ctx context.Context, t *testing.T, files map[string]string, cfg app.Config, modules ...registry.Module) *HarnessResult {
	t.Helper()

	// 1. Write all HCL files to a temporary session directory.
	dir := t.TempDir()
	for name, content := range files {
		filePath := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}

	// 2. Point the app at it, logging everything.
	cfg.SessionPath = dir
	cfg.LogLevel = "debug"
	cfg.LogFormat = "text"

	logBuffer := &app.SafeBuffer{}

	var testApp *app.App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				if os.Getenv("SCOPYFLOW_TEST_LOGS") == "true" {
					t.Logf("--- HARNESS RECOVERED PANIC ---\n%q", fmt.Sprintf("%v", r))
				}
				panicErr = r
			}
		}()
		testApp = app.NewApp(logBuffer, &cfg, hcl.NewLoader(cfg.Vars), SimDevices(), modules...)
	}()

	if panicErr != nil {
		return &HarnessResult{
			LogOutput: logBuffer.String(),
			Err:       fmt.Errorf("application startup panicked | %v", panicErr),
		}
	}

	runErr := testApp.Run(ctx)

	if os.Getenv("SCOPYFLOW_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Err:       runErr,
		App:       testApp,
	}
}

// SimDevices returns a device registry with the simulated context
// "sim:bench": one device "bench-adc" whose constant channels read 0.5
// (voltage0), -0.25 (voltage1) and 1 (voltage2) after scaling.
func SimDevices() *device.Registry {
	sim := device.NewSim()
	sim.Plug("bench", device.SimDevice{
		Name: "bench-adc",
		Channels: []device.SimChannel{
			constChannel("voltage0", 1024),
			constChannel("voltage1", -512),
			constChannel("voltage2", 2048),
		},
	})
	return device.NewRegistry(sim)
}
