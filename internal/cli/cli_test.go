package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/scopyflow/internal/app"
	"github.com/specialistvlad/scopyflow/internal/prefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_NoSessionPrintsUsage(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{nil, {"-h"}} {
		out := &bytes.Buffer{}
		cfg, shouldExit, err := Parse(args, out)

		require.NoError(t, err)
		assert.True(t, shouldExit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	}
}

func TestParse_Defaults(t *testing.T) {
	t.Parallel()

	// --- Act ---
	cfg, shouldExit, err := Parse([]string{"session.hcl"}, &bytes.Buffer{})

	// --- Assert ---
	require.NoError(t, err)
	require.False(t, shouldExit)
	want := &app.Config{
		SessionPath: "session.hcl",
		LogFormat:   "text",
		LogLevel:    "info",
		Samples:     1024,
		ScanPeriod:  5 * time.Second,
		ScanSchemes: []string{"sim"},
		Vars:        map[string]any{},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_SessionFlagsWinOverPositional(t *testing.T) {
	t.Parallel()

	cfg, _, err := Parse([]string{"-s", "short.hcl", "positional.hcl"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "short.hcl", cfg.SessionPath)

	cfg, _, err = Parse([]string{"-session", "long.hcl", "-s", "short.hcl"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "long.hcl", cfg.SessionPath)
}

func TestParse_FlagsOverridePreferences(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	prefsPath := filepath.Join(t.TempDir(), "scopyflow.ini")
	require.NoError(t, os.WriteFile(prefsPath, []byte(`
[general]
log_level = debug
samples   = 64

[scan]
enabled = true
schemes = sim,ip

[monitor]
port = 9000
`), 0o600))

	// --- Act ---
	cfg, _, err := Parse([]string{
		"-prefs", prefsPath,
		"-log-level", "WARN",
		"-scan-schemes", "sim",
		"-var", "gain=2",
		"-var", "label=a=b",
		"main.hcl",
	}, &bytes.Buffer{})

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel, "flag should win over the file")
	assert.Equal(t, 64, cfg.Samples, "file should win over the default")
	assert.Equal(t, 9000, cfg.MonitorPort)
	assert.True(t, cfg.Scan)
	assert.Equal(t, []string{"sim"}, cfg.ScanSchemes)
	assert.Equal(t, prefsPath, cfg.PrefsPath)
	assert.Equal(t, map[string]any{"gain": "2", "label": "a=b"}, cfg.Vars)
}

func TestParse_SavePrefs(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	prefsPath := filepath.Join(t.TempDir(), "conf", "scopyflow.ini")

	// --- Act ---
	_, _, err := Parse([]string{
		"-prefs", prefsPath,
		"-save-prefs",
		"-samples", "32",
		"-log-format", "JSON",
		"-scan-schemes", "sim:ip",
		"-scan-period", "2s",
		"-record-dir", "/tmp/rec",
		"main.hcl",
	}, &bytes.Buffer{})
	require.NoError(t, err)

	// --- Assert ---
	saved, err := prefs.Load(prefsPath)
	require.NoError(t, err)
	want := prefs.Default()
	want.General.Samples = 32
	want.General.LogFormat = "json"
	want.Scan.Schemes = []string{"sim", "ip"}
	want.Scan.Period = 2 * time.Second
	want.Record.Dir = "/tmp/rec"
	if diff := cmp.Diff(want, saved); diff != "" {
		t.Errorf("saved preferences mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	badPrefs := filepath.Join(t.TempDir(), "bad.ini")
	require.NoError(t, os.WriteFile(badPrefs, []byte("[monitor]\nport = high\n"), 0o600))

	cases := []struct {
		name        string
		args        []string
		wantCode    int
		errContains string
	}{
		{"unknown flag", []string{"-nope", "x.hcl"}, 2, "flag provided but not defined"},
		{"log format", []string{"-log-format", "xml", "x.hcl"}, 2, "invalid log-format"},
		{"log level", []string{"-log-level", "trace", "x.hcl"}, 2, "invalid log-level"},
		{"samples", []string{"-samples", "0", "x.hcl"}, 2, "invalid samples"},
		{"scan period", []string{"-scan-period", "0s", "x.hcl"}, 2, "invalid scan-period"},
		{"malformed var", []string{"-var", "gain", "x.hcl"}, 2, "expected name=value"},
		{"negative duration", []string{"-duration", "-1s", "x.hcl"}, 2, "Duration cannot be negative"},
		{"save without prefs", []string{"-save-prefs", "x.hcl"}, 2, "-save-prefs requires -prefs"},
		{"broken prefs file", []string{"-prefs", badPrefs, "x.hcl"}, 2, "preferences: monitor.port"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg, shouldExit, err := Parse(tc.args, &bytes.Buffer{})

			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.False(t, shouldExit)
			exitErr, ok := err.(*ExitError)
			require.True(t, ok, "expected *ExitError, got %T", err)
			assert.Equal(t, tc.wantCode, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.errContains)
		})
	}
}
