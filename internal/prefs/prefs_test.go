package prefs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	t.Parallel()
	p, err := Load(filepath.Join(t.TempDir(), "absent.ini"))
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), p); diff != "" {
		t.Errorf("preferences mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	path := filepath.Join(t.TempDir(), "prefs.ini")
	require.NoError(t, os.WriteFile(path, []byte(`
log_format = json
port = 8088

[general]
log_level = debug

[scan]
enabled = true
period  = 250ms
schemes = sim, ip

[record]
dir = /tmp/rec
`), 0o644))

	// --- Act ---
	p, err := Load(path)

	// --- Assert ---
	require.NoError(t, err)
	want := Preferences{
		General: General{LogLevel: "debug", LogFormat: "json", Samples: 1024},
		Scan:    Scan{Enabled: true, Period: 250 * time.Millisecond, Schemes: []string{"sim", "ip"}},
		Monitor: Monitor{Port: 8088},
		Record:  Record{Dir: "/tmp/rec"},
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("preferences mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveThenLoad(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "prefs.ini")
	p := Default()
	p.General.Samples = 64
	p.Scan.Enabled = true
	p.Scan.Schemes = []string{"ip", "usb"}
	p.Record.Dir = "captures"

	require.NoError(t, Save(path, p))
	got, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(p, got); diff != "" {
		t.Errorf("preferences mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name        string
		content     string
		errContains string
	}{
		{"bad int", "[monitor]\nport = eighty", "monitor.port"},
		{"bad bool", "[scan]\nenabled = perhaps", "scan.enabled"},
		{"bad duration", "[scan]\nperiod = often", "scan.period"},
		{"negative period", "[scan]\nperiod = -1s", "must be positive"},
		{"zero samples", "[general]\nsamples = 0", "samples must be positive"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "prefs.ini")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o644))
			_, err := Load(path)
			require.ErrorContains(t, err, tc.errContains)
		})
	}
}
