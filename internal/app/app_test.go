package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/eiannone/keyboard"
	"github.com/specialistvlad/scopyflow/internal/builder"
	"github.com/specialistvlad/scopyflow/internal/recorder"
	"github.com/specialistvlad/scopyflow/internal/topblock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const generatorSession = `
variable "gain" {
	type    = number
	default = 3
}

signal_path "gen" {
	proxy "signal_source" "src" {
		waveform  = "const"
		amplitude = 2
	}
	proxy "scale_offset" "so" {
		scale  = var.gain
		offset = 1
	}
	proxy "throttle" "t" {
		rate = 100000
	}
}

signal_path "demo" {
	proxy "float_channel" "ch" {
		device  = "adc"
		channel = "voltage2"
	}
}

device "adc" {
	uri = "sim:demo"
}

capture {
	samples = 32
}
`

func TestRun_OneShot(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	cfg := &Config{SessionPath: WriteSession(t, generatorSession)}
	a, logs := SetupAppTest(t, cfg, nil)

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	out := logs.String()
	assert.Contains(t, out, "path=gen samples=32 min=7 max=7 mean=7")
	assert.Contains(t, out, "path=demo samples=32")
	assert.Contains(t, out, "Execution finished.")
}

func TestRun_VariableOverride(t *testing.T) {
	t.Parallel()
	cfg := &Config{SessionPath: WriteSession(t, generatorSession), Vars: map[string]any{"gain": "0.5"}}
	a, logs := SetupAppTest(t, cfg, nil)

	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, logs.String(), "path=gen samples=32 min=2 max=2 mean=2")
}

func TestRun_StreamingRecordsEveryPath(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := filepath.Join(t.TempDir(), "rec")
	cfg := &Config{
		SessionPath: WriteSession(t, generatorSession),
		RecordDir:   dir,
		Duration:    80 * time.Millisecond,
	}
	a, logs := SetupAppTest(t, cfg, nil)

	// --- Act ---
	require.NoError(t, a.Run(context.Background()))

	// --- Assert ---
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	paths := map[string]bool{}
	for _, e := range entries {
		rows, meta, err := recorder.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		assert.NotEmpty(t, rows)
		assert.Equal(t, a.SessionID().String(), meta.Session)
		paths[meta.Path] = true
	}
	assert.Equal(t, map[string]bool{"gen": true, "demo": true}, paths)
	assert.Contains(t, logs.String(), "Streaming run finished.")
	assert.Contains(t, logs.String(), "Recording finished.")
}

func TestRun_BuildError(t *testing.T) {
	t.Parallel()
	cfg := &Config{SessionPath: WriteSession(t, `
		signal_path "p" {
			proxy "float_channel" "c" {
				device  = "missing"
				channel = "voltage0"
			}
		}`)}
	a, _ := SetupAppTest(t, cfg, nil)

	err := a.Run(context.Background())
	require.ErrorContains(t, err, "failed to build session")
	require.ErrorContains(t, err, `device "missing" is not declared`)
}

func TestNewApp_PanicsOnBrokenSession(t *testing.T) {
	t.Parallel()
	cfg := &Config{SessionPath: WriteSession(t, `signal_path "p" {`)}
	defer func() {
		r := recover()
		require.NotNil(t, r, "NewApp should panic on a session that does not parse")
		err, ok := r.(error)
		require.True(t, ok)
		require.ErrorContains(t, err, "failed to load session")
	}()
	SetupAppTest(t, cfg, nil)
}

func TestNewApp_Scanner(t *testing.T) {
	t.Parallel()

	t.Run("Success: disabled without flag or scan block", func(t *testing.T) {
		t.Parallel()
		a, _ := SetupAppTest(t, &Config{SessionPath: WriteSession(t, `signal_path "p" {}`)}, nil)
		assert.Nil(t, a.scanner)
	})

	t.Run("Success: flag enables the backend scan", func(t *testing.T) {
		t.Parallel()
		cfg := &Config{SessionPath: WriteSession(t, `signal_path "p" {}`), Scan: true, ScanSchemes: []string{"sim"}}
		a, _ := SetupAppTest(t, cfg, nil)
		require.NotNil(t, a.scanner)
		r := a.scanner.ScanOnce(context.Background())
		require.NoError(t, r.Err)
		assert.Equal(t, []string{"sim:demo"}, r.URIs)
	})
}

func TestHandleKey(t *testing.T) {
	// --- Arrange ---
	cfg := &Config{SessionPath: WriteSession(t, generatorSession)}
	a, logs := SetupAppTest(t, cfg, nil)

	ctx := context.Background()
	s, err := builder.Build(ctx, a.model, a.registry, a.converter, a.devices)
	require.NoError(t, err)
	defer s.Close()

	m := topblock.New(ctx, "console")
	s.Register(m)
	require.True(t, m.Built())
	gen := s.Paths()[0]

	// --- Act & Assert ---
	assert.False(t, a.handleKey(m, s, keyPress{char: '1'}))
	assert.False(t, gen.Enabled())
	assert.Contains(t, logs.String(), "path=gen enabled=false")

	assert.False(t, a.handleKey(m, s, keyPress{char: '1'}))
	assert.True(t, gen.Enabled())

	assert.False(t, a.handleKey(m, s, keyPress{char: '9'}))
	assert.Contains(t, logs.String(), "No signal path with that number.")

	assert.False(t, a.handleKey(m, s, keyPress{key: keyboard.KeySpace}))
	assert.True(t, m.Running())
	assert.False(t, a.handleKey(m, s, keyPress{key: keyboard.KeySpace}))
	assert.False(t, m.Running())

	assert.False(t, a.handleKey(m, s, keyPress{char: 's'}))
	assert.Contains(t, logs.String(), "Engine status.")

	assert.True(t, a.handleKey(m, s, keyPress{char: 'q'}))
	assert.True(t, a.handleKey(m, s, keyPress{key: keyboard.KeyCtrlC}))
}
