package recorder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/scopyflow/internal/blocks"
	"github.com/specialistvlad/scopyflow/internal/signalpath"
	"github.com/specialistvlad/scopyflow/internal/tap"
	"github.com/specialistvlad/scopyflow/internal/topblock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_WritesEveryTappedPath(t *testing.T) {
	// --- Arrange ---
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "rec")
	rec, err := New(ctx, dir, "session-1")
	require.NoError(t, err)

	m := topblock.New(ctx, "recording")
	defer tap.New(ctx, m, rec).Close()

	p := signalpath.New("ch/0")
	p.Append(signalpath.NewSignalSource(blocks.SourceParams{Waveform: blocks.WaveConst, Amplitude: 3}))
	p.Append(signalpath.NewThrottle(100000))
	m.RegisterSignalPath(p)

	// --- Act ---
	runCtx, cancel := context.WithTimeout(ctx, 60*time.Millisecond)
	defer cancel()
	require.NoError(t, m.Run(runCtx))
	m.Teardown()

	// --- Assert ---
	files := rec.Files()
	require.Len(t, files, 1)
	assert.Equal(t, rec.ID().String()+"-000-ch_0.parquet", filepath.Base(files[0]))

	rows, meta, err := ReadFile(files[0])
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	for i, r := range rows {
		require.Equal(t, int64(i), r.Index)
		require.Equal(t, []float32{3}, r.Values)
	}
	assert.Equal(t, Metadata{
		Recording: rec.ID().String(),
		Session:   "session-1",
		Path:      "ch/0",
		Build:     0,
		ItemSize:  1,
	}, meta)

	require.NoError(t, rec.Close())
}

func TestRecorder_NewFileEveryBuild(t *testing.T) {
	ctx := context.Background()
	rec, err := New(ctx, t.TempDir(), "")
	require.NoError(t, err)

	m := topblock.New(ctx, "recording")
	defer tap.New(ctx, m, rec).Close()

	p := signalpath.New("gen")
	p.Append(signalpath.NewSignalSource(blocks.SourceParams{Waveform: blocks.WaveConst}))
	m.RegisterSignalPath(p)
	m.Build()
	m.Rebuild()
	m.Teardown()

	files := rec.Files()
	require.Len(t, files, 2)
	assert.Contains(t, files[0], "-000-gen")
	assert.Contains(t, files[1], "-001-gen")
	for _, f := range files {
		_, err := os.Stat(f)
		require.NoError(t, err)
		rows, meta, err := ReadFile(f)
		require.NoError(t, err)
		assert.Empty(t, rows, "never ran, nothing recorded")
		assert.Equal(t, "gen", meta.Path)
	}
	require.NoError(t, rec.Close())
}
