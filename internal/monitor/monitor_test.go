package monitor

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/specialistvlad/scopyflow/internal/blocks"
	"github.com/specialistvlad/scopyflow/internal/signalpath"
	"github.com/specialistvlad/scopyflow/internal/tap"
	"github.com/specialistvlad/scopyflow/internal/topblock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dial connects a websocket client and waits until the hub has registered it.
func dial(t *testing.T, s *Server, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	before := s.Clients()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return s.Clients() == before+1 }, time.Second, 5*time.Millisecond)
	return conn
}

func TestHealth(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(New(context.Background()).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK\n", string(body))
}

func TestBroadcastAndDisconnect(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	a, b := dial(t, s, ts), dial(t, s, ts)
	s.Broadcast(Status{Event: "started", Running: true, Built: true})

	for _, c := range []*websocket.Conn{a, b} {
		var got Status
		require.NoError(t, c.ReadJSON(&got))
		assert.Equal(t, Status{Event: "started", Running: true, Built: true}, got)
	}

	require.NoError(t, a.Close())
	require.Eventually(t, func() bool { return s.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Close())
	assert.Zero(t, s.Clients())
}

func TestStreamsTappedPaths(t *testing.T) {
	// --- Arrange ---
	ctx := context.Background()
	s := New(ctx)
	s.maxSamples = 8
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	conn := dial(t, s, ts)

	m := topblock.New(ctx, "monitor")
	defer s.Watch(m)()
	defer tap.New(ctx, m, s).Close()

	p := signalpath.New("gen")
	p.Append(signalpath.NewSignalSource(blocks.SourceParams{Waveform: blocks.WaveConst, Amplitude: 3}))
	p.Append(signalpath.NewThrottle(100000))

	// --- Act ---
	m.RegisterSignalPath(p)
	runCtx, cancel := context.WithTimeout(ctx, 40*time.Millisecond)
	defer cancel()
	require.NoError(t, m.Run(runCtx))

	// --- Assert ---
	var events []string
	var frame *Frame
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for frame == nil || !slices.Contains(events, "stopped") {
		var msg map[string]any
		require.NoError(t, conn.ReadJSON(&msg))
		if ev, ok := msg["event"].(string); ok {
			events = append(events, ev)
			continue
		}
		if frame == nil {
			frame = &Frame{Path: msg["path"].(string), Seq: uint64(msg["seq"].(float64))}
			for _, v := range msg["samples"].([]any) {
				frame.Samples = append(frame.Samples, float32(v.(float64)))
			}
		}
	}

	assert.Equal(t, Frame{Path: "gen", Seq: 1, Samples: []float32{3, 3, 3, 3, 3, 3, 3, 3}}, *frame)
	assert.Equal(t, []string{"about_to_build", "built_signal_paths", "about_to_start", "started"}, events[:4])
}
