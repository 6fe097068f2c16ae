package app

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/specialistvlad/scopyflow/internal/blocks"
	"github.com/specialistvlad/scopyflow/internal/builder"
	"github.com/specialistvlad/scopyflow/internal/device"
	"github.com/specialistvlad/scopyflow/internal/scan"
	"github.com/specialistvlad/scopyflow/internal/topblock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyBackend is the simulated backend with a switch that makes every
// buffer of its devices fail to open.
type flakyBackend struct {
	*device.Sim
	down atomic.Bool
}

func (b *flakyBackend) Open(ctx context.Context, uri string) (device.Context, error) {
	c, err := b.Sim.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	return &flakyContext{Context: c, b: b}, nil
}

type flakyContext struct {
	device.Context
	b *flakyBackend
}

func (c *flakyContext) Devices() []device.Device {
	var out []device.Device
	for _, d := range c.Context.Devices() {
		out = append(out, &flakyDevice{Device: d, b: c.b})
	}
	return out
}

func (c *flakyContext) FindDevice(name string) (device.Device, error) {
	d, err := c.Context.FindDevice(name)
	if err != nil {
		return nil, err
	}
	return &flakyDevice{Device: d, b: c.b}, nil
}

type flakyDevice struct {
	device.Device
	b *flakyBackend
}

func (d *flakyDevice) OpenBuffer(channels []string, samples int) (device.Buffer, error) {
	if d.b.down.Load() {
		return nil, errors.New("usb transfer failed")
	}
	return d.Device.OpenBuffer(channels, samples)
}

const benchSession = `
device "adc" {
	uri = "sim:bench"
}

signal_path "p" {
	proxy "float_channel" "c" {
		device  = "adc"
		channel = "voltage0"
	}
}
`

func TestHandleScan_ReconnectsFaultedDevice(t *testing.T) {
	// --- Arrange ---
	backend := &flakyBackend{Sim: device.NewSim()}
	backend.Plug("bench", device.SimDevice{
		Name: "adc0",
		Channels: []device.SimChannel{{
			ID:    "voltage0",
			Scale: 1,
			Wave:  blocks.SourceParams{Waveform: blocks.WaveConst, Amplitude: 1},
		}},
	})
	cfg := &Config{SessionPath: WriteSession(t, benchSession)}
	a, logs := SetupAppTest(t, cfg, device.NewRegistry(backend))

	ctx := context.Background()
	s, err := builder.Build(ctx, a.model, a.registry, a.converter, a.devices)
	require.NoError(t, err)
	defer s.Close()
	src, ok := s.DeviceSource("adc")
	require.True(t, ok)

	m := topblock.New(ctx, "scan")
	defer func() {
		_ = m.Stop()
		m.Teardown()
	}()
	backend.down.Store(true)
	s.Register(m)
	require.NoError(t, m.Start())
	require.Error(t, src.Fault())

	collector := scan.NewCollector()
	collector.Pin("sim:bench")

	// --- Act & Assert ---
	// The device's context is not among the results: nothing to retry.
	a.handleScan(m, s, collector, scan.Result{URIs: []string{"sim:other", "sim:other"}})
	assert.Error(t, src.Fault())
	assert.Equal(t, 1, strings.Count(logs.String(), "Context found."))
	assert.NotContains(t, logs.String(), "Reconnecting device.")

	backend.down.Store(false)
	a.handleScan(m, s, collector, scan.Result{URIs: []string{"sim:bench"}})
	assert.NoError(t, src.Fault())
	assert.True(t, m.Running())
	assert.Contains(t, logs.String(), "Context lost.")
	assert.Equal(t, 1, strings.Count(logs.String(), "Reconnecting device."))

	// A healthy device is left alone.
	a.handleScan(m, s, collector, scan.Result{URIs: []string{"sim:bench"}})
	assert.Equal(t, 1, strings.Count(logs.String(), "Reconnecting device."))
}
