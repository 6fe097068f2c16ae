package device

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/specialistvlad/scopyflow/internal/blocks"
)

// SimScheme is the URI scheme of the simulated backend.
const SimScheme = "sim"

// SimChannel is a synthetic channel. Wave is expressed in raw codes.
type SimChannel struct {
	ID    string
	Scale float64
	Wave  blocks.SourceParams
}

// SimDevice describes a simulated device. Realtime paces refills to the
// channels' sample rate; otherwise buffers refill as fast as they are read.
type SimDevice struct {
	Name     string
	Channels []SimChannel
	Realtime bool
}

// Sim is an in-memory backend whose contexts can be plugged and unplugged
// at runtime.
type Sim struct {
	mu       sync.RWMutex
	contexts map[string][]SimDevice
}

func NewSim() *Sim {
	return &Sim{contexts: make(map[string][]SimDevice)}
}

func (s *Sim) Scheme() string {
	return SimScheme
}

// Plug makes a context named name with the given devices discoverable.
func (s *Sim) Plug(name string, devs ...SimDevice) {
	s.mu.Lock()
	s.contexts[name] = devs
	s.mu.Unlock()
}

// Unplug removes a context. Already opened contexts keep working.
func (s *Sim) Unplug(name string) {
	s.mu.Lock()
	delete(s.contexts, name)
	s.mu.Unlock()
}

func (s *Sim) Scan(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	uris := make([]string, 0, len(s.contexts))
	for name := range s.contexts {
		uris = append(uris, SimScheme+":"+name)
	}
	slices.Sort(uris)
	return uris, nil
}

func (s *Sim) Open(_ context.Context, uri string) (Context, error) {
	name, ok := strings.CutPrefix(uri, SimScheme+":")
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a sim uri", ErrUnknownBackend, uri)
	}
	s.mu.RLock()
	devs, ok := s.contexts[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: context %q", ErrNotFound, uri)
	}

	c := &simContext{uri: uri}
	for _, d := range devs {
		c.devices = append(c.devices, &simDevice{desc: d})
	}
	return c, nil
}

type simContext struct {
	uri     string
	devices []Device
}

func (c *simContext) URI() string       { return c.uri }
func (c *simContext) Devices() []Device { return c.devices }
func (c *simContext) Close() error      { return nil }

func (c *simContext) FindDevice(name string) (Device, error) {
	for _, d := range c.devices {
		if d.Name() == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: device %q in %s", ErrNotFound, name, c.uri)
}

type simDevice struct {
	desc SimDevice
}

func (d *simDevice) Name() string {
	return d.desc.Name
}

func (d *simDevice) Channels() []ChannelInfo {
	out := make([]ChannelInfo, len(d.desc.Channels))
	for i, ch := range d.desc.Channels {
		out[i] = ChannelInfo{ID: ch.ID, Scale: ch.Scale}
	}
	return out
}

func (d *simDevice) OpenBuffer(channels []string, samples int) (Buffer, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("invalid buffer size %d", samples)
	}
	b := &simBuffer{samples: samples, realtime: d.desc.Realtime}
	for _, id := range channels {
		idx := slices.IndexFunc(d.desc.Channels, func(c SimChannel) bool { return c.ID == id })
		if idx < 0 {
			return nil, fmt.Errorf("%w: channel %q on %s", ErrNotFound, id, d.desc.Name)
		}
		b.waves = append(b.waves, d.desc.Channels[idx].Wave)
	}
	return b, nil
}

type simBuffer struct {
	mu       sync.Mutex
	waves    []blocks.SourceParams
	samples  int
	index    int64
	realtime bool
	begin    time.Time
	closed   bool
}

func (b *simBuffer) Refill(ctx context.Context) ([][]float32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	if b.realtime && len(b.waves) > 0 && b.waves[0].SampleRate > 0 {
		if b.begin.IsZero() {
			b.begin = time.Now()
		}
		due := b.begin.Add(time.Duration(float64(b.index+int64(b.samples)) / b.waves[0].SampleRate * float64(time.Second)))
		if err := sleepUntil(ctx, due); err != nil {
			return nil, err
		}
	}

	out := make([][]float32, len(b.waves))
	for c, w := range b.waves {
		data := make([]float32, b.samples)
		for i := range data {
			data[i] = float32(math.Round(blocks.Sample(w, b.index+int64(i))))
		}
		out[c] = data
	}
	b.index += int64(b.samples)
	return out, ctx.Err()
}

func (b *simBuffer) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

func sleepUntil(ctx context.Context, t time.Time) error {
	wait := time.Until(t)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DemoDevice is a four channel simulated ADC used by the CLI defaults.
func DemoDevice(name string, sampleRate float64) SimDevice {
	wave := func(w blocks.Waveform, freq float64) blocks.SourceParams {
		return blocks.SourceParams{Waveform: w, SampleRate: sampleRate, Frequency: freq, Amplitude: 1024}
	}
	return SimDevice{
		Name:     name,
		Realtime: true,
		Channels: []SimChannel{
			{ID: "voltage0", Scale: 2048, Wave: wave(blocks.WaveSin, sampleRate/100)},
			{ID: "voltage1", Scale: 2048, Wave: wave(blocks.WaveCos, sampleRate/100)},
			{ID: "voltage2", Scale: 2048, Wave: wave(blocks.WaveSquare, sampleRate/50)},
			{ID: "voltage3", Scale: 2048, Wave: wave(blocks.WaveTriangle, sampleRate/200)},
		},
	}
}
