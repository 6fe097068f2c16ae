package iiosource

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/specialistvlad/scopyflow/internal/device"
	"github.com/specialistvlad/scopyflow/internal/flowgraph"
)

// DefaultBufferSize is the number of samples per channel and refill.
const DefaultBufferSize = 0x400

// ErrChannelNotBuilt is returned when a channel source connects to a
// channel the device source did not allocate.
var ErrChannelNotBuilt = errors.New("iiosource: channel not part of the built device source")

// channelUser is implemented by the channel sources of a DeviceSource.
type channelUser interface {
	requestedChannels() []string
}

// DeviceSource owns the acquisition block of one device.
type DeviceSource struct {
	dev        device.Device
	bufferSize int

	mu    sync.Mutex
	users []channelUser
	built bool
	blk   *acquisition
	ports map[string]int
	fault error
}

// NewDeviceSource wraps dev. A bufferSize of zero selects DefaultBufferSize.
func NewDeviceSource(dev device.Device, bufferSize int) *DeviceSource {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &DeviceSource{dev: dev, bufferSize: bufferSize}
}

func (d *DeviceSource) Name() string {
	return d.dev.Name()
}

// Enabled is always true; a device source is built whenever it is registered.
func (d *DeviceSource) Enabled() bool {
	return true
}

// Device returns the wrapped device.
func (d *DeviceSource) Device() device.Device {
	return d.dev
}

func (d *DeviceSource) addUser(u channelUser) {
	d.mu.Lock()
	d.users = append(d.users, u)
	d.mu.Unlock()
}

// Build allocates an acquisition block for the channels currently in use.
// A previous allocation is released first. No block is allocated when no
// channel is in use.
func (d *DeviceSource) Build(g *flowgraph.Graph) error {
	d.mu.Lock()
	users := slices.Clone(d.users)
	d.mu.Unlock()

	wanted := make(map[string]bool)
	for _, u := range users {
		for _, ch := range u.requestedChannels() {
			wanted[ch] = true
		}
	}

	var names []string
	for _, ch := range d.dev.Channels() {
		if wanted[ch.ID] {
			names = append(names, ch.ID)
			delete(wanted, ch.ID)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.built {
		d.releaseLocked(g)
	}
	if len(wanted) > 0 {
		missing := make([]string, 0, len(wanted))
		for ch := range wanted {
			missing = append(missing, ch)
		}
		slices.Sort(missing)
		return fmt.Errorf("%w: %v on %s", device.ErrNotFound, missing, d.dev.Name())
	}

	d.fault = nil
	d.ports = make(map[string]int, len(names))
	for i, ch := range names {
		d.ports[ch] = i
	}
	if len(names) > 0 {
		d.blk = &acquisition{
			name:     g.UniqueName("device_source"),
			dev:      d.dev,
			channels: names,
			samples:  d.bufferSize,
			fault:    d.setFault,
		}
	}
	d.built = true
	return nil
}

// Connect is a no-op: channel sources wire the acquisition block's ports.
func (d *DeviceSource) Connect(*flowgraph.Graph, flowgraph.Endpoint) error {
	return nil
}

// Disconnect removes every connection of the acquisition block.
func (d *DeviceSource) Disconnect(g *flowgraph.Graph) error {
	d.mu.Lock()
	blk := d.blk
	d.mu.Unlock()

	if blk == nil {
		return nil
	}
	_, err := g.DisconnectBlock(blk)
	return err
}

// Destroy releases the acquisition block. It is a no-op when not built.
func (d *DeviceSource) Destroy(g *flowgraph.Graph) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.built {
		return nil
	}
	d.releaseLocked(g)
	return nil
}

func (d *DeviceSource) releaseLocked(g *flowgraph.Graph) {
	if d.blk != nil {
		// Fails only on a running graph, which the manager never destroys on.
		_, _ = g.DisconnectBlock(d.blk)
	}
	d.blk = nil
	d.ports = nil
	d.built = false
}

func (d *DeviceSource) setFault(err error) {
	d.mu.Lock()
	d.fault = err
	d.mu.Unlock()
}

// Fault returns the acquisition error of the current build, or nil. The
// next Build clears it.
func (d *DeviceSource) Fault() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fault
}

func (d *DeviceSource) Built() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.built
}

// ChannelNames returns the channels of the current allocation in port order.
func (d *DeviceSource) ChannelNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.blk == nil {
		return nil
	}
	return slices.Clone(d.blk.channels)
}

// port returns the acquisition block and the output carrying ch.
func (d *DeviceSource) port(ch string) (flowgraph.Endpoint, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.ports[ch]
	if !ok || d.blk == nil {
		return flowgraph.Endpoint{}, fmt.Errorf("%w: %s on %s", ErrChannelNotBuilt, ch, d.dev.Name())
	}
	return flowgraph.Endpoint{Block: d.blk, Port: p}, nil
}
