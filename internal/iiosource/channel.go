package iiosource

import (
	"github.com/specialistvlad/scopyflow/internal/blocks"
	"github.com/specialistvlad/scopyflow/internal/device"
	"github.com/specialistvlad/scopyflow/internal/flowgraph"
	"github.com/specialistvlad/scopyflow/internal/signalpath"
)

// channelScale returns the conversion scale of ch, or 1 when unknown.
func channelScale(dev device.Device, ch string) float32 {
	info, err := device.FindChannel(dev, ch)
	if err != nil || info.Scale == 0 {
		return 1
	}
	return float32(info.Scale)
}

// inUse reports whether a channel proxy will take part in the next build.
func inUse(px *signalpath.BlockProxy) bool {
	owner := px.Owner()
	return px.Enabled() && owner != nil && owner.Live()
}

// FloatChannelSrc feeds one device channel, converted to floats, into a path.
type FloatChannelSrc struct {
	signalpath.BlockProxy
	src     *DeviceSource
	channel string
}

// NewFloatChannelSrc creates a proxy for channel of src. Append it to the
// path that consumes it.
func NewFloatChannelSrc(src *DeviceSource, channel string) *FloatChannelSrc {
	c := &FloatChannelSrc{src: src, channel: channel}
	src.addUser(c)
	return c
}

func (c *FloatChannelSrc) Channel() string {
	return c.channel
}

func (c *FloatChannelSrc) requestedChannels() []string {
	if !inUse(&c.BlockProxy) {
		return nil
	}
	return []string{c.channel}
}

func (c *FloatChannelSrc) ConnectBlocks(g *flowgraph.Graph, upstream flowgraph.Endpoint) (flowgraph.Endpoint, error) {
	return c.Wire(g, upstream, func(g *flowgraph.Graph) (*signalpath.Allocation, error) {
		port, err := c.src.port(c.channel)
		if err != nil {
			return nil, err
		}
		s2f := blocks.NewShortToFloat(g.UniqueName("short_to_float"), channelScale(c.src.dev, c.channel))
		if err := g.Connect(port.Block, port.Port, s2f, 0); err != nil {
			return nil, err
		}
		return &signalpath.Allocation{
			Out:    flowgraph.Endpoint{Block: s2f},
			Blocks: []flowgraph.Block{s2f},
		}, nil
	})
}

func (c *FloatChannelSrc) DisconnectBlocks(g *flowgraph.Graph) error {
	return c.Release(g)
}

// ComplexChannelSrc combines an I and a Q channel into a complex stream.
type ComplexChannelSrc struct {
	signalpath.BlockProxy
	name string
	src  *DeviceSource
	chI  string
	chQ  string
}

func NewComplexChannelSrc(name string, src *DeviceSource, chI, chQ string) *ComplexChannelSrc {
	c := &ComplexChannelSrc{name: name, src: src, chI: chI, chQ: chQ}
	src.addUser(c)
	return c
}

func (c *ComplexChannelSrc) Name() string {
	return c.name
}

func (c *ComplexChannelSrc) requestedChannels() []string {
	if !inUse(&c.BlockProxy) {
		return nil
	}
	return []string{c.chI, c.chQ}
}

func (c *ComplexChannelSrc) ConnectBlocks(g *flowgraph.Graph, upstream flowgraph.Endpoint) (flowgraph.Endpoint, error) {
	return c.Wire(g, upstream, func(g *flowgraph.Graph) (*signalpath.Allocation, error) {
		pi, err := c.src.port(c.chI)
		if err != nil {
			return nil, err
		}
		pq, err := c.src.port(c.chQ)
		if err != nil {
			return nil, err
		}
		s2fI := blocks.NewShortToFloat(g.UniqueName("short_to_float"), channelScale(c.src.dev, c.chI))
		s2fQ := blocks.NewShortToFloat(g.UniqueName("short_to_float"), channelScale(c.src.dev, c.chQ))
		f2c := blocks.NewFloatToComplex(g.UniqueName("float_to_complex"))

		a := &signalpath.Allocation{
			Out:    flowgraph.Endpoint{Block: f2c},
			Blocks: []flowgraph.Block{s2fI, s2fQ, f2c},
		}
		for _, e := range []flowgraph.Edge{
			{Src: pi, Dst: flowgraph.Endpoint{Block: s2fI}},
			{Src: pq, Dst: flowgraph.Endpoint{Block: s2fQ}},
			{Src: flowgraph.Endpoint{Block: s2fI}, Dst: flowgraph.Endpoint{Block: f2c}},
			{Src: flowgraph.Endpoint{Block: s2fQ}, Dst: flowgraph.Endpoint{Block: f2c, Port: 1}},
		} {
			if err := g.Connect(e.Src.Block, e.Src.Port, e.Dst.Block, e.Dst.Port); err != nil {
				return a, err
			}
		}
		return a, nil
	})
}

func (c *ComplexChannelSrc) DisconnectBlocks(g *flowgraph.Graph) error {
	return c.Release(g)
}
