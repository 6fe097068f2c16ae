package topblock

import "github.com/specialistvlad/scopyflow/internal/flowgraph"

// SignalPathNode is a participant that wires itself into the graph.
type SignalPathNode interface {
	Name() string
	Enabled() bool
	// Connect wires the node's blocks after upstream, which is the zero
	// Endpoint for nodes that start with a source. A Connect that fails
	// must not leave connections of its own in the graph.
	Connect(g *flowgraph.Graph, upstream flowgraph.Endpoint) error
	// Disconnect removes the node's connections. Calling it on a node that is
	// not connected is a no-op.
	Disconnect(g *flowgraph.Graph) error
}

// DeviceSourceNode is a SignalPathNode that also owns hardware-bound blocks.
// Build must precede Connect, and Destroy must follow Disconnect.
type DeviceSourceNode interface {
	SignalPathNode
	Build(g *flowgraph.Graph) error
	// Destroy releases the blocks allocated by Build. It is a no-op when the
	// node is not built.
	Destroy(g *flowgraph.Graph) error
	Built() bool
}

// Rebuilder is implemented by the Manager. Nodes use it to ask for a
// rebuild after a change that alters their wiring.
type Rebuilder interface {
	RequestRebuild()
}

// Attachable is implemented by nodes that want to know which Manager they
// are registered with.
type Attachable interface {
	Attach(r Rebuilder)
	Detach()
}
