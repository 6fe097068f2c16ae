package signalpath

import (
	"errors"
	"fmt"
	"sync"

	"github.com/specialistvlad/scopyflow/internal/flowgraph"
)

// ErrNoUpstream is returned when a proxy with an input is connected without
// anything in front of it.
var ErrNoUpstream = errors.New("signalpath: proxy has no upstream")

// Proxy is one link of a Path.
type Proxy interface {
	Enabled() bool
	// ConnectBlocks allocates the proxy's blocks if they are not allocated
	// yet and wires them after upstream. It returns the end point the next
	// proxy should connect to.
	ConnectBlocks(g *flowgraph.Graph, upstream flowgraph.Endpoint) (flowgraph.Endpoint, error)
	// DisconnectBlocks removes the proxy's blocks from g and releases them.
	// It is a no-op when nothing is allocated.
	DisconnectBlocks(g *flowgraph.Graph) error
}

// owned is implemented by proxies that report changes to the path holding
// them. Types embedding BlockProxy satisfy it.
type owned interface {
	setOwner(p *Path)
}

// Allocation is what a proxy's build function produces: the blocks it
// created and the ports the chain connects through. In is zero for sources.
type Allocation struct {
	In     flowgraph.Endpoint
	Out    flowgraph.Endpoint
	Blocks []flowgraph.Block
}

// BlockProxy carries the enable flag and build bookkeeping shared by
// block-backed proxies. Embed it and implement ConnectBlocks with Wire and
// DisconnectBlocks with Release. The zero value is an enabled proxy.
type BlockProxy struct {
	mu       sync.Mutex
	disabled bool
	owner    *Path
	alloc    *Allocation
	upstream flowgraph.Endpoint
}

func (b *BlockProxy) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.disabled
}

// SetEnabled toggles the proxy. A change asks the owning path for a rebuild.
func (b *BlockProxy) SetEnabled(enabled bool) {
	b.mu.Lock()
	changed := b.disabled == enabled
	b.disabled = !enabled
	owner := b.owner
	b.mu.Unlock()

	if changed && owner != nil {
		owner.RequestRebuild()
	}
}

func (b *BlockProxy) setOwner(p *Path) {
	b.mu.Lock()
	b.owner = p
	b.mu.Unlock()
}

// Owner returns the path the proxy was appended to, or nil.
func (b *BlockProxy) Owner() *Path {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.owner
}

// Built reports whether the proxy currently holds blocks.
func (b *BlockProxy) Built() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.alloc != nil
}

// Wire allocates with build on first use in a build cycle and connects the
// allocation's input to upstream. Wiring an allocated proxy to the same
// upstream again is a no-op, which is what lets several paths share it.
// build runs with the proxy's lock held. It may return a partial Allocation
// together with its error; those blocks are disconnected again. A fresh
// allocation that cannot be connected to upstream is discarded, so a failed
// Wire leaves no edges behind.
func (b *BlockProxy) Wire(g *flowgraph.Graph, upstream flowgraph.Endpoint, build func(*flowgraph.Graph) (*Allocation, error)) (flowgraph.Endpoint, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	fresh := b.alloc == nil
	if fresh {
		a, err := build(g)
		if err != nil {
			discard(g, a)
			return flowgraph.Endpoint{}, err
		}
		b.alloc = a
	}

	in := b.alloc.In
	if in.IsZero() || (!b.upstream.IsZero() && b.upstream == upstream) {
		return b.alloc.Out, nil
	}
	err := fmt.Errorf("%w: %s", ErrNoUpstream, in)
	if !upstream.IsZero() {
		err = g.Connect(upstream.Block, upstream.Port, in.Block, in.Port)
	}
	if err != nil {
		if fresh {
			discard(g, b.alloc)
			b.alloc = nil
		}
		return flowgraph.Endpoint{}, err
	}
	b.upstream = upstream
	return b.alloc.Out, nil
}

// discard drops every edge touching a's blocks. DisconnectBlock only fails
// on a running graph, where nothing could have been connected.
func discard(g *flowgraph.Graph, a *Allocation) {
	if a == nil {
		return
	}
	for _, blk := range a.Blocks {
		_, _ = g.DisconnectBlock(blk)
	}
}

// Release disconnects and forgets the allocated blocks.
func (b *BlockProxy) Release(g *flowgraph.Graph) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.alloc == nil {
		return nil
	}
	for _, blk := range b.alloc.Blocks {
		if _, err := g.DisconnectBlock(blk); err != nil {
			return err
		}
	}
	b.alloc = nil
	b.upstream = flowgraph.Endpoint{}
	return nil
}

// Block returns the i-th allocated block, or nil when unbuilt.
func (b *BlockProxy) Block(i int) flowgraph.Block {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.alloc == nil || i >= len(b.alloc.Blocks) {
		return nil
	}
	return b.alloc.Blocks[i]
}
