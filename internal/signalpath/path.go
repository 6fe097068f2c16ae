package signalpath

import (
	"fmt"
	"slices"
	"sync"

	"github.com/specialistvlad/scopyflow/internal/flowgraph"
	"github.com/specialistvlad/scopyflow/internal/topblock"
)

// Path is an ordered chain of proxies registered with a topblock.Manager as
// a signal path. A Path appended into another Path acts as a proxy; used
// that way it is wired whenever the outer path is, regardless of its own
// enabled flag.
type Path struct {
	name string

	mu       sync.Mutex
	enabled  bool
	proxies  []Proxy
	parents  []*Path
	rebuild  topblock.Rebuilder
	end      flowgraph.Endpoint
	upstream flowgraph.Endpoint
	wired    bool
}

// New creates an enabled, empty path.
func New(name string) *Path {
	return &Path{name: name, enabled: true}
}

func (p *Path) Name() string {
	return p.name
}

func (p *Path) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// SetEnabled toggles the path and requests a rebuild when the flag changes.
func (p *Path) SetEnabled(enabled bool) {
	p.mu.Lock()
	changed := p.enabled != enabled
	p.enabled = enabled
	p.mu.Unlock()

	if changed {
		p.RequestRebuild()
	}
}

// Append adds px to the end of the chain. Structural changes take effect on
// the next build.
func (p *Path) Append(px Proxy) {
	if px == Proxy(p) {
		panic(fmt.Sprintf("signalpath: path %s appended to itself", p.name))
	}
	if o, ok := px.(owned); ok {
		o.setOwner(p)
	}

	p.mu.Lock()
	p.proxies = append(p.proxies, px)
	p.mu.Unlock()

	if sub, ok := px.(*Path); ok {
		sub.mu.Lock()
		sub.parents = append(sub.parents, p)
		sub.mu.Unlock()
	}
}

// Proxies returns the chain.
func (p *Path) Proxies() []Proxy {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.proxies)
}

// Attach is called by the manager on registration.
func (p *Path) Attach(r topblock.Rebuilder) {
	p.mu.Lock()
	p.rebuild = r
	p.mu.Unlock()
}

// Detach is called by the manager on unregistration.
func (p *Path) Detach() {
	p.mu.Lock()
	p.rebuild = nil
	p.mu.Unlock()
}

// Live reports whether the path will be wired by the next build: it is
// registered and enabled, or it is part of a live path.
func (p *Path) Live() bool {
	p.mu.Lock()
	self := p.enabled && p.rebuild != nil
	parents := slices.Clone(p.parents)
	p.mu.Unlock()

	if self {
		return true
	}
	for _, parent := range parents {
		if parent.Live() {
			return true
		}
	}
	return false
}

// RequestRebuild forwards to the manager this path, or the closest
// enclosing path, is registered with.
func (p *Path) RequestRebuild() {
	if r := p.rebuilder(); r != nil {
		r.RequestRebuild()
	}
}

func (p *Path) rebuilder() topblock.Rebuilder {
	p.mu.Lock()
	r := p.rebuild
	parents := slices.Clone(p.parents)
	p.mu.Unlock()

	if r != nil {
		return r
	}
	for _, parent := range parents {
		if r := parent.rebuilder(); r != nil {
			return r
		}
	}
	return nil
}

// Connect wires the chain after upstream. It satisfies
// topblock.SignalPathNode.
func (p *Path) Connect(g *flowgraph.Graph, upstream flowgraph.Endpoint) error {
	_, err := p.ConnectBlocks(g, upstream)
	return err
}

// ConnectBlocks wires every enabled proxy after the previous one and returns
// the chain's end point. Connecting a wired path to the same upstream again
// returns the existing end point. When a proxy fails, the proxies this call
// wired from scratch are disconnected again; ones already wired by another
// path are left alone.
func (p *Path) ConnectBlocks(g *flowgraph.Graph, upstream flowgraph.Endpoint) (flowgraph.Endpoint, error) {
	p.mu.Lock()
	if p.wired && p.upstream == upstream {
		end := p.end
		p.mu.Unlock()
		return end, nil
	}
	proxies := slices.Clone(p.proxies)
	p.mu.Unlock()

	var fresh []Proxy
	prev := upstream
	for _, px := range proxies {
		// Nested paths are always part of the outer chain.
		if _, nested := px.(*Path); !nested && !px.Enabled() {
			continue
		}
		wasWired := isWired(px)
		end, err := px.ConnectBlocks(g, prev)
		if err != nil {
			for _, f := range slices.Backward(fresh) {
				_ = f.DisconnectBlocks(g)
			}
			return flowgraph.Endpoint{}, fmt.Errorf("path %s: %w", p.name, err)
		}
		if !wasWired {
			fresh = append(fresh, px)
		}
		prev = end
	}

	p.mu.Lock()
	p.end = prev
	p.upstream = upstream
	p.wired = true
	p.mu.Unlock()
	return prev, nil
}

// Disconnect releases every proxy of the chain. It satisfies
// topblock.SignalPathNode and is safe to call repeatedly.
func (p *Path) Disconnect(g *flowgraph.Graph) error {
	return p.DisconnectBlocks(g)
}

func (p *Path) DisconnectBlocks(g *flowgraph.Graph) error {
	p.mu.Lock()
	proxies := slices.Clone(p.proxies)
	p.end = flowgraph.Endpoint{}
	p.upstream = flowgraph.Endpoint{}
	p.wired = false
	p.mu.Unlock()

	for _, px := range proxies {
		if err := px.DisconnectBlocks(g); err != nil {
			return fmt.Errorf("path %s: %w", p.name, err)
		}
	}
	return nil
}

// isWired reports whether px holds connections from an earlier ConnectBlocks.
// Proxies that cannot tell count as wired and are never rolled back.
func isWired(px Proxy) bool {
	switch v := px.(type) {
	case *Path:
		v.mu.Lock()
		defer v.mu.Unlock()
		return v.wired
	case interface{ Built() bool }:
		return v.Built()
	}
	return true
}

// EndPoint returns the output the last build wired the chain to, or the zero
// Endpoint when the path is not wired.
func (p *Path) EndPoint() flowgraph.Endpoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.end
}
