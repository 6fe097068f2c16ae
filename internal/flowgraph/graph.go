package flowgraph

import (
	"fmt"
	"strings"
	"sync"
)

// Graph is a collection of connections between blocks. All methods are
// safe for concurrent use.
type Graph struct {
	name string

	// mu protects every field below.
	mu    sync.Mutex
	edges []Edge
	// counters hands out per-prefix instance numbers for UniqueName.
	counters map[string]int
	run      *execution
}

// New creates and returns an empty Graph.
func New(name string) *Graph {
	return &Graph{
		name:     name,
		counters: make(map[string]int),
	}
}

// Name returns the graph's name.
func (g *Graph) Name() string {
	return g.name
}

// UniqueName returns prefix followed by the next instance number for that
// prefix, e.g. "sig_source0", "sig_source1".
func (g *Graph) UniqueName(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := g.counters[prefix]
	g.counters[prefix] = n + 1
	return fmt.Sprintf("%s%d", prefix, n)
}

// Connect creates a connection from src:srcPort to dst:dstPort.
func (g *Graph) Connect(src Block, srcPort int, dst Block, dstPort int) error {
	if src == nil || dst == nil {
		return fmt.Errorf("connect: nil block")
	}
	if src == dst {
		return fmt.Errorf("self-referential connection not allowed: %s", src.Name())
	}

	srcSig, dstSig := src.Signature(), dst.Signature()
	if srcPort < 0 || srcPort >= len(srcSig.Outputs) {
		return fmt.Errorf("%w: %s has no output %d", ErrInvalidPort, src.Name(), srcPort)
	}
	if dstPort < 0 || dstPort >= len(dstSig.Inputs) {
		return fmt.Errorf("%w: %s has no input %d", ErrInvalidPort, dst.Name(), dstPort)
	}
	if srcSig.Outputs[srcPort] != dstSig.Inputs[dstPort] {
		return fmt.Errorf("%w: %s:%d (%d) -> %s:%d (%d)", ErrSignatureMismatch,
			src.Name(), srcPort, srcSig.Outputs[srcPort], dst.Name(), dstPort, dstSig.Inputs[dstPort])
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.run != nil {
		return ErrRunning
	}
	for _, e := range g.edges {
		if e.Dst.Block == dst && e.Dst.Port == dstPort {
			return fmt.Errorf("%w: %s (from %s)", ErrPortInUse, e.Dst, e.Src)
		}
	}

	g.edges = append(g.edges, Edge{
		Src: Endpoint{Block: src, Port: srcPort},
		Dst: Endpoint{Block: dst, Port: dstPort},
	})
	return nil
}

// Disconnect removes the connection src:srcPort -> dst:dstPort. Removing a
// connection that does not exist is not an error.
func (g *Graph) Disconnect(src Block, srcPort int, dst Block, dstPort int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.run != nil {
		return ErrRunning
	}
	g.removeLocked(func(e Edge) bool {
		return e.Src.Block == src && e.Src.Port == srcPort && e.Dst.Block == dst && e.Dst.Port == dstPort
	})
	return nil
}

// DisconnectBlock removes every connection touching b and returns how many
// were removed.
func (g *Graph) DisconnectBlock(b Block) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.run != nil {
		return 0, ErrRunning
	}
	return g.removeLocked(func(e Edge) bool {
		return e.Src.Block == b || e.Dst.Block == b
	}), nil
}

// DisconnectAll wipes every connection in the graph.
func (g *Graph) DisconnectAll() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.run != nil {
		return ErrRunning
	}
	g.edges = nil
	return nil
}

func (g *Graph) removeLocked(match func(Edge) bool) int {
	kept := g.edges[:0]
	removed := 0
	for _, e := range g.edges {
		if match(e) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	// Clear the tail so removed blocks can be collected.
	for i := len(kept); i < len(g.edges); i++ {
		g.edges[i] = Edge{}
	}
	g.edges = kept
	return removed
}

// Edges returns a snapshot of the connections in the order they were made.
func (g *Graph) Edges() []Edge {
	g.mu.Lock()
	defer g.mu.Unlock()

	edges := make([]Edge, len(g.edges))
	copy(edges, g.edges)
	return edges
}

// EdgeList renders the connections one per line as "src:port->dst:port".
func (g *Graph) EdgeList() string {
	var sb strings.Builder
	for _, e := range g.Edges() {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Blocks returns every block that takes part in at least one connection, in
// order of first appearance.
func (g *Graph) Blocks() []Block {
	return blocksOf(g.Edges())
}

// HasBlock reports whether b takes part in any connection.
func (g *Graph) HasBlock(b Block) bool {
	for _, e := range g.Edges() {
		if e.Src.Block == b || e.Dst.Block == b {
			return true
		}
	}
	return false
}

// Running reports whether the graph has been started and not yet stopped.
func (g *Graph) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.run != nil
}

func blocksOf(edges []Edge) []Block {
	seen := make(map[Block]struct{})
	var blocks []Block
	add := func(b Block) {
		if _, ok := seen[b]; ok {
			return
		}
		seen[b] = struct{}{}
		blocks = append(blocks, b)
	}
	for _, e := range edges {
		add(e.Src.Block)
		add(e.Dst.Block)
	}
	return blocks
}
