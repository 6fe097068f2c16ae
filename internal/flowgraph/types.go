package flowgraph

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrRunning is returned when the topology is mutated while the graph executes.
	ErrRunning = errors.New("flowgraph: graph is running")
	// ErrNotRunning is returned by Wait when the graph was never started.
	ErrNotRunning = errors.New("flowgraph: graph is not running")
	// ErrPortInUse is returned when an input port already has an upstream connection.
	ErrPortInUse = errors.New("flowgraph: input port already connected")
	// ErrInvalidPort is returned when a port index is outside the block signature.
	ErrInvalidPort = errors.New("flowgraph: invalid port")
	// ErrSignatureMismatch is returned when the item sizes of two ports differ.
	ErrSignatureMismatch = errors.New("flowgraph: item size mismatch")
	// ErrUnconnectedInput is returned by Start when a block input has no upstream.
	ErrUnconnectedInput = errors.New("flowgraph: unconnected input")
	// ErrCycle is returned by Start when the connections form a cycle.
	ErrCycle = errors.New("flowgraph: cycle detected")
)

// Signature describes the ports of a block. Each entry is the item size of
// the port in float32 values, so a complex stream has item size 2 and a
// vector of 1024 floats has item size 1024.
type Signature struct {
	Inputs  []int
	Outputs []int
}

// Block is one unit of computation in the graph.
//
// Work is called repeatedly by the runtime. Sources receive a nil input slice;
// other blocks receive exactly one chunk per input port. Work returns one
// chunk per output port (nil entries are dropped) and done=true once the
// block has produced everything it will ever produce. Input chunks may be
// shared between consumers and must not be modified.
type Block interface {
	Name() string
	Signature() Signature
	Work(ctx context.Context, in [][]float32) (out [][]float32, done bool, err error)
}

// Starter is implemented by blocks that acquire resources when the graph starts.
type Starter interface {
	Start(ctx context.Context) error
}

// Stopper is implemented by blocks that release resources when the graph stops.
type Stopper interface {
	Stop() error
}

// Endpoint addresses one port of a block.
type Endpoint struct {
	Block Block
	Port  int
}

// IsZero reports whether the endpoint refers to no block.
func (e Endpoint) IsZero() bool {
	return e.Block == nil
}

func (e Endpoint) String() string {
	if e.Block == nil {
		return "<none>"
	}
	return fmt.Sprintf("%s:%d", e.Block.Name(), e.Port)
}

// Edge is a directed connection from an output port to an input port.
type Edge struct {
	Src Endpoint
	Dst Endpoint
}

func (e Edge) String() string {
	return e.Src.String() + "->" + e.Dst.String()
}
