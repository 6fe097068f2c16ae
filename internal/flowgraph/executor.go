package flowgraph

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/specialistvlad/scopyflow/internal/ctxlog"
	"golang.org/x/sync/errgroup"
)

// linkDepth is the number of chunks buffered on every connection.
const linkDepth = 4

// execution is the state of one Start..Stop cycle.
type execution struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// link is the runtime form of an Edge.
type link struct {
	ch        chan []float32
	released  chan struct{}
	closeOnce sync.Once
	relOnce   sync.Once
}

func newLink() *link {
	return &link{
		ch:       make(chan []float32, linkDepth),
		released: make(chan struct{}),
	}
}

// send delivers chunk unless the consumer has gone away or ctx is done.
func (l *link) send(ctx context.Context, chunk []float32) {
	select {
	case <-l.released:
		return
	default:
	}
	select {
	case l.ch <- chunk:
	case <-l.released:
	case <-ctx.Done():
	}
}

func (l *link) close()   { l.closeOnce.Do(func() { close(l.ch) }) }
func (l *link) release() { l.relOnce.Do(func() { close(l.released) }) }

func (l *link) isReleased() bool {
	select {
	case <-l.released:
		return true
	default:
		return false
	}
}

// Start validates the connections and launches one goroutine per block. It
// returns ErrRunning if the graph is already running.
func (g *Graph) Start(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.run != nil {
		return ErrRunning
	}

	edges := make([]Edge, len(g.edges))
	copy(edges, g.edges)
	if err := validate(edges); err != nil {
		return err
	}
	blocks := blocksOf(edges)

	inputs := make(map[Block][]*link)
	outputs := make(map[Block][][]*link)
	for _, b := range blocks {
		sig := b.Signature()
		inputs[b] = make([]*link, len(sig.Inputs))
		outputs[b] = make([][]*link, len(sig.Outputs))
	}
	for _, e := range edges {
		l := newLink()
		inputs[e.Dst.Block][e.Dst.Port] = l
		outputs[e.Src.Block][e.Src.Port] = append(outputs[e.Src.Block][e.Src.Port], l)
	}

	runCtx, cancel := context.WithCancel(ctx)

	var started []Block
	for _, b := range blocks {
		if s, ok := b.(Starter); ok {
			if err := s.Start(runCtx); err != nil {
				stopBlocks(runCtx, started)
				cancel()
				return fmt.Errorf("starting block %s: %w", b.Name(), err)
			}
		}
		started = append(started, b)
	}

	group, groupCtx := errgroup.WithContext(runCtx)
	for _, b := range blocks {
		group.Go(func() error {
			return runBlock(groupCtx, b, inputs[b], outputs[b])
		})
	}

	run := &execution{cancel: cancel, done: make(chan struct{})}
	go func() {
		err := group.Wait()
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		if stopErr := stopBlocks(runCtx, blocks); err == nil {
			err = stopErr
		}
		run.err = err
		close(run.done)
	}()
	g.run = run

	logger.Debug("Flowgraph started.", "graph", g.name, "blocks", len(blocks), "edges", len(edges))
	return nil
}

// Wait blocks until every block goroutine has returned. The graph stays in
// the running state until Stop is called.
func (g *Graph) Wait() error {
	g.mu.Lock()
	run := g.run
	g.mu.Unlock()

	if run == nil {
		return ErrNotRunning
	}
	<-run.done
	return run.err
}

// Stop signals every block to halt and blocks until all of them have
// returned. Stopping a graph that is not running is a no-op.
func (g *Graph) Stop() error {
	g.mu.Lock()
	run := g.run
	g.mu.Unlock()

	if run == nil {
		return nil
	}
	run.cancel()
	<-run.done

	g.mu.Lock()
	g.run = nil
	g.mu.Unlock()
	return run.err
}

// Run starts the graph and blocks until it completes on its own, then
// returns it to the stopped state.
func (g *Graph) Run(ctx context.Context) error {
	if err := g.Start(ctx); err != nil {
		return err
	}
	waitErr := g.Wait()
	if err := g.Stop(); waitErr == nil {
		waitErr = err
	}
	return waitErr
}

func stopBlocks(ctx context.Context, blocks []Block) error {
	var errs []error
	for _, b := range blocks {
		if s, ok := b.(Stopper); ok {
			if err := s.Stop(); err != nil {
				ctxlog.FromContext(ctx).Warn("Block failed to stop cleanly.", "block", b.Name(), "error", err)
				errs = append(errs, fmt.Errorf("stopping block %s: %w", b.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// runBlock is the scheduling loop for a single block.
func runBlock(ctx context.Context, b Block, ins []*link, outs [][]*link) error {
	logger := ctxlog.FromContext(ctx).With("block", b.Name())
	defer func() {
		for _, port := range outs {
			for _, l := range port {
				l.close()
			}
		}
		for _, l := range ins {
			l.release()
		}
		logger.Debug("Block finished.")
	}()

	for {
		var in [][]float32
		if len(ins) > 0 {
			in = make([][]float32, len(ins))
			for i, l := range ins {
				select {
				case chunk, ok := <-l.ch:
					if !ok {
						return nil
					}
					in[i] = chunk
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		} else if ctx.Err() != nil {
			return ctx.Err()
		}

		out, done, err := b.Work(ctx, in)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			return fmt.Errorf("block %s: %w", b.Name(), err)
		}

		for port, chunk := range out {
			if chunk == nil || port >= len(outs) {
				continue
			}
			for _, l := range outs[port] {
				l.send(ctx, chunk)
			}
		}

		if done || consumersGone(outs) {
			return nil
		}
	}
}

// consumersGone reports whether a block with outputs has no live consumer left.
func consumersGone(outs [][]*link) bool {
	connected := false
	for _, port := range outs {
		for _, l := range port {
			connected = true
			if !l.isReleased() {
				return false
			}
		}
	}
	return connected
}
