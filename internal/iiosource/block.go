package iiosource

import (
	"context"
	"fmt"

	"github.com/specialistvlad/scopyflow/internal/ctxlog"
	"github.com/specialistvlad/scopyflow/internal/device"
	"github.com/specialistvlad/scopyflow/internal/flowgraph"
)

// acquisition streams a device buffer into the graph, one output per channel.
// A buffer that cannot be opened or refilled ends only this block: its
// outputs close, the paths fed by it drain, and the rest of the graph keeps
// running. The failure is handed to fault.
type acquisition struct {
	name     string
	dev      device.Device
	channels []string
	samples  int
	buf      device.Buffer
	fault    func(error)
}

func (a *acquisition) Name() string {
	return a.name
}

func (a *acquisition) Signature() flowgraph.Signature {
	outs := make([]int, len(a.channels))
	for i := range outs {
		outs[i] = 1
	}
	return flowgraph.Signature{Outputs: outs}
}

func (a *acquisition) Start(ctx context.Context) error {
	buf, err := a.dev.OpenBuffer(a.channels, a.samples)
	if err != nil {
		a.fail(ctx, fmt.Errorf("opening buffer on %s: %w", a.dev.Name(), err))
		return nil
	}
	a.buf = buf
	return nil
}

func (a *acquisition) Work(ctx context.Context, _ [][]float32) ([][]float32, bool, error) {
	if a.buf == nil {
		return nil, true, nil
	}
	data, err := a.buf.Refill(ctx)
	if err != nil {
		if ctx.Err() == nil {
			a.fail(ctx, fmt.Errorf("refilling buffer on %s: %w", a.dev.Name(), err))
		}
		return nil, true, nil
	}
	return data, false, nil
}

func (a *acquisition) fail(ctx context.Context, err error) {
	ctxlog.FromContext(ctx).Error("Device acquisition failed.", "block", a.name, "device", a.dev.Name(), "error", err)
	if a.fault != nil {
		a.fault(err)
	}
}

func (a *acquisition) Stop() error {
	if a.buf == nil {
		return nil
	}
	err := a.buf.Close()
	a.buf = nil
	return err
}
