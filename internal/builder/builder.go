package builder

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/scopyflow/internal/config"
	"github.com/specialistvlad/scopyflow/internal/ctxlog"
	"github.com/specialistvlad/scopyflow/internal/device"
	"github.com/specialistvlad/scopyflow/internal/iiosource"
	"github.com/specialistvlad/scopyflow/internal/registry"
	"github.com/specialistvlad/scopyflow/internal/signalpath"
	"github.com/specialistvlad/scopyflow/internal/topblock"
)

// ErrCycle is returned when nested signal paths refer to each other.
var ErrCycle = errors.New("builder: signal paths form a cycle")

// Session holds the objects built from one session model.
type Session struct {
	contexts []device.Context

	sources      []*iiosource.DeviceSource
	sourceByName map[string]*iiosource.DeviceSource
	sourcesByURI map[string][]*iiosource.DeviceSource

	paths      []*signalpath.Path
	pathByName map[string]*signalpath.Path
	// registered are the paths registered with a manager on their own, in
	// declaration order.
	registered []*signalpath.Path
}

// Build creates the session described by model. On error every device
// context opened so far is closed again.
func Build(ctx context.Context, model *config.Model, reg *registry.Registry, conv config.Converter, devices *device.Registry) (_ *Session, err error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting session construction.")

	s := &Session{
		sourceByName: make(map[string]*iiosource.DeviceSource),
		sourcesByURI: make(map[string][]*iiosource.DeviceSource),
		pathByName:   make(map[string]*signalpath.Path),
	}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	for _, d := range model.DeviceSources {
		if err := s.openDevice(ctx, d, devices); err != nil {
			return nil, err
		}
	}
	logger.Debug("Build: Devices opened.", "count", len(s.sources))

	for _, p := range model.SignalPaths {
		path := signalpath.New(p.Name)
		path.SetEnabled(p.Enabled)
		s.paths = append(s.paths, path)
		s.pathByName[p.Name] = path
		if p.Register {
			s.registered = append(s.registered, path)
		}
	}

	for _, p := range model.SignalPaths {
		path := s.pathByName[p.Name]
		for _, pc := range p.Proxies {
			px, err := s.buildProxy(ctx, pc, path, model, reg, conv)
			if err != nil {
				return nil, fmt.Errorf("signal_path %q, proxy %q: %w", p.Name, pc.Name, err)
			}
			path.Append(px)
		}
	}
	logger.Debug("Build: Signal paths assembled.", "count", len(s.paths))

	if err := detectCycles(s.paths); err != nil {
		return nil, err
	}

	logger.Info("Session built.", "devices", len(s.sources), "signal_paths", len(s.paths), "registered", len(s.registered))
	return s, nil
}

func (s *Session) openDevice(ctx context.Context, d *config.DeviceSource, devices *device.Registry) error {
	devCtx, err := devices.Open(ctx, d.URI)
	if err != nil {
		return fmt.Errorf("device %q: %w", d.Name, err)
	}
	s.contexts = append(s.contexts, devCtx)

	var dev device.Device
	if d.Device == "" {
		all := devCtx.Devices()
		if len(all) == 0 {
			return fmt.Errorf("device %q: %w: %s has no devices", d.Name, device.ErrNotFound, d.URI)
		}
		dev = all[0]
	} else if dev, err = devCtx.FindDevice(d.Device); err != nil {
		return fmt.Errorf("device %q: %w", d.Name, err)
	}

	size := d.BufferSize
	if size <= 0 {
		size = iiosource.DefaultBufferSize
	}
	src := iiosource.NewDeviceSource(dev, size)
	s.sources = append(s.sources, src)
	s.sourceByName[d.Name] = src
	s.sourcesByURI[d.URI] = append(s.sourcesByURI[d.URI], src)
	ctxlog.FromContext(ctx).Debug("Device opened.", "device", d.Name, "uri", d.URI, "name", dev.Name(), "buffer_size", size)
	return nil
}

func (s *Session) buildProxy(ctx context.Context, pc *config.Proxy, owner *signalpath.Path, model *config.Model, reg *registry.Registry, conv config.Converter) (signalpath.Proxy, error) {
	rp, ok := reg.Proxy(pc.Type)
	if !ok {
		return nil, fmt.Errorf("unknown proxy type %q", pc.Type)
	}
	input := rp.NewInput()
	if err := conv.DecodeBody(ctx, input, pc.Arguments, rp.Inputs, model.EvalContext); err != nil {
		return nil, err
	}
	px, err := rp.Fn(ctx, s, pc.Name, input)
	if err != nil {
		return nil, err
	}

	if nested, ok := px.(*signalpath.Path); ok {
		if nested == owner {
			return nil, fmt.Errorf("%w: %s includes itself", ErrCycle, owner.Name())
		}
		if !pc.Enabled {
			return nil, fmt.Errorf("a nested path cannot be disabled")
		}
		return px, nil
	}
	if !pc.Enabled {
		t, ok := px.(interface{ SetEnabled(bool) })
		if !ok {
			return nil, fmt.Errorf("proxy type %q cannot be disabled", pc.Type)
		}
		t.SetEnabled(false)
	}
	return px, nil
}

// detectCycles walks nested paths depth first.
func detectCycles(paths []*signalpath.Path) error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[*signalpath.Path]int, len(paths))

	var visit func(p *signalpath.Path, trail []string) error
	visit = func(p *signalpath.Path, trail []string) error {
		switch state[p] {
		case visiting:
			return fmt.Errorf("%w: %v", ErrCycle, append(trail, p.Name()))
		case done:
			return nil
		}
		state[p] = visiting
		for _, px := range p.Proxies() {
			if sub, ok := px.(*signalpath.Path); ok {
				if err := visit(sub, append(trail, p.Name())); err != nil {
					return err
				}
			}
		}
		state[p] = done
		return nil
	}

	for _, p := range paths {
		if err := visit(p, nil); err != nil {
			return err
		}
	}
	return nil
}

// DeviceSource returns the source declared as name. It satisfies
// registry.Env.
func (s *Session) DeviceSource(name string) (*iiosource.DeviceSource, bool) {
	src, ok := s.sourceByName[name]
	return src, ok
}

// SignalPath returns the path declared as name. It satisfies registry.Env.
func (s *Session) SignalPath(name string) (*signalpath.Path, bool) {
	p, ok := s.pathByName[name]
	return p, ok
}

// Paths returns the paths registered on their own, in declaration order.
func (s *Session) Paths() []*signalpath.Path {
	return append([]*signalpath.Path(nil), s.registered...)
}

// DevicesAt returns the sources opened on the context at uri.
func (s *Session) DevicesAt(uri string) []*iiosource.DeviceSource {
	return append([]*iiosource.DeviceSource(nil), s.sourcesByURI[uri]...)
}

func (s *Session) DeviceSources() []*iiosource.DeviceSource {
	return append([]*iiosource.DeviceSource(nil), s.sources...)
}

// Register registers every device source and every standalone path with m
// as a single rebuild.
func (s *Session) Register(m *topblock.Manager) {
	m.SuspendBuild()
	for _, src := range s.sources {
		m.RegisterDeviceSource(src)
	}
	for _, p := range s.registered {
		m.RegisterSignalPath(p)
	}
	m.UnsuspendBuild()
}

// Unregister is the inverse of Register.
func (s *Session) Unregister(m *topblock.Manager) {
	m.SuspendBuild()
	for _, p := range s.registered {
		m.UnregisterSignalPath(p)
	}
	for _, src := range s.sources {
		m.UnregisterDeviceSource(src)
	}
	m.UnsuspendBuild()
}

// Close closes every device context the session opened.
func (s *Session) Close() error {
	var errs []error
	for _, c := range s.contexts {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", c.URI(), err))
		}
	}
	s.contexts = nil
	return errors.Join(errs...)
}
