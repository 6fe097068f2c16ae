package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/scopyflow/internal/builder"
	"github.com/specialistvlad/scopyflow/internal/ctxlog"
	"github.com/specialistvlad/scopyflow/internal/monitor"
	"github.com/specialistvlad/scopyflow/internal/recorder"
	"github.com/specialistvlad/scopyflow/internal/scan"
	"github.com/specialistvlad/scopyflow/internal/tap"
	"github.com/specialistvlad/scopyflow/internal/topblock"
)

// Run builds the session, registers it with a new manager and runs it. The
// calling goroutine becomes the manager's control goroutine.
//
// Without streaming options the engine runs until every capture is full.
// Otherwise it runs until ctx is done, the duration elapses or the console
// asks to quit.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")
	if a.config.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Duration)
		defer cancel()
	}

	session, err := builder.Build(ctx, a.model, a.registry, a.converter, a.devices)
	if err != nil {
		return fmt.Errorf("failed to build session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			a.logger.Error("Failed to close device contexts.", "error", err)
		}
	}()

	m := topblock.New(ctx, "scopyflow")
	capture := tap.NewCapture(a.samples())
	defer tap.New(ctx, m, capture).Close()

	if dir := a.config.RecordDir; dir != "" {
		rec, err := recorder.New(ctx, dir, a.sessionID.String())
		if err != nil {
			return err
		}
		defer func() {
			if err := rec.Close(); err != nil {
				a.logger.Error("Recording finished with errors.", "error", err)
			}
			a.logger.Info("Recording finished.", "recording", rec.ID(), "files", len(rec.Files()))
		}()
		defer tap.New(ctx, m, rec).Close()
	}

	if port := a.config.MonitorPort; port > 0 {
		mon := monitor.New(ctx)
		addr, err := mon.Start(port)
		if err != nil {
			return err
		}
		defer mon.Close()
		defer mon.Watch(m)()
		defer tap.New(ctx, m, mon).Close()
		a.logger.Info("Monitor listening.", "ws", "ws://"+addr+"/ws", "health", "http://"+addr+"/health")
	}

	session.Register(m)
	defer func() {
		a.stopEngine(m)
		session.Unregister(m)
		m.Teardown()
	}()
	if len(session.Paths()) == 0 {
		a.logger.Warn("No signal paths registered, nothing will flow.")
	}

	var runErr error
	if a.config.streaming() {
		runErr = a.loop(ctx, m, session)
	} else {
		a.logger.Info("🚀 Running session once.", "samples", a.samples())
		if runErr = m.Run(ctx); isCancel(runErr) {
			runErr = nil
		}
	}
	a.stopEngine(m)
	a.report(capture)

	if runErr != nil {
		return fmt.Errorf("execution failed: %w", runErr)
	}
	a.logger.Info("🏁 Execution finished.")
	return nil
}

// loop is the control goroutine's event loop for streaming runs.
func (a *App) loop(ctx context.Context, m *topblock.Manager, s *builder.Session) error {
	if err := m.Start(); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}

	var results <-chan scan.Result
	collector := scan.NewCollector()
	for _, d := range a.model.DeviceSources {
		collector.Pin(d.URI)
	}
	if a.scanner != nil {
		a.scanner.Start(ctx)
		defer func() {
			if err := a.scanner.Stop(); err != nil {
				a.logger.Warn("Scan engine did not stop cleanly.", "error", err)
			}
		}()
		results = a.scanner.Results()
	}

	var keys <-chan keyPress
	if a.config.Interactive {
		k, closeConsole, err := openConsole(ctx)
		if err != nil {
			return err
		}
		defer closeConsole()
		keys = k
		a.logger.Info("Console ready.", "keys", consoleHelp)
	}

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("Streaming run finished.", "reason", context.Cause(ctx))
			return nil
		case r := <-results:
			a.handleScan(m, s, collector, r)
		case k, ok := <-keys:
			if !ok {
				keys = nil
				continue
			}
			if a.handleKey(m, s, k) {
				return nil
			}
		}
	}
}

// handleScan reports contexts that appeared or vanished and hands every
// reachable context back to the session: a device on it whose acquisition
// failed is retried with a rebuild.
func (a *App) handleScan(m *topblock.Manager, s *builder.Session, c *scan.Collector, r scan.Result) {
	if r.Err != nil {
		a.logger.Debug("Scan reported errors.", "error", r.Err)
	}
	found, lost := c.Update(r.URIs)
	for _, uri := range found {
		a.logger.Info("Context found.", "uri", uri)
	}
	for _, uri := range lost {
		a.logger.Warn("Context lost.", "uri", uri)
	}

	retry := false
	for _, uri := range r.URIs {
		for _, src := range s.DevicesAt(uri) {
			if err := src.Fault(); err != nil {
				a.logger.Info("Reconnecting device.", "uri", uri, "device", src.Name(), "fault", err)
				retry = true
			}
		}
	}
	if retry {
		m.Rebuild()
	}
}

// stopEngine stops m, ignoring the cancellation the stop itself causes.
func (a *App) stopEngine(m *topblock.Manager) {
	if err := m.Stop(); err != nil && !isCancel(err) {
		a.logger.Warn("Engine reported an error while stopping.", "error", err)
	}
}

// report logs the statistics of every captured vector.
func (a *App) report(c *tap.Capture) {
	paths := c.Paths()
	for i, data := range c.Data() {
		if len(data) == 0 {
			a.logger.Info("Captured signal path.", "path", paths[i], "samples", 0)
			continue
		}
		lo, hi, sum := data[0], data[0], float64(0)
		for _, v := range data {
			lo, hi = min(lo, v), max(hi, v)
			sum += float64(v)
		}
		a.logger.Info("Captured signal path.", "path", paths[i], "samples", len(data),
			"min", lo, "max", hi, "mean", sum/float64(len(data)))
	}
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
