package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/specialistvlad/scopyflow/internal/config"
	"github.com/specialistvlad/scopyflow/internal/ctxlog"
	"github.com/specialistvlad/scopyflow/internal/device"
	"github.com/specialistvlad/scopyflow/internal/registry"
	"github.com/specialistvlad/scopyflow/internal/scan"
)

// App is the root context object: it owns the logger, the session identity,
// the proxy registry, the loaded session and the device backends. Nothing
// here is global; tests build as many apps as they like.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	config    *Config
	sessionID uuid.UUID

	registry  *registry.Registry
	model     *config.Model
	converter config.Converter
	devices   *device.Registry
	scanner   *scan.Engine
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// A nil devices registry gets the simulated backend with a "sim:demo"
// context holding a four channel ADC.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, devices *device.Registry, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	sessionID := uuid.New()
	logger = logger.With("session", sessionID.String())
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	// Load the session into the format-agnostic model first.
	model, converter, err := loader.Load(ctx, cfg.SessionPath)
	if err != nil {
		// A failure to load config is a fatal startup error.
		panic(fmt.Errorf("failed to load session: %w", err))
	}
	logger.Debug("Session loaded and translated into unified model.",
		"devices", len(model.DeviceSources), "signal_paths", len(model.SignalPaths))

	if len(modules) == 0 {
		modules = coreModules
	}
	reg := registry.New(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules), "proxy_types", reg.Types())

	if err := reg.ValidateRegistry(ctx); err != nil {
		// This is a programmer error (mismatch between Go structs and
		// declared inputs), so we panic.
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	if devices == nil {
		sim := device.NewSim()
		sim.Plug("demo", device.DemoDevice("cf-ad9361-lpc", 100000))
		devices = device.NewRegistry(sim)
	}

	a := &App{
		outW:      outW,
		logger:    logger,
		config:    cfg,
		sessionID: sessionID,
		registry:  reg,
		model:     model,
		converter: converter,
		devices:   devices,
	}
	a.scanner = a.newScanner()
	return a
}

// newScanner returns nil when neither the command line nor the session
// asks for discovery.
func (a *App) newScanner() *scan.Engine {
	period, schemes := a.config.ScanPeriod, a.config.ScanSchemes
	var hosts []string
	if s := a.model.Scan; s != nil {
		hosts = s.Hosts
		if s.Period > 0 {
			period = s.Period
		}
		if len(s.Schemes) > 0 {
			schemes = s.Schemes
		}
	} else if !a.config.Scan {
		return nil
	}

	var backendSchemes []string
	probeIP := len(hosts) > 0
	for _, s := range schemes {
		if s == "ip" {
			probeIP = true
			continue
		}
		backendSchemes = append(backendSchemes, s)
	}

	var scanners []scan.Scanner
	if len(backendSchemes) > 0 || !probeIP {
		scanners = append(scanners, scan.ScannerFunc(func(ctx context.Context) ([]string, error) {
			return a.devices.Scan(ctx, backendSchemes...)
		}))
	}
	if probeIP {
		scanners = append(scanners, scan.TCPProber{Hosts: hosts})
	}
	a.logger.Debug("Scan engine configured.", "period", period, "schemes", schemes, "hosts", hosts)
	return scan.NewEngine(scan.Multi(scanners...), scan.Options{Period: period})
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

func (a *App) SessionID() uuid.UUID {
	return a.sessionID
}

// samples returns the capture vector size.
func (a *App) samples() int {
	if a.model.Capture != nil {
		return a.model.Capture.Samples
	}
	if a.config.Samples > 0 {
		return a.config.Samples
	}
	return 1024
}
