package config

import (
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Model is the unified, format-agnostic representation of one session.
type Model struct {
	Variables     map[string]*InputDefinition
	DeviceSources []*DeviceSource
	SignalPaths   []*SignalPath
	Scan          *Scan
	Capture       *Capture

	// EvalContext evaluates proxy arguments. It carries the resolved
	// session variables.
	EvalContext *hcl.EvalContext
}

// DeviceSource is a `device` block: one acquisition device opened through
// a context URI.
type DeviceSource struct {
	Name string
	URI  string
	// Device selects a device inside the context. Empty means the first one.
	Device     string
	BufferSize int
}

// SignalPath is a `signal_path` block.
type SignalPath struct {
	Name    string
	Enabled bool
	// Register controls whether the path is registered with the manager on
	// its own. Paths used only inside other paths set it to false.
	Register bool
	Proxies  []*Proxy
}

// Proxy is a `proxy` block inside a signal path. Arguments are evaluated
// later against the factory registered for Type.
type Proxy struct {
	Type      string
	Name      string
	Enabled   bool
	Arguments map[string]hcl.Expression
}

// Scan is the optional `scan` block.
type Scan struct {
	Period  time.Duration
	Schemes []string
	Hosts   []string
}

// Capture is the optional `capture` block configuring the taps.
type Capture struct {
	Samples int
}

// InputDefinition defines a single argument of a proxy type or a session
// variable.
type InputDefinition struct {
	Name        string
	Type        cty.Type
	Description string
	Default     *cty.Value
	Optional    bool
}

// Path returns the signal path called name.
func (m *Model) Path(name string) (*SignalPath, bool) {
	for _, p := range m.SignalPaths {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}
