package registry

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"

	"github.com/specialistvlad/scopyflow/internal/config"
	"github.com/specialistvlad/scopyflow/internal/iiosource"
	"github.com/specialistvlad/scopyflow/internal/signalpath"
)

// Module is implemented by every package that contributes proxy types.
type Module interface {
	Register(r *Registry)
}

// Env resolves the session objects a proxy may refer to by name.
type Env interface {
	DeviceSource(name string) (*iiosource.DeviceSource, bool)
	SignalPath(name string) (*signalpath.Path, bool)
}

// RegisteredProxy describes one proxy type.
type RegisteredProxy struct {
	Description string
	Inputs      map[string]*config.InputDefinition
	// InputType is the struct NewInput allocates, used for validation.
	InputType reflect.Type
	NewInput  func() any
	// Fn builds the proxy from a decoded input. name is the proxy block
	// label.
	Fn func(ctx context.Context, env Env, name string, input any) (signalpath.Proxy, error)
}

// Registry holds the registered proxy types of one application instance.
type Registry struct {
	mu      sync.RWMutex
	proxies map[string]*RegisteredProxy
}

// New creates a registry and registers every given module into it.
func New(modules ...Module) *Registry {
	r := &Registry{proxies: make(map[string]*RegisteredProxy)}
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// RegisterProxy registers a proxy type. Registering a name twice is a
// programming error and panics.
func (r *Registry) RegisterProxy(typ string, p *RegisteredProxy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.proxies[typ]; exists {
		panic(fmt.Sprintf("proxy type '%s' already registered", typ))
	}
	slog.Debug("Registering proxy type.", "type", typ)
	r.proxies[typ] = p
}

// Proxy returns the registration for typ.
func (r *Registry) Proxy(typ string) (*RegisteredProxy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.proxies[typ]
	return p, ok
}

// Types returns the registered type names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.proxies))
	for t := range r.proxies {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
