package testutil

import "github.com/specialistvlad/scopyflow/internal/registry"

// SimpleModule is a test helper for easily creating a mock module that
// registers a single proxy type.
type SimpleModule struct {
	Type  string
	Proxy *registry.RegisteredProxy
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	if m.Type != "" && m.Proxy != nil {
		r.RegisterProxy(m.Type, m.Proxy)
	}
}
