package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Registry maps URI schemes to backends. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
	order    []string
}

func NewRegistry(backends ...Backend) *Registry {
	r := &Registry{backends: make(map[string]Backend)}
	for _, b := range backends {
		r.Register(b)
	}
	return r
}

// Register adds b, replacing any backend with the same scheme.
func (r *Registry) Register(b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.backends[b.Scheme()]; !ok {
		r.order = append(r.order, b.Scheme())
	}
	r.backends[b.Scheme()] = b
}

// Schemes returns the registered schemes in registration order.
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func (r *Registry) backend(scheme string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.backends[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, scheme)
	}
	return b, nil
}

// Open opens the context at uri using the backend of its scheme.
func (r *Registry) Open(ctx context.Context, uri string) (Context, error) {
	scheme, _, ok := strings.Cut(uri, ":")
	if !ok {
		return nil, fmt.Errorf("%w: uri %q has no scheme", ErrUnknownBackend, uri)
	}
	b, err := r.backend(scheme)
	if err != nil {
		return nil, err
	}
	return b.Open(ctx, uri)
}

// Scan asks every backend named in schemes (all backends when empty) for
// reachable contexts. A failing backend does not hide the results of the
// others; its error is joined into the returned error.
func (r *Registry) Scan(ctx context.Context, schemes ...string) ([]string, error) {
	if len(schemes) == 0 {
		schemes = r.Schemes()
	}

	var uris []string
	var errs []error
	for _, s := range schemes {
		b, err := r.backend(s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		found, err := b.Scan(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("scanning %s: %w", s, err))
			continue
		}
		uris = append(uris, found...)
	}
	return uris, errors.Join(errs...)
}

// ParseScanParams splits a scan parameter string such as "ip:usb:" into
// schemes.
func ParseScanParams(params string) []string {
	var schemes []string
	for _, s := range strings.Split(params, ":") {
		if s = strings.TrimSpace(s); s != "" {
			schemes = append(schemes, s)
		}
	}
	return schemes
}
