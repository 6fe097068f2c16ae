package scan

import (
	"slices"
	"sync"
)

// Collector tracks the set of reachable URIs across scans.
type Collector struct {
	// OnFound and OnLost are called from Update, in URI order.
	OnFound func(uri string)
	OnLost  func(uri string)

	mu     sync.Mutex
	known  map[string]bool
	pinned map[string]bool
}

func NewCollector() *Collector {
	return &Collector{known: make(map[string]bool), pinned: make(map[string]bool)}
}

// Update applies the result of a scan and returns what appeared and what
// disappeared since the previous one. A URI listed twice counts once.
// Pinned URIs are never reported lost.
func (c *Collector) Update(uris []string) (found, lost []string) {
	c.mu.Lock()
	current := make(map[string]bool, len(uris))
	for _, u := range uris {
		if current[u] {
			continue
		}
		current[u] = true
		if !c.known[u] {
			found = append(found, u)
		}
	}
	for u := range c.known {
		if !current[u] && !c.pinned[u] {
			lost = append(lost, u)
		}
	}
	for _, u := range lost {
		delete(c.known, u)
	}
	for _, u := range found {
		c.known[u] = true
	}
	onFound, onLost := c.OnFound, c.OnLost
	c.mu.Unlock()

	slices.Sort(found)
	slices.Sort(lost)
	for _, u := range found {
		if onFound != nil {
			onFound(u)
		}
	}
	for _, u := range lost {
		if onLost != nil {
			onLost(u)
		}
	}
	return found, lost
}

// Pin keeps uri in the known set while a device on it is connected, even if
// a scan misses it.
func (c *Collector) Pin(uri string) {
	c.mu.Lock()
	c.pinned[uri] = true
	c.known[uri] = true
	c.mu.Unlock()
}

func (c *Collector) Unpin(uri string) {
	c.mu.Lock()
	delete(c.pinned, uri)
	c.mu.Unlock()
}

// Known returns the current set, sorted.
func (c *Collector) Known() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.known))
	for u := range c.known {
		out = append(out, u)
	}
	slices.Sort(out)
	return out
}
