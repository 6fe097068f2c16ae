package device

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnknownBackend is returned when no backend is registered for a URI scheme.
	ErrUnknownBackend = errors.New("device: unknown backend")
	// ErrNotFound is returned when a context, device or channel does not exist.
	ErrNotFound = errors.New("device: not found")
	// ErrClosed is returned when a closed buffer or context is used.
	ErrClosed = errors.New("device: closed")
)

// ChannelInfo describes one input channel of a device.
type ChannelInfo struct {
	ID string
	// Scale is the raw code that corresponds to 1.0 after conversion.
	Scale float64
}

// Buffer streams raw samples for a fixed set of channels.
type Buffer interface {
	// Refill blocks until the next block of samples is available and returns
	// one slice per channel, in the order the channels were requested.
	Refill(ctx context.Context) ([][]float32, error)
	Close() error
}

// Device is one acquisition device inside a context.
type Device interface {
	Name() string
	Channels() []ChannelInfo
	// OpenBuffer starts streaming the given channels, samples per refill.
	OpenBuffer(channels []string, samples int) (Buffer, error)
}

// Context is an opened connection to a set of devices.
type Context interface {
	URI() string
	Devices() []Device
	FindDevice(name string) (Device, error)
	Close() error
}

// Backend discovers and opens contexts for one URI scheme.
type Backend interface {
	Scheme() string
	Scan(ctx context.Context) ([]string, error)
	Open(ctx context.Context, uri string) (Context, error)
}

// FindChannel returns the channel called id.
func FindChannel(d Device, id string) (ChannelInfo, error) {
	for _, ch := range d.Channels() {
		if ch.ID == id {
			return ch, nil
		}
	}
	return ChannelInfo{}, fmt.Errorf("%w: channel %q on %s", ErrNotFound, id, d.Name())
}
