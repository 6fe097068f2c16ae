// Package app contains the core application logic. It defines the App root
// context object, its configuration, and the run lifecycle: build the
// session, register it with a top block manager, attach the capture,
// recorder and monitor taps, and drive the engine from a single control
// goroutine that also receives scan results and console keys. It is
// decoupled from any specific entrypoint like a CLI or server.
package app
