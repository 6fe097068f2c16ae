// Package device abstracts the hardware side of an acquisition session.
//
// A Backend discovers and opens Contexts by URI ("sim:demo", "ip:192.168.2.1").
// A Context groups Devices, and a Device streams raw ADC codes for a chosen
// subset of its channels through a Buffer. The Registry dispatches URIs to the
// backend owning their scheme.
//
// The sim backend produces synthetic waveforms and is what the tests and the
// CLI use when no hardware is attached.
package device
