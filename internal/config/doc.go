// Package config defines the format-agnostic model of a session: the device
// sources to open, the signal paths to register and the scanner settings,
// along with the Loader and Converter interfaces that produce and interpret
// it.
//
// The Model is consumed by the builder package. Concrete implementations of
// the interfaces, such as for HCL, are provided in separate packages.
package config
