// Package hcl provides the concrete HCL implementation of the session
// loading and data conversion interfaces defined in the `config` package.
// It is responsible for file parsing, variable evaluation, HCL-to-model
// translation and CTY-to-Go data binding of proxy arguments.
package hcl
