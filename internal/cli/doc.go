// Package cli turns command-line arguments into an app.Config. Flags given
// explicitly win over the preferences file, which wins over the built-in
// defaults. Invalid input is reported as an ExitError carrying the process
// exit code.
package cli
