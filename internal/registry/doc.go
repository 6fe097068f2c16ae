// Package registry maps the proxy type names used in session files (for
// example "scale_offset") to the Go factories that build the proxies.
//
// Each factory declares its arguments as config.InputDefinitions and an
// input struct whose fields carry `cty` tags. ValidateRegistry checks that
// the two agree, so a session file and the Go code can never drift apart
// silently.
package registry
