// Package blocks is the library of runtime blocks that signal-path proxies
// allocate into a flowgraph: sources, arithmetic, stream shaping, filters,
// complex conversions and sinks.
//
// Every block carries an instance name handed out by the owning graph
// (flowgraph.Graph.UniqueName) so edge lists read like "sig_source0:0->head0:0".
package blocks
