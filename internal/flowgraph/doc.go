// Package flowgraph is the embedded dataflow runtime wrapped by the top block
// manager. A Graph is a set of port-to-port connections between Blocks; once
// started, every connected block runs on its own goroutine and samples flow
// over buffered channels until the graph completes or is stopped.
//
// A Graph keeps its identity across rebuilds: connections are cleared with
// DisconnectAll and re-populated, and UniqueName counters keep increasing so
// block instance names never repeat within one Graph.
//
// Connections may only change while the graph is stopped. Connect, Disconnect
// and DisconnectAll return ErrRunning otherwise.
package flowgraph
