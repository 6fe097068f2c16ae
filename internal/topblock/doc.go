// Package topblock owns the single executable flowgraph of a session and its
// lifecycle.
//
// Tool code registers SignalPathNodes and DeviceSourceNodes with a Manager.
// Every registration change triggers Rebuild, which stops the engine if it is
// running, tears down the previous wiring, connects every registered node
// into the graph again and restarts the engine if it was running before.
// SuspendBuild and UnsuspendBuild bracket batches of registration changes so
// that they collapse into a single rebuild.
//
// The Manager is driven from one control goroutine, the one that created it.
// State queries (Running, Built, Suspended) are safe from any goroutine.
// Lifecycle events are delivered synchronously to subscribers, in order,
// before the next phase begins, so a subscriber may attach extra blocks with
// Connect when it receives BuiltSignalPaths.
package topblock
