// Package builder turns a loaded session model into live objects: it opens
// the declared devices, builds every proxy through the registry and chains
// them into signal paths, ready to be registered with a topblock.Manager.
//
// # How It Works
//
//  1. Devices: each `device` block is opened through the device registry
//     and wrapped in an iiosource.DeviceSource.
//  2. Paths: every `signal_path` gets an empty signalpath.Path first, so a
//     `path` proxy can refer to a path declared later in the session.
//  3. Proxies: each proxy's arguments are decoded by the config.Converter
//     into the input struct of its registered type and handed to the
//     factory. The result is appended to its path.
//  4. Validation: nested paths must not form a cycle.
//
// Nothing here touches the flowgraph. Blocks are only allocated when the
// manager builds the graph.
package builder
