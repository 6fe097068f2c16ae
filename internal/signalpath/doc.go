// Package signalpath builds processing chains out of proxies.
//
// A Proxy stands in for one or more flowgraph blocks. Its blocks are
// allocated the first time it is connected during a build and released when
// it is disconnected, so every build gets fresh blocks. A Path is an ordered
// list of proxies; disabled proxies are bypassed. Paths are proxies too, so
// a path can reuse another path's source by appending it.
package signalpath
