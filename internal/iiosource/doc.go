// Package iiosource connects device channels to signal paths.
//
// A DeviceSource is registered with the topblock manager as a device source
// node. Channel sources (FloatChannelSrc, ComplexChannelSrc) are proxies
// appended to signal paths. On every build the DeviceSource allocates one
// acquisition block carrying only the channels that live paths currently
// use, compacted to ports 0..n-1 in device channel order, and the channel
// sources then connect their converters to those ports.
package iiosource
