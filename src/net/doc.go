// Package net implements the transports used by gossip learning nodes to
// exchange push-pull messages.
//
// A Transport is fire-and-forget: Send hands a Message to the network and
// returns, and incoming messages, requests and replies alike, are delivered on
// the Consumer channel. Nothing is retried at this layer; the connection
// protocol tolerates loss, reordering and duplicates.
//
// There are two implementations:
//
// - Inmem: in-memory transport used by tests and the simulator. It can add
// latency and drop messages, randomly or through a DropFilter.
//
// - TCP: one-way msgpack frames over pooled TCP connections.
//
// TCP
//
// To use a TCP transport, set the following configuration options in the
// Config object (cf config package):
//
// - BindAddr: the IP:PORT of the TCP socket that the node binds to.
//
// - AdvertiseAddr: (optional) The address that is advertised to other nodes. If
// BindAddr is a local address not reachable by other peers, it is useful to
// set AdvertiseAddr to the reachable public address.
//
// Wire format
//
// Messages are converted to WireMessage before encoding. Each model of the
// payload is tagged with its kind so the receiver can instantiate the right
// type. Compressed models arrive without a reference to the model they were
// encoded from and are decoded by the receiver's codecs.
package net
