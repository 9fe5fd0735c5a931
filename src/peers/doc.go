// Package peers defines the concept of a gossip learning peer and implements
// functions to manage collections of peers.
//
// Peers are identified by the network address where they can be reached, and
// optionally a moniker which is a non-unique user-friendly name. A numeric ID
// is derived from the address and used to seed per-peer randomness.
//
// Upon starting up, a node reads the peers.json file in its data directory to
// learn about the other members of the network. Nodes do not exchange
// membership information; a peer that is not listed is never contacted, but
// messages from unlisted peers are still answered.
package peers
