// Package node implements the reactive component of a gossip learning node.
//
// A node holds a small set of models, trains them on its local data and
// averages them with its neighbors through push-pull exchanges.
//
// Push-pull
//
// Every heartbeat, the node trains its shared models, picks a neighbor with
// its PeerSelector and pushes a compressed copy of the models on its outgoing
// Connection with that neighbor. The neighbor's incoming Connection replies
// with its own models and both sides move their models toward each other by
// eta/2 of the age-weighted difference. Applying the same step on both sides
// preserves the sum of the weighted models across the network.
//
// Connections tolerate message loss. Pushes carry a sequence number that
// lets the receiver ignore old or duplicated pushes, and a transaction counter
// that reveals a reply lost on its way back. In that case the responder rolls
// back the step it applied so that the two sides stay consistent.
//
// Node
//
// The Node runs a single loop that handles heartbeat ticks and incoming
// messages one at a time. Connections and the shared models are therefore
// never accessed concurrently. The Node periodically saves a checkpoint of
// its models to a store and can restore it on startup.
package node
