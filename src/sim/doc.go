// Package sim runs gossip learning networks inside a single process.
//
// Nodes are connected by in-memory transports that can lose and delay
// messages. Each node trains on a small share of a synthetic, linearly
// separable dataset, and the simulation reports the 0-1 error of the network
// on a common test set after every heartbeat.
package sim
