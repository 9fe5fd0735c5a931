// Package config defines the configuration for a gossip learning node.
//
// Regardless of how a node is started, directly from Go code or as a
// standalone process from the command line, it uses the Config object defined
// in this package to store and forward configuration options. On top of these
// configuration options, a node relies on a data directory, defined by
// Config.DataDir, where it expects to find a few additional files:
//
//  peers.json // a JSON file containing the list of peers to gossip with.
//  data.svm // (optional) the local training data, in SVMlight format.
//  gossiplearn.toml // (optional) configuration read by the command line.
package config
