// Package service implements an HTTP API to query a running node.
//
// Endpoints:
//
//	GET  /stats        node counters as a string map
//	GET  /model        shared models, with their kind and age
//	GET  /connections  per-connection sequence and transaction counters
//	GET  /peers        the peer set
//	POST /suspend      stop initiating exchanges
//	POST /resume       resume gossip
//	GET  /metrics      Prometheus metrics
package service
